package ingest

import "time"

// Upload progress pacing. The service does not report progress, so the bar
// advances on a timer and only reaches 100 when the answer arrives.
const (
	ProgressStart    = 10
	ProgressStep     = 10
	ProgressCeiling  = 90
	ProgressInterval = 500 * time.Millisecond
)

// Progress is the displayed completion of one upload.
type Progress struct {
	percent int
	done    bool
}

// NewProgress returns the progress shown right after the upload starts.
func NewProgress() Progress {
	return Progress{percent: ProgressStart}
}

// Tick advances by one step without passing ProgressCeiling.
func (p Progress) Tick() Progress {
	if p.done {
		return p
	}
	p.percent = min(p.percent+ProgressStep, ProgressCeiling)
	return p
}

// Complete jumps to 100.
func (p Progress) Complete() Progress {
	return Progress{percent: 100, done: true}
}

// Percent returns the completion in percent.
func (p Progress) Percent() int { return p.percent }

// Fraction returns the completion in [0, 1] for progress bars.
func (p Progress) Fraction() float64 { return float64(p.percent) / 100 }

// Done reports whether Complete was called.
func (p Progress) Done() bool { return p.done }
