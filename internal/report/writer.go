package report

import (
	"io"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the full report.
	// Returns the number of bytes written and any error encountered.
	Write(rep *Report) (int, error)

	// WriteSummary outputs only the summary.
	WriteSummary(summary *Summary) (int, error)
}

// MultiWriter writes to multiple Writers, e.g. the terminal and a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(rep *Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(rep)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(summary *Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
