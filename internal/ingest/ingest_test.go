package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/personashield/internal/client"
	"github.com/nao1215/personashield/internal/database"
	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/pdfmeta"
	"github.com/nao1215/personashield/internal/store"
)

const minimalPDF = "%PDF-1.4\n1 0 obj\n<< /Author (Jane Doe) >>\nendobj\n%%EOF\n"

// fakeUploader answers with an analysis named after the file, or fails for
// names listed in fail.
type fakeUploader struct {
	fail     map[string]bool
	delay    map[string]time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (f *fakeUploader) UploadFile(ctx context.Context, path string) (*client.Response, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	name := filepath.Base(path)
	if d := f.delay[name]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[name] {
		return nil, &client.UploadError{RequestID: "req-" + name, StatusCode: 500, Cause: errors.New("boom")}
	}
	return &client.Response{
		RequestID:  "req-" + name,
		StatusCode: 200,
		Analysis:   model.MustParseAnalysisResult(`{"analysis_id":"` + name + `","risk_assessment":{"risk_score":42}}`),
	}, nil
}

// memoryLog collects upload records.
type memoryLog struct {
	mu      sync.Mutex
	records []*database.UploadRecord
}

func (m *memoryLog) InsertUpload(_ context.Context, rec *database.UploadRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return int64(len(m.records)), nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func historyIDs(s *store.Store) []string {
	var out []string
	for _, r := range s.History() {
		out = append(out, r.ID())
	}
	return out
}

func TestIngest(t *testing.T) {
	t.Parallel()

	t.Run("success reaches store and log", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		path := writeFile(t, t.TempDir(), "cv.pdf", minimalPDF)
		s := store.New(ctx, store.NewMemoryKV())
		log := &memoryLog{}

		in := New(pdfmeta.NewInspector(), &fakeUploader{}, WithSink(s), WithUploadLog(log))
		job, err := in.Ingest(ctx, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !job.Succeeded() || job.RequestID != "req-cv.pdf" {
			t.Errorf("unexpected job: %+v", job)
		}
		if cur, ok := s.Current(); !ok || cur.ID() != "cv.pdf" {
			t.Error("analysis was not stored")
		}
		if len(log.records) != 1 {
			t.Fatalf("got %d log records, expected 1", len(log.records))
		}
		rec := log.records[0]
		if rec.Status != database.UploadSucceeded || rec.AnalysisID != "cv.pdf" || rec.Fingerprint == "" {
			t.Errorf("unexpected record: %+v", rec)
		}
		if !rec.RiskScore.Valid || rec.RiskScore.Float64 != 42 {
			t.Errorf("unexpected risk score: %+v", rec.RiskScore)
		}
		if rec.Findings == 0 {
			t.Error("expected inspection findings to be counted")
		}
	})

	t.Run("non-pdf is rejected before upload", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		path := writeFile(t, t.TempDir(), "notes.txt", "hello")
		up := &fakeUploader{}
		log := &memoryLog{}
		s := store.New(ctx, store.NewMemoryKV())

		in := New(pdfmeta.NewInspector(), up, WithSink(s), WithUploadLog(log))
		job, err := in.Ingest(ctx, path)
		if !errors.Is(err, pdfmeta.ErrNotPDF) {
			t.Errorf("expected ErrNotPDF, got %v", err)
		}
		if job.Status != database.UploadRejected {
			t.Errorf("status = %q, expected rejected", job.Status)
		}
		if up.calls.Load() != 0 {
			t.Error("rejected document was uploaded")
		}
		if s.Len() != 0 {
			t.Error("rejected document reached the store")
		}
		if len(log.records) != 1 || log.records[0].Status != database.UploadRejected {
			t.Errorf("unexpected log: %+v", log.records)
		}
	})

	t.Run("upload failure keeps request id", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		path := writeFile(t, t.TempDir(), "bad.pdf", minimalPDF)
		log := &memoryLog{}

		in := New(pdfmeta.NewInspector(), &fakeUploader{fail: map[string]bool{"bad.pdf": true}}, WithUploadLog(log))
		job, err := in.Ingest(ctx, path)
		if !errors.Is(err, client.ErrAnalysisFailed) {
			t.Errorf("expected ErrAnalysisFailed, got %v", err)
		}
		if job.Status != database.UploadFailed || job.RequestID != "req-bad.pdf" {
			t.Errorf("unexpected job: %+v", job)
		}
		if log.records[0].RiskScore.Valid {
			t.Error("failed upload should carry no score")
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		path := writeFile(t, t.TempDir(), "cv.pdf", minimalPDF)

		in := New(pdfmeta.NewInspector(), &fakeUploader{})
		job, err := in.Ingest(ctx, path)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if job.Status != database.UploadFailed {
			t.Errorf("status = %q, expected failed", job.Status)
		}
	})
}

func TestIngestBatch(t *testing.T) {
	t.Parallel()

	t.Run("store order follows input order", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		dir := t.TempDir()
		paths := []string{
			writeFile(t, dir, "a.pdf", minimalPDF),
			writeFile(t, dir, "b.pdf", minimalPDF),
			writeFile(t, dir, "c.txt", "not a pdf"),
			writeFile(t, dir, "d.pdf", minimalPDF),
		}
		up := &fakeUploader{
			fail:  map[string]bool{"d.pdf": true},
			delay: map[string]time.Duration{"a.pdf": 50 * time.Millisecond},
		}
		s := store.New(ctx, store.NewMemoryKV())
		log := &memoryLog{}

		in := New(pdfmeta.NewInspector(), up, WithSink(s), WithUploadLog(log), WithConcurrency(4))
		jobs, err := in.IngestBatch(ctx, paths)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(jobs) != 4 {
			t.Fatalf("got %d jobs, expected 4", len(jobs))
		}
		expectedStatus := []database.UploadStatus{
			database.UploadSucceeded, database.UploadSucceeded, database.UploadRejected, database.UploadFailed,
		}
		for i, job := range jobs {
			if job.Path != paths[i] {
				t.Errorf("jobs[%d].Path = %q, expected %q", i, job.Path, paths[i])
			}
			if job.Status != expectedStatus[i] {
				t.Errorf("jobs[%d].Status = %q, expected %q", i, job.Status, expectedStatus[i])
			}
		}

		got := historyIDs(s)
		if len(got) != 2 || got[0] != "a.pdf" || got[1] != "b.pdf" {
			t.Errorf("history = %v, expected [a.pdf b.pdf]", got)
		}
		if len(log.records) != 4 || log.records[0].FileName != "a.pdf" || log.records[3].FileName != "d.pdf" {
			t.Errorf("log not in input order: %d records", len(log.records))
		}
	})

	t.Run("concurrency limit", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		paths := make([]string, 6)
		delay := map[string]time.Duration{}
		for i := range paths {
			name := string(rune('a'+i)) + ".pdf"
			paths[i] = writeFile(t, dir, name, minimalPDF)
			delay[name] = 20 * time.Millisecond
		}
		up := &fakeUploader{delay: delay}

		in := New(pdfmeta.NewInspector(), up, WithConcurrency(2))
		if _, err := in.IngestBatch(context.Background(), paths); err != nil {
			t.Fatal(err)
		}
		if peak := up.peak.Load(); peak > 2 {
			t.Errorf("peak concurrency = %d, expected at most 2", peak)
		}
		if up.calls.Load() != 6 {
			t.Errorf("got %d uploads, expected 6", up.calls.Load())
		}
	})

	t.Run("progress events", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		paths := []string{writeFile(t, dir, "a.pdf", minimalPDF), writeFile(t, dir, "b.txt", "x")}

		var mu sync.Mutex
		counts := map[Stage]int{}
		in := New(pdfmeta.NewInspector(), &fakeUploader{}, WithProgress(func(ev Event) {
			mu.Lock()
			defer mu.Unlock()
			counts[ev.Stage]++
			if ev.Total != 2 {
				t.Errorf("event total = %d, expected 2", ev.Total)
			}
		}))
		if _, err := in.IngestBatch(context.Background(), paths); err != nil {
			t.Fatal(err)
		}
		if counts[StageStarted] != 2 || counts[StageSucceeded] != 1 || counts[StageFailed] != 1 {
			t.Errorf("unexpected event counts: %v", counts)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()
		jobs, err := New(pdfmeta.NewInspector(), &fakeUploader{}).IngestBatch(context.Background(), nil)
		if err != nil || len(jobs) != 0 {
			t.Errorf("IngestBatch(nil) = (%v, %v)", jobs, err)
		}
	})
}

func TestPipeline(t *testing.T) {
	t.Parallel()

	p := NewPipeline(nil, inspectStep{inspector: pdfmeta.NewInspector()}, uploadStep{uploader: &fakeUploader{}})
	names := p.StepNames()
	if len(names) != 2 || names[0] != "inspect" || names[1] != "upload" {
		t.Errorf("StepNames() = %v", names)
	}
}

func TestProgress(t *testing.T) {
	t.Parallel()

	p := NewProgress()
	if p.Percent() != 10 {
		t.Errorf("start = %d, expected 10", p.Percent())
	}

	expected := []int{20, 30, 40, 50, 60, 70, 80, 90, 90, 90}
	for i, want := range expected {
		p = p.Tick()
		if p.Percent() != want {
			t.Errorf("tick %d = %d, expected %d", i+1, p.Percent(), want)
		}
	}
	if p.Done() {
		t.Error("progress must not be done before Complete")
	}

	p = p.Complete()
	if p.Percent() != 100 || !p.Done() || p.Fraction() != 1 {
		t.Errorf("after Complete: %d%% done=%v", p.Percent(), p.Done())
	}
	if p.Tick().Percent() != 100 {
		t.Error("Tick after Complete changed the progress")
	}
}
