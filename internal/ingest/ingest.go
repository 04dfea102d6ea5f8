package ingest

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/personashield/internal/database"
	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/pdfmeta"
)

// DefaultConcurrency is the number of simultaneous uploads in a batch.
const DefaultConcurrency = 4

// AnalysisSink receives every successful analysis.
type AnalysisSink interface {
	SetAnalysis(ctx context.Context, r *model.AnalysisResult)
}

// UploadLog records every attempt.
type UploadLog interface {
	InsertUpload(ctx context.Context, record *database.UploadRecord) (int64, error)
}

// Stage is a progress notification kind.
type Stage string

// Progress stages.
const (
	StageStarted   Stage = "started"
	StageSucceeded Stage = "succeeded"
	StageFailed    Stage = "failed"
)

// Event reports the progress of one job.
type Event struct {
	Index int
	Total int
	Job   *Job
	Stage Stage
}

// Ingestor inspects, uploads and records documents.
type Ingestor struct {
	pipeline    *Pipeline
	sink        AnalysisSink
	uploadLog   UploadLog
	concurrency int
	logger      *slog.Logger
	onEvent     func(Event)
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithSink sets the store that receives analyses.
func WithSink(sink AnalysisSink) Option {
	return func(in *Ingestor) {
		in.sink = sink
	}
}

// WithUploadLog sets the upload log.
func WithUploadLog(log UploadLog) Option {
	return func(in *Ingestor) {
		in.uploadLog = log
	}
}

// WithConcurrency sets the maximum number of simultaneous uploads.
func WithConcurrency(n int) Option {
	return func(in *Ingestor) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingestor) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// WithProgress registers a callback for job events. In a batch it is called
// from several goroutines.
func WithProgress(fn func(Event)) Option {
	return func(in *Ingestor) {
		in.onEvent = fn
	}
}

// New creates an Ingestor that inspects with inspector and uploads with
// uploader.
func New(inspector *pdfmeta.Inspector, uploader Uploader, opts ...Option) *Ingestor {
	in := &Ingestor{
		concurrency: DefaultConcurrency,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.pipeline = NewPipeline(in.logger, inspectStep{inspector: inspector}, uploadStep{uploader: uploader})
	return in
}

// Ingest processes one document. The returned job is never nil; its error
// is also returned.
func (in *Ingestor) Ingest(ctx context.Context, path string) (*Job, error) {
	job := NewJob(path)
	in.emit(Event{Index: 0, Total: 1, Job: job, Stage: StageStarted})
	_ = in.pipeline.Execute(ctx, job) //nolint:errcheck // recorded in job.Err
	in.finish(ctx, 0, 1, job)
	return job, job.Err
}

// IngestBatch processes paths with at most the configured number of uploads
// in flight. A failed document does not stop the others; cancellation of ctx
// does. Jobs are returned in input order, and analyses are handed to the
// store in that order once every upload has finished.
func (in *Ingestor) IngestBatch(ctx context.Context, paths []string) ([]*Job, error) {
	in.logger.Info("starting batch upload", "files", len(paths), "concurrency", in.concurrency)
	start := time.Now()

	jobs := make([]*Job, len(paths))
	for i, path := range paths {
		jobs[i] = NewJob(path)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				job.Err = err
				job.Status = database.UploadFailed
				return err
			}
			in.emit(Event{Index: i, Total: len(jobs), Job: job, Stage: StageStarted})
			_ = in.pipeline.Execute(gctx, job) //nolint:errcheck // recorded in job.Err
			in.emit(Event{Index: i, Total: len(jobs), Job: job, Stage: stageOf(job)})
			// Only cancellation of the caller's context stops the batch.
			return ctx.Err()
		})
	}
	err := g.Wait()

	for i, job := range jobs {
		in.record(ctx, i, job)
	}

	in.logger.Info("batch upload complete",
		"files", len(paths),
		"succeeded", countSucceeded(jobs),
		"elapsed", time.Since(start),
	)
	return jobs, err
}

func (in *Ingestor) finish(ctx context.Context, index, total int, job *Job) {
	in.record(ctx, index, job)
	in.emit(Event{Index: index, Total: total, Job: job, Stage: stageOf(job)})
}

// record hands a successful analysis to the store and logs the attempt.
func (in *Ingestor) record(ctx context.Context, index int, job *Job) {
	if job.Succeeded() && in.sink != nil {
		in.sink.SetAnalysis(ctx, job.Analysis)
	}

	if job.Err != nil {
		in.logger.Warn("document not analyzed", "file", job.Name, "index", index, "error", job.Err)
	}

	if in.uploadLog == nil || job.Status == "" {
		return
	}
	rec := &database.UploadRecord{
		RequestID: job.RequestID,
		FileName:  job.Name,
		Status:    job.Status,
	}
	if job.Inspection != nil {
		rec.Fingerprint = job.Inspection.Fingerprint
		rec.Size = job.Inspection.Size
		rec.Findings = len(job.Inspection.Findings)
	}
	if job.Analysis != nil {
		rec.AnalysisID = job.Analysis.ID()
		if score := job.Analysis.RiskScore(); score.Valid {
			rec.RiskScore = sql.NullFloat64{Float64: score.Value, Valid: true}
		}
	}
	// The log is an audit aid; a write failure must not fail the upload.
	if _, err := in.uploadLog.InsertUpload(context.WithoutCancel(ctx), rec); err != nil {
		in.logger.Warn("failed to record upload", "file", job.Name, "error", err)
	}
}

func (in *Ingestor) emit(ev Event) {
	if in.onEvent != nil {
		in.onEvent(ev)
	}
}

func stageOf(job *Job) Stage {
	if job.Succeeded() {
		return StageSucceeded
	}
	return StageFailed
}

func countSucceeded(jobs []*Job) int {
	n := 0
	for _, job := range jobs {
		if job.Succeeded() {
			n++
		}
	}
	return n
}
