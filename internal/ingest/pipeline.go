package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nao1215/personashield/internal/client"
	"github.com/nao1215/personashield/internal/database"
	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/pdfmeta"
)

// Job is one document moving through ingestion.
type Job struct {
	// Path is the file as given by the user.
	Path string
	// Name is the base name sent to the service.
	Name string

	Inspection *pdfmeta.Result

	RequestID string
	Analysis  *model.AnalysisResult

	Status database.UploadStatus
	// Err is the failure of the last step that ran, nil on success.
	Err     error
	Elapsed time.Duration
}

// NewJob creates a Job for path.
func NewJob(path string) *Job {
	return &Job{Path: path, Name: filepath.Base(path)}
}

// Succeeded reports whether the job produced an analysis.
func (j *Job) Succeeded() bool {
	return j.Status == database.UploadSucceeded && j.Analysis != nil
}

// Step is one stage of ingestion.
type Step interface {
	// Do runs the step. An error stops the job; the remaining steps are
	// skipped.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps over a job in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(logger *slog.Logger, steps ...Step) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{steps: steps, logger: logger}
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs every step until one fails or ctx is canceled. The error is
// also recorded in job.Err.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	start := time.Now()
	defer func() { job.Elapsed = time.Since(start) }()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			job.Err = err
			if job.Status == "" {
				job.Status = database.UploadFailed
			}
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "file", job.Name)
		if err := step.Do(ctx, job); err != nil {
			p.logger.Debug("step failed", "step", step.Name(), "file", job.Name, "error", err)
			job.Err = err
			return err
		}
	}
	return nil
}

// inspectStep runs the local pre-flight checks.
type inspectStep struct {
	inspector *pdfmeta.Inspector
}

func (s inspectStep) Name() string { return "inspect" }

func (s inspectStep) Do(ctx context.Context, job *Job) error {
	result, err := s.inspector.InspectFile(ctx, job.Path)
	if err != nil {
		job.Status = database.UploadRejected
		return fmt.Errorf("pre-flight inspection of %s: %w", job.Name, err)
	}
	job.Inspection = result
	return nil
}

// Uploader sends one document to the analysis service.
type Uploader interface {
	UploadFile(ctx context.Context, path string) (*client.Response, error)
}

// uploadStep sends the document.
type uploadStep struct {
	uploader Uploader
}

func (s uploadStep) Name() string { return "upload" }

func (s uploadStep) Do(ctx context.Context, job *Job) error {
	resp, err := s.uploader.UploadFile(ctx, job.Path)
	if err != nil {
		job.Status = database.UploadFailed
		var uerr *client.UploadError
		if errors.As(err, &uerr) {
			job.RequestID = uerr.RequestID
		}
		return err
	}
	job.RequestID = resp.RequestID
	job.Analysis = resp.Analysis
	job.Status = database.UploadSucceeded
	return nil
}
