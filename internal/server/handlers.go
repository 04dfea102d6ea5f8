package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nao1215/personashield/internal/client"
	"github.com/nao1215/personashield/internal/database"
	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/report"
	"github.com/nao1215/personashield/internal/view"
)

var (
	// ErrNoAnalysis is returned when no analysis is loaded.
	ErrNoAnalysis = errors.New("no analysis loaded")
	// ErrNoHistoryEntry is returned for an out-of-range history index.
	ErrNoHistoryEntry = errors.New("no such history entry")
	// ErrUploadsDisabled is returned when the server has no ingester.
	ErrUploadsDisabled = errors.New("uploads are not enabled")
	// errBadRequest marks malformed requests.
	errBadRequest = errors.New("bad request")
)

// defaultUploadListLimit is the page size of GET /api/uploads.
const defaultUploadListLimit = 50

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errorBody is the JSON body of every error response.
type errorBody struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// uploadFailure carries the request ID of a failed ingestion.
type uploadFailure struct {
	requestID string
	rejected  bool
	err       error
}

func (e *uploadFailure) Error() string { return e.err.Error() }
func (e *uploadFailure) Unwrap() error { return e.err }

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		var (
			status = http.StatusInternalServerError
			body   = errorBody{Detail: "internal error"}
			upload *uploadFailure
		)
		switch {
		case errors.As(err, &upload):
			// Upload failures always surface the one generic message.
			body = errorBody{Detail: client.FailureMessage, RequestID: upload.requestID}
			status = http.StatusBadGateway
			if upload.rejected {
				status = http.StatusUnprocessableEntity
			}
		case errors.Is(err, ErrNoAnalysis), errors.Is(err, ErrNoHistoryEntry), errors.Is(err, view.ErrUnknownPage):
			status = http.StatusNotFound
			body.Detail = err.Error()
		case errors.Is(err, ErrUploadsDisabled):
			status = http.StatusServiceUnavailable
			body.Detail = err.Error()
		case errors.Is(err, errBadRequest):
			status = http.StatusBadRequest
			body.Detail = err.Error()
		}

		if status >= http.StatusInternalServerError {
			s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		} else {
			s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		}
		writeJSON(w, status, body)
	}
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"clients": s.hub.Clients(),
	})
	return nil
}

// GET /api/pages
func (s *Server) handlePages(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, view.Pages)
	return nil
}

// current returns the loaded analysis or ErrNoAnalysis.
func (s *Server) current() (*model.AnalysisResult, error) {
	r, ok := s.store.Current()
	if !ok {
		return nil, ErrNoAnalysis
	}
	return r, nil
}

// GET /api/analysis/current
func (s *Server) handleCurrent(w http.ResponseWriter, _ *http.Request) error {
	r, err := s.current()
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, r)
	return nil
}

// DELETE /api/analysis/current
func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) error {
	s.store.ClearAnalysis()
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /api/analysis/history
func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) error {
	history := s.store.History()
	if history == nil {
		history = []*model.AnalysisResult{}
	}
	writeJSON(w, http.StatusOK, history)
	return nil
}

// POST /api/analysis/history/{index}/restore
// Negative indexes count from the newest entry.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return fmt.Errorf("%w: history index must be an integer", errBadRequest)
	}
	if !s.store.Restore(index) {
		return fmt.Errorf("%w: %d", ErrNoHistoryEntry, index)
	}
	return s.handleCurrent(w, r)
}

// GET /api/views/{page}
// Without a loaded analysis the view is built empty, like the dashboard does.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) error {
	cur, _ := s.store.Current()
	v, err := view.Build(view.Page(chi.URLParam(r, "page")), cur, s.viewOpts)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, v)
	return nil
}

// GET /api/snapshot
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) error {
	cur, err := s.current()
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view.BuildSnapshot(cur, s.viewOpts))
	return nil
}

// GET /api/report?format=json|markdown|text
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) error {
	cur, err := s.current()
	if err != nil {
		return err
	}

	var (
		writer      report.Writer
		contentType string
	)
	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "json":
		writer = report.NewFullJSONWriter(w, s.version, report.WithPrettyPrint())
		contentType = "application/json"
	case "markdown", "md":
		writer = report.NewMarkdownWriter(w)
		contentType = "text/markdown; charset=utf-8"
	case "text":
		writer = report.NewSimpleWriter(w, report.WithVerbose(true))
		contentType = "text/plain; charset=utf-8"
	default:
		return fmt.Errorf("%w: unknown report format %q", errBadRequest, format)
	}

	w.Header().Set("Content-Type", contentType)
	if _, err := writer.Write(report.New(cur, s.viewOpts)); err != nil {
		s.logger.Warn("failed to write report", "error", err)
	}
	return nil
}

// uploadView is the JSON form of one upload log row.
type uploadView struct {
	ID          int64    `json:"id"`
	RequestID   string   `json:"request_id"`
	FileName    string   `json:"file_name"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Size        int64    `json:"size"`
	Status      string   `json:"status"`
	AnalysisID  string   `json:"analysis_id,omitempty"`
	RiskScore   *float64 `json:"risk_score"`
	Findings    int      `json:"findings"`
	Timestamp   string   `json:"timestamp"`
}

func newUploadView(rec database.UploadRecord) uploadView {
	v := uploadView{
		ID:          rec.ID,
		RequestID:   rec.RequestID,
		FileName:    rec.FileName,
		Fingerprint: rec.Fingerprint,
		Size:        rec.Size,
		Status:      string(rec.Status),
		AnalysisID:  rec.AnalysisID,
		Findings:    rec.Findings,
		Timestamp:   rec.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if rec.RiskScore.Valid {
		score := rec.RiskScore.Float64
		v.RiskScore = &score
	}
	return v
}

// GET /api/uploads?limit=N
func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) error {
	if s.uploads == nil {
		writeJSON(w, http.StatusOK, []uploadView{})
		return nil
	}

	limit := defaultUploadListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest)
		}
		limit = n
	}

	records, err := s.uploads.ListUploads(r.Context(), limit)
	if err != nil {
		return err
	}
	out := make([]uploadView, 0, len(records))
	for _, rec := range records {
		out = append(out, newUploadView(rec))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

// POST /api/analysis/upload (multipart, field "file")
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) error {
	if s.ingester == nil {
		return ErrUploadsDisabled
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+(1<<20))
	file, header, err := r.FormFile(client.FormField)
	if err != nil {
		return fmt.Errorf("%w: expected a multipart %q field: %v", errBadRequest, client.FormField, err)
	}
	defer file.Close()

	dir, err := os.MkdirTemp("", "personashield-upload-*")
	if err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, uploadName(header.Filename))
	if err := saveUpload(path, file); err != nil {
		return err
	}

	job, err := s.ingester.Ingest(r.Context(), path)
	if job != nil && job.RequestID != "" {
		w.Header().Set(client.RequestIDHeader, job.RequestID)
	}
	if err != nil {
		failure := &uploadFailure{err: err}
		if job != nil {
			failure.requestID = job.RequestID
			failure.rejected = job.Status == database.UploadRejected
		}
		return failure
	}

	writeJSON(w, http.StatusOK, job.Analysis)
	return nil
}

// uploadName reduces a client-supplied file name to a safe base name.
func uploadName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "upload.pdf"
	}
	return name
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: upload exceeds %d bytes", errBadRequest, tooLarge.Limit)
		}
		return fmt.Errorf("failed to store upload: %w", err)
	}
	return dst.Close()
}
