package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const analysisBody = `{"analysis_id":"A-1","risk_assessment":{"risk_score":82}}`

// captured is what the fake service saw.
type captured struct {
	method      string
	path        string
	requestID   string
	userAgent   string
	fileName    string
	partType    string
	fileContent string
}

func newService(t *testing.T, status int, body string) (*httptest.Server, <-chan captured) {
	t.Helper()

	seen := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{
			method:    r.Method,
			path:      r.URL.Path,
			requestID: r.Header.Get(RequestIDHeader),
			userAgent: r.Header.Get("User-Agent"),
		}
		if file, header, err := r.FormFile(FormField); err == nil {
			data, _ := io.ReadAll(file)
			c.fileName = header.Filename
			c.partType = header.Header.Get("Content-Type")
			c.fileContent = string(data)
			_ = file.Close()
		}
		seen <- c
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

// TestNew tests base URL handling.
func TestNew(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		base     string
		endpoint string
		err      error
	}{
		{"https://personashield.onrender.com", "https://personashield.onrender.com/api/v1/analyze/upload-pdf", nil},
		{"http://localhost:8000/", "http://localhost:8000/api/v1/analyze/upload-pdf", nil},
		{"http://gateway/shield?x=1", "http://gateway/shield/api/v1/analyze/upload-pdf", nil},
		{"localhost:8000", "", ErrInvalidBaseURL},
		{"ftp://example.com", "", ErrInvalidBaseURL},
		{"", "", ErrInvalidBaseURL},
	}

	for _, tc := range testCases {
		t.Run(tc.base, func(t *testing.T) {
			t.Parallel()

			c, err := New(tc.base)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if err == nil && c.Endpoint() != tc.endpoint {
				t.Errorf("Endpoint() = %q, expected %q", c.Endpoint(), tc.endpoint)
			}
		})
	}
}

// TestUpload tests a successful upload.
func TestUpload(t *testing.T) {
	t.Parallel()

	srv, seen := newService(t, http.StatusOK, analysisBody)
	c, err := New(srv.URL, WithUserAgent("personashield-test"))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.Upload(context.Background(), "resume.pdf", strings.NewReader("%PDF-1.7 body"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := <-seen

	t.Run("request", func(t *testing.T) {
		if got.method != http.MethodPost || got.path != UploadPath {
			t.Errorf("unexpected request %s %s", got.method, got.path)
		}
		if got.fileName != "resume.pdf" || got.fileContent != "%PDF-1.7 body" {
			t.Errorf("unexpected file part %q %q", got.fileName, got.fileContent)
		}
		if got.partType != "application/pdf" {
			t.Errorf("unexpected part content type %q", got.partType)
		}
		if got.userAgent != "personashield-test" {
			t.Errorf("unexpected user agent %q", got.userAgent)
		}
		if _, err := uuid.Parse(got.requestID); err != nil {
			t.Errorf("request ID %q is not a UUID", got.requestID)
		}
	})

	t.Run("response", func(t *testing.T) {
		if resp.RequestID != got.requestID {
			t.Errorf("response request ID %q, sent %q", resp.RequestID, got.requestID)
		}
		if resp.Analysis.ID() != "A-1" {
			t.Errorf("unexpected analysis ID %q", resp.Analysis.ID())
		}
		if resp.Analysis.RiskScore().Or(0) != 82 {
			t.Errorf("unexpected risk score %v", resp.Analysis.RiskScore())
		}
		if string(resp.Analysis.Raw()) != analysisBody {
			t.Errorf("analysis was not kept verbatim: %s", resp.Analysis.Raw())
		}
	})
}

// TestUploadFailures tests that every failure is the generic error.
func TestUploadFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"Invalid PDF"}`, "Invalid PDF"},
		{"validation error", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","file"]}]}`, "loc"},
		{"plain text error", http.StatusBadGateway, "bad gateway", "bad gateway"},
		{"not json", http.StatusOK, "<html>", "decode"},
		{"json array", http.StatusOK, `[1,2]`, "decode"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newService(t, tc.status, tc.body)
			c, _ := New(srv.URL)

			_, err := c.Upload(context.Background(), "cv.pdf", strings.NewReader("%PDF-"))
			if !errors.Is(err, ErrAnalysisFailed) {
				t.Fatalf("expected ErrAnalysisFailed, got %v", err)
			}
			if err.Error() != FailureMessage {
				t.Errorf("user-facing message leaked detail: %q", err.Error())
			}
			var uerr *UploadError
			if !errors.As(err, &uerr) {
				t.Fatal("expected an *UploadError")
			}
			if !strings.Contains(uerr.Detail(), tc.detail) {
				t.Errorf("Detail() = %q, expected it to mention %q", uerr.Detail(), tc.detail)
			}
			if uerr.StatusCode != tc.status {
				t.Errorf("StatusCode = %d, expected %d", uerr.StatusCode, tc.status)
			}
		})
	}

	t.Run("unreachable service", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		c, _ := New(base, WithHTTPClient(&http.Client{Timeout: time.Second}))
		_, err := c.Upload(context.Background(), "cv.pdf", strings.NewReader("%PDF-"))
		var uerr *UploadError
		if !errors.As(err, &uerr) || uerr.StatusCode != 0 {
			t.Errorf("expected a transport failure, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		srv, _ := newService(t, http.StatusOK, analysisBody)
		c, _ := New(srv.URL)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Upload(ctx, "cv.pdf", strings.NewReader("%PDF-"))
		if !errors.Is(err, ErrAnalysisFailed) || !IsCanceled(err) {
			t.Errorf("expected a canceled ErrAnalysisFailed, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		c, _ := New("http://127.0.0.1:1")
		_, err := c.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
		if !errors.Is(err, ErrAnalysisFailed) || !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected ErrAnalysisFailed wrapping ErrNotExist, got %v", err)
		}
	})
}

// TestUploadFile tests uploading from disk.
func TestUploadFile(t *testing.T) {
	t.Parallel()

	srv, seen := newService(t, http.StatusOK, analysisBody)
	c, _ := New(srv.URL)

	path := filepath.Join(t.TempDir(), "jane \"cv\".pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := c.UploadFile(context.Background(), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := <-seen; got.fileName != `jane "cv".pdf` {
		t.Errorf("unexpected file name %q", got.fileName)
	}
}

func TestServerDetail(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{"fastapi detail", `{"detail":"File too large"}`, "File too large"},
		{"validation list", `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`},
		{"plain text", "  Bad Gateway\n", "Bad Gateway"},
		{"empty", "", "empty body"},
		{"long ascii", strings.Repeat("x", 250), strings.Repeat("x", 200)},
		{"long multibyte", strings.Repeat("履歴書", 100), strings.Repeat("履歴書", 67)[:len("履")*200]},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := serverDetail([]byte(tc.body))
			if got != tc.expected {
				t.Errorf("serverDetail() = %q, expected %q", got, tc.expected)
			}
			if !utf8.ValidString(got) {
				t.Errorf("serverDetail() returned invalid UTF-8: %q", got)
			}
		})
	}
}
