package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/personashield/internal/model"
)

// UploadPath is the analysis endpoint relative to the base URL.
const UploadPath = "/api/v1/analyze/upload-pdf"

// FormField is the multipart field carrying the document.
const FormField = "file"

// RequestIDHeader carries a per-upload UUID so that a failure can be matched
// with server logs.
const RequestIDHeader = "X-Request-ID"

// DefaultTimeout matches the time the service may take on a long resume.
const DefaultTimeout = 120 * time.Second

// maxResponseSize bounds the analysis document read from the service.
const maxResponseSize = 32 << 20

// Client talks to the analysis service.
type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client, for example one that dials through
// Tor. A nil client is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the service at baseURL. A path in baseURL is kept
// as a prefix of UploadPath.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + UploadPath
	u.RawQuery = ""
	u.Fragment = ""

	c := &Client{
		endpoint:   u.String(),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the full upload URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Response is a successful upload.
type Response struct {
	RequestID  string
	StatusCode int
	Analysis   *model.AnalysisResult
	Elapsed    time.Duration
}

// UploadFile uploads the file at path.
func (c *Client) UploadFile(ctx context.Context, path string) (*Response, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, c.fail(uuid.NewString(), 0, fmt.Errorf("failed to open document: %w", err))
	}
	defer f.Close()
	return c.Upload(ctx, filepath.Base(path), f)
}

// Upload sends the document read from r under the file name name.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (*Response, error) {
	requestID := uuid.NewString()
	start := time.Now()

	body, contentType, err := multipartBody(name, r)
	if err != nil {
		return nil, c.fail(requestID, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, c.fail(requestID, 0, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("uploading document", "file", name, "size", body.Len(), "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(requestID, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, c.fail(requestID, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(requestID, resp.StatusCode, fmt.Errorf("%w: %s", errUnexpectedStatus, serverDetail(data)))
	}

	analysis, err := model.ParseAnalysisResult(data)
	if err != nil {
		return nil, c.fail(requestID, resp.StatusCode, fmt.Errorf("failed to decode analysis: %w", err))
	}

	elapsed := time.Since(start)
	c.logger.Debug("analysis received",
		"request_id", requestID,
		"analysis_id", analysis.ID(),
		"elapsed", elapsed,
	)
	return &Response{
		RequestID:  requestID,
		StatusCode: resp.StatusCode,
		Analysis:   analysis,
		Elapsed:    elapsed,
	}, nil
}

func (c *Client) fail(requestID string, status int, cause error) error {
	uerr := &UploadError{RequestID: requestID, StatusCode: status, Cause: cause}
	c.logger.Debug("upload failed", "request_id", requestID, "detail", uerr.Detail())
	return uerr
}

// multipartBody encodes r as the single file part of a form. The part is
// labelled application/pdf like a browser upload of a .pdf file.
func multipartBody(name string, r io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FormField, escapeQuotes(name)))
	header.Set("Content-Type", "application/pdf")

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", fmt.Errorf("failed to read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// serverDetail extracts FastAPI's {"detail": ...} text from an error body,
// falling back to a prefix of the raw body.
func serverDetail(data []byte) string {
	const limit = 200
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && len(body.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(body.Detail, &detail); err == nil {
			return detail
		}
		// Validation errors arrive as a list of objects.
		data = body.Detail
	}
	text := strings.TrimSpace(string(data))
	if r := []rune(text); len(r) > limit {
		text = string(r[:limit])
	}
	if text == "" {
		return "empty body"
	}
	return text
}

// IsCanceled reports whether err comes from a canceled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
