package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nao1215/personashield/internal/client"
	"github.com/nao1215/personashield/internal/database"
	"github.com/nao1215/personashield/internal/ingest"
	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/pdfmeta"
	"github.com/nao1215/personashield/internal/store"
	"github.com/nao1215/personashield/internal/view"
)

const minimalPDF = "%PDF-1.4\n1 0 obj\n<< /Author (Jane Doe) >>\nendobj\n%%EOF\n"

const sampleAnalysis = `{"analysis_id":"A-1","timestamp":"2024-05-01T10:00:00Z",` +
	`"risk_assessment":{"risk_score":82,"score_breakdown":{"identity_exposure":40,"location_exposure":20}}}`

// fakeUploader answers every upload with sampleAnalysis, or fails when
// fail is set.
type fakeUploader struct {
	fail bool
}

func (f fakeUploader) UploadFile(_ context.Context, path string) (*client.Response, error) {
	if f.fail {
		return nil, &client.UploadError{RequestID: "req-fail", StatusCode: 500, Cause: errors.New("boom")}
	}
	return &client.Response{
		RequestID:  "req-" + filepath.Base(path),
		StatusCode: http.StatusOK,
		Analysis:   model.MustParseAnalysisResult(sampleAnalysis),
	}, nil
}

type fakeUploads struct {
	records []database.UploadRecord
	limit   int
}

func (f *fakeUploads) ListUploads(_ context.Context, limit int) ([]database.UploadRecord, error) {
	f.limit = limit
	return f.records, nil
}

// newTestServer starts a Server over an in-memory store.
func newTestServer(t *testing.T, opts ...Option) (*Server, *store.Store, *httptest.Server) {
	t.Helper()

	st := store.New(context.Background(), store.NewMemoryKV())
	s := New(st, opts...)
	stop := s.start(context.Background())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		stop()
	})
	return s, st, ts
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test helper
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func multipartUpload(t *testing.T, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(client.FormField, name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	t.Parallel()

	_, _, ts := newTestServer(t, WithVersion("1.2.3"))
	resp := get(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["status"] != "ok" || body["version"] != "1.2.3" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestCurrentAnalysis(t *testing.T) {
	t.Parallel()

	t.Run("not found without analysis", func(t *testing.T) {
		t.Parallel()
		_, _, ts := newTestServer(t)
		resp := get(t, ts.URL+"/api/analysis/current")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, expected 404", resp.StatusCode)
		}
		var body errorBody
		decodeBody(t, resp, &body)
		if body.Detail != ErrNoAnalysis.Error() {
			t.Errorf("detail = %q", body.Detail)
		}
	})

	t.Run("returns the raw analysis", func(t *testing.T) {
		t.Parallel()
		_, st, ts := newTestServer(t)
		st.SetAnalysis(context.Background(), model.MustParseAnalysisResult(sampleAnalysis))

		resp := get(t, ts.URL+"/api/analysis/current")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var body map[string]any
		decodeBody(t, resp, &body)
		if body["analysis_id"] != "A-1" {
			t.Errorf("unexpected analysis %v", body)
		}
	})

	t.Run("delete clears current and keeps history", func(t *testing.T) {
		t.Parallel()
		_, st, ts := newTestServer(t)
		st.SetAnalysis(context.Background(), model.MustParseAnalysisResult(sampleAnalysis))

		req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, ts.URL+"/api/analysis/current", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status = %d, expected 204", resp.StatusCode)
		}
		if _, ok := st.Current(); ok {
			t.Error("current analysis was not cleared")
		}
		if st.Len() != 1 {
			t.Errorf("history length = %d, expected 1", st.Len())
		}
	})
}

func TestHistory(t *testing.T) {
	t.Parallel()

	t.Run("empty history is an empty array", func(t *testing.T) {
		t.Parallel()
		_, _, ts := newTestServer(t)
		resp := get(t, ts.URL+"/api/analysis/history")
		var body []json.RawMessage
		decodeBody(t, resp, &body)
		if body == nil || len(body) != 0 {
			t.Errorf("expected [], got %v", body)
		}
	})

	t.Run("restore", func(t *testing.T) {
		t.Parallel()
		_, st, ts := newTestServer(t)
		ctx := context.Background()
		st.SetAnalysis(ctx, model.MustParseAnalysisResult(`{"analysis_id":"A"}`))
		st.SetAnalysis(ctx, model.MustParseAnalysisResult(`{"analysis_id":"B"}`))

		testCases := []struct {
			index  string
			status int
			id     string
		}{
			{"0", http.StatusOK, "A"},
			{"-1", http.StatusOK, "B"},
			{"5", http.StatusNotFound, ""},
			{"x", http.StatusBadRequest, ""},
		}
		for _, tc := range testCases {
			resp, err := http.Post(ts.URL+"/api/analysis/history/"+tc.index+"/restore", "", nil) //nolint:noctx // test
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tc.status {
				t.Errorf("restore %s: status = %d, expected %d", tc.index, resp.StatusCode, tc.status)
			}
			if tc.id != "" {
				var body map[string]any
				decodeBody(t, resp, &body)
				if body["analysis_id"] != tc.id {
					t.Errorf("restore %s: got %v", tc.index, body["analysis_id"])
				}
			}
			resp.Body.Close()
		}
		if st.Len() != 2 {
			t.Errorf("restore must not append, history length = %d", st.Len())
		}
	})
}

func TestViews(t *testing.T) {
	t.Parallel()

	_, st, ts := newTestServer(t)

	t.Run("page list", func(t *testing.T) {
		resp := get(t, ts.URL+"/api/pages")
		var pages []view.PageInfo
		decodeBody(t, resp, &pages)
		if len(pages) != len(view.Pages) {
			t.Errorf("got %d pages, expected %d", len(pages), len(view.Pages))
		}
	})

	t.Run("unknown page", func(t *testing.T) {
		resp := get(t, ts.URL+"/api/views/nope")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, expected 404", resp.StatusCode)
		}
	})

	t.Run("every page builds without analysis", func(t *testing.T) {
		for _, p := range view.Pages {
			resp := get(t, ts.URL+"/api/views/"+string(p.Page))
			if resp.StatusCode != http.StatusOK {
				t.Errorf("%s: status = %d", p.Page, resp.StatusCode)
			}
		}
	})

	t.Run("snapshot requires analysis", func(t *testing.T) {
		resp := get(t, ts.URL+"/api/snapshot")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, expected 404", resp.StatusCode)
		}
	})

	t.Run("weighted risk with analysis", func(t *testing.T) {
		st.SetAnalysis(context.Background(), model.MustParseAnalysisResult(sampleAnalysis))
		resp := get(t, ts.URL+"/api/views/"+string(view.PageWeightedRisk))
		var body map[string]json.RawMessage
		decodeBody(t, resp, &body)
		if len(body) == 0 {
			t.Error("expected a populated view")
		}
	})
}

func TestReport(t *testing.T) {
	t.Parallel()

	_, st, ts := newTestServer(t, WithVersion("1.2.3"))
	st.SetAnalysis(context.Background(), model.MustParseAnalysisResult(sampleAnalysis))

	testCases := []struct {
		format      string
		status      int
		contentType string
		contains    string
	}{
		{"", http.StatusOK, "application/json", `"version": "1.2.3"`},
		{"markdown", http.StatusOK, "text/markdown", "A-1"},
		{"text", http.StatusOK, "text/plain", "PERSONASHIELD REPORT"},
		{"pdf", http.StatusBadRequest, "application/json", "unknown report format"},
	}
	for _, tc := range testCases {
		t.Run("format="+tc.format, func(t *testing.T) {
			resp := get(t, ts.URL+"/api/report?format="+tc.format)
			if resp.StatusCode != tc.status {
				t.Errorf("status = %d, expected %d", resp.StatusCode, tc.status)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tc.contentType) {
				t.Errorf("content type = %q, expected %q", ct, tc.contentType)
			}
			var buf bytes.Buffer
			if _, err := buf.ReadFrom(resp.Body); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), tc.contains) {
				t.Errorf("body does not contain %q:\n%s", tc.contains, buf.String())
			}
		})
	}
}

func TestUploads(t *testing.T) {
	t.Parallel()

	log := &fakeUploads{records: []database.UploadRecord{
		{ID: 2, RequestID: "r2", FileName: "b.pdf", Status: database.UploadFailed, Timestamp: time.Now()},
		{ID: 1, RequestID: "r1", FileName: "a.pdf", Status: database.UploadSucceeded, RiskScore: sql.NullFloat64{Float64: 82, Valid: true}},
	}}
	_, _, ts := newTestServer(t, WithUploadHistory(log))

	resp := get(t, ts.URL+"/api/uploads?limit=5")
	var body []uploadView
	decodeBody(t, resp, &body)
	if log.limit != 5 {
		t.Errorf("limit = %d, expected 5", log.limit)
	}
	if len(body) != 2 || body[0].RequestID != "r2" {
		t.Fatalf("unexpected uploads %+v", body)
	}
	if body[0].RiskScore != nil {
		t.Error("failed upload should have a null score")
	}
	if body[1].RiskScore == nil || *body[1].RiskScore != 82 {
		t.Errorf("unexpected score %v", body[1].RiskScore)
	}

	bad := get(t, ts.URL+"/api/uploads?limit=-1")
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", bad.StatusCode)
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()

	newUploadServer := func(t *testing.T, uploader ingest.Uploader) (*store.Store, *httptest.Server) {
		t.Helper()
		st := store.New(context.Background(), store.NewMemoryKV())
		in := ingest.New(pdfmeta.NewInspector(), uploader, ingest.WithSink(st))
		s := New(st, WithIngester(in))
		ts := httptest.NewServer(s.Handler())
		t.Cleanup(ts.Close)
		return st, ts
	}
	post := func(t *testing.T, ts *httptest.Server, name, content string) *http.Response {
		t.Helper()
		body, contentType := multipartUpload(t, name, content)
		resp, err := http.Post(ts.URL+"/api/analysis/upload", contentType, body) //nolint:noctx // test
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("success stores the analysis", func(t *testing.T) {
		t.Parallel()
		st, ts := newUploadServer(t, fakeUploader{})
		resp := post(t, ts, "cv.pdf", minimalPDF)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if got := resp.Header.Get(client.RequestIDHeader); got != "req-cv.pdf" {
			t.Errorf("request ID = %q", got)
		}
		cur, ok := st.Current()
		if !ok || cur.ID() != "A-1" {
			t.Error("analysis was not stored")
		}
	})

	t.Run("non-PDF is rejected with the generic message", func(t *testing.T) {
		t.Parallel()
		st, ts := newUploadServer(t, fakeUploader{})
		resp := post(t, ts, "notes.txt", "plain text")
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, expected 422", resp.StatusCode)
		}
		var body errorBody
		decodeBody(t, resp, &body)
		if body.Detail != client.FailureMessage {
			t.Errorf("detail = %q", body.Detail)
		}
		if st.Len() != 0 {
			t.Error("rejected upload reached the store")
		}
	})

	t.Run("service failure", func(t *testing.T) {
		t.Parallel()
		_, ts := newUploadServer(t, fakeUploader{fail: true})
		resp := post(t, ts, "cv.pdf", minimalPDF)
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("status = %d, expected 502", resp.StatusCode)
		}
		var body errorBody
		decodeBody(t, resp, &body)
		if body.Detail != client.FailureMessage || body.RequestID != "req-fail" {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		t.Parallel()
		_, ts := newUploadServer(t, fakeUploader{})
		resp, err := http.Post(ts.URL+"/api/analysis/upload", "text/plain", strings.NewReader("x")) //nolint:noctx // test
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, expected 400", resp.StatusCode)
		}
	})

	t.Run("disabled without ingester", func(t *testing.T) {
		t.Parallel()
		_, _, ts := newTestServer(t)
		resp := post(t, ts, "cv.pdf", minimalPDF)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, expected 503", resp.StatusCode)
		}
	})
}

func TestUploadName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{"cv.pdf", "cv.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\cv.pdf`, "cv.pdf"},
		{"", "upload.pdf"},
		{"..", "upload.pdf"},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			if got := uploadName(tc.input); got != tc.expected {
				t.Errorf("uploadName(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	t.Parallel()

	s := New(store.New(context.Background(), store.NewMemoryKV()), WithAllowedOrigins([]string{"http://localhost:5173"}))
	testCases := []struct {
		name     string
		host     string
		origin   string
		expected bool
	}{
		{"no origin", "127.0.0.1:8787", "", true},
		{"allowed origin", "127.0.0.1:8787", "http://localhost:5173", true},
		{"same host", "127.0.0.1:8787", "http://127.0.0.1:8787", true},
		{"foreign origin", "127.0.0.1:8787", "https://evil.example", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "http://"+tc.host+"/ws", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			if got := s.checkOrigin(r); got != tc.expected {
				t.Errorf("checkOrigin = %v, expected %v", got, tc.expected)
			}
		})
	}
}

func TestWebSocket(t *testing.T) {
	t.Parallel()

	s, st, ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	readMessage := func() Message {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		return msg
	}

	hello := readMessage()
	if hello.Type != MessageConnected || hello.ClientID == "" {
		t.Fatalf("unexpected first message %+v", hello)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.Hub().Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	st.SetAnalysis(context.Background(), model.MustParseAnalysisResult(sampleAnalysis))
	set := readMessage()
	if set.Type != string(store.EventAnalysisSet) || set.AnalysisID != "A-1" || set.HistoryLen != 1 {
		t.Errorf("unexpected set message %+v", set)
	}

	st.ClearAnalysis()
	cleared := readMessage()
	if cleared.Type != string(store.EventAnalysisCleared) || cleared.AnalysisID != "" {
		t.Errorf("unexpected cleared message %+v", cleared)
	}
}

func TestServeShutdown(t *testing.T) {
	t.Parallel()

	s := New(store.New(context.Background(), store.NewMemoryKV()))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health") //nolint:noctx // test
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
