package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaskValue replaces credentials.
const MaskValue = "***REDACTED***"

// PIIMask replaces personal data taken from a resume or an analysis.
const PIIMask = "[pii]"

// MaxValueLength is the longest string value written as is. Longer values,
// typically analysis narratives, are cut and marked.
const MaxValueLength = 256

// keyClass tells how an attribute is treated by its key alone.
type keyClass int

const (
	keyPlain keyClass = iota
	keySecret
	keyPersonal
)

// secretKeys are masked whatever their value.
var secretKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"password":            true,
	"confirm":             true,
	"confirmation":        true,
	"token":               true,
	"secret":              true,
	"session":             true,
}

// personalKeys name identity fields found in resumes and in the
// document metadata that pre-flight inspection extracts.
var personalKeys = map[string]bool{
	"email":       true,
	"phone":       true,
	"address":     true,
	"full_name":   true,
	"author":      true,
	"xmp_creator": true,
	"linkedin":    true,
	"location":    true,
	"gps":         true,
}

var (
	secretFragments   = []string{"password", "passwd", "secret", "token", "credential", "cookie", "private", "auth"}
	personalFragments = []string{"email", "phone", "author", "gps"}
)

// secretValues match credentials regardless of the key.
var secretValues = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),
	regexp.MustCompile(`^(sk|pk|rk)[-_][A-Za-z0-9_-]{16,}$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// personalSpans match personal data inside longer text such as an error
// quoting a service response. Only the matched span is replaced.
var personalSpans = []*regexp.Regexp{
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	// "+1 555 123 4567", "(555) 123-4567", "090-1234-5678"
	regexp.MustCompile(`(?:\+\d{1,3}[ .-]?)?\(?\b\d{2,4}\)?[ .-]\d{3,4}[ .-]\d{3,4}\b`),
	regexp.MustCompile(`(?i)linkedin\.com/in/[A-Za-z0-9_-]+`),
}

// SecureHandler is an slog.Handler that strips credentials and resume PII
// from records before the wrapped handler sees them.
//
// Attributes are judged by key first (credentials become MaskValue,
// identity fields become PIIMask), then by value. Messages, string values
// and errors have embedded emails, phone numbers and profile URLs replaced,
// and strings longer than MaxValueLength are cut.
type SecureHandler struct {
	next slog.Handler
}

// NewSecureHandler wraps next, or slog.Default().Handler() when next is nil.
func NewSecureHandler(next slog.Handler) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, scrubText(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(sanitize(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		clean = append(clean, sanitize(a))
	}
	return &SecureHandler{next: h.next.WithAttrs(clean)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name)}
}

func sanitize(a slog.Attr) slog.Attr {
	// LogValuers such as auth.User decide what they expose first.
	a.Value = a.Value.Resolve()

	switch classifyKey(a.Key) {
	case keySecret:
		return slog.String(a.Key, MaskValue)
	case keyPersonal:
		return slog.String(a.Key, PIIMask)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		clean := make([]slog.Attr, 0, len(group))
		for _, g := range group {
			clean = append(clean, sanitize(g))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	case slog.KindString:
		s := a.Value.String()
		if isSecretValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		return slog.String(a.Key, scrubText(s))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok && err != nil {
			if msg := err.Error(); scrubText(msg) != msg {
				return slog.String(a.Key, scrubText(msg))
			}
		}
	}
	return a
}

func classifyKey(key string) keyClass {
	k := strings.ToLower(key)
	switch {
	case secretKeys[k]:
		return keySecret
	case personalKeys[k], containsAny(k, personalFragments):
		return keyPersonal
	case containsAny(k, secretFragments):
		return keySecret
	default:
		return keyPlain
	}
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func isSecretValue(s string) bool {
	for _, re := range secretValues {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// scrubText replaces personal data spans in s and cuts it to MaxValueLength.
func scrubText(s string) string {
	for _, re := range personalSpans {
		s = re.ReplaceAllString(s, PIIMask)
	}
	if utf8.RuneCountInString(s) > MaxValueLength {
		s = string([]rune(s)[:MaxValueLength]) + "…(truncated)"
	}
	return s
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}

// NewSecureLogger returns a text logger on w that logs warnings and above,
// or everything when verbose. The result can be handed to tornago as is.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output, used by the
// serve command so request logs can be collected.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}
