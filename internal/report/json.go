package report

import (
	"encoding/json"
	"io"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the full report in JSON format.
func (w *JSONWriter) Write(rep *Report) (int, error) {
	return w.writeJSON(rep)
}

// WriteSummary outputs only the summary in JSON format.
func (w *JSONWriter) WriteSummary(summary *Summary) (int, error) {
	return w.writeJSON(summary)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Trailing newline for terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps the full report with the generating version and its
// summary.
type JSONReport struct {
	// Version is the PersonaShield version that generated this report.
	Version string `json:"version"`

	Report *Report `json:"report"`

	Summary *Summary `json:"summary,omitempty"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(rep *Report, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Report:  rep,
		Summary: NewSummary(rep),
	}
}

// FullJSONWriter outputs complete reports with the metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the full report wrapped with metadata.
func (w *FullJSONWriter) Write(rep *Report) (int, error) {
	return w.writeJSON(NewJSONReport(rep, w.version))
}
