package pdfmeta

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/personashield/internal/model"
)

// DefaultMaxSize is the largest document accepted for upload.
const DefaultMaxSize int64 = 10 * 1024 * 1024

// headerWindow is how far into the file the %PDF- header may appear.
const headerWindow = 1024

var pdfMagic = []byte("%PDF-")

// Field is one extracted metadata value.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Result is the outcome of inspecting one document.
type Result struct {
	// Name is the base name of the file.
	Name string `json:"name"`

	Size int64 `json:"size"`

	// Fingerprint is the hex SHA3-256 digest of the file contents.
	Fingerprint string `json:"fingerprint"`

	// Version is the PDF header version, e.g. "1.7".
	Version string `json:"version,omitempty"`

	// Metadata lists Info, XMP and EXIF values in extraction order.
	Metadata []Field `json:"metadata"`

	// Findings are sorted by severity, most severe first.
	Findings []model.Finding `json:"findings"`
}

// MaxSeverity returns the highest severity among the findings, or
// SeverityInfo when there are none.
func (r *Result) MaxSeverity() model.Severity {
	highest := model.SeverityInfo
	for _, f := range r.Findings {
		if f.Severity > highest {
			highest = f.Severity
		}
	}
	return highest
}

// Inspector checks documents before upload.
type Inspector struct {
	maxSize int64
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithMaxSize sets the largest accepted document in bytes.
func WithMaxSize(n int64) Option {
	return func(i *Inspector) {
		if n > 0 {
			i.maxSize = n
		}
	}
}

// NewInspector creates an Inspector.
func NewInspector(opts ...Option) *Inspector {
	i := &Inspector{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// MaxSize returns the configured size limit.
func (i *Inspector) MaxSize() int64 {
	return i.maxSize
}

// InspectFile reads path and inspects it. The file is read at most up to the
// size limit plus one byte so that an oversized file is rejected without
// loading it completely.
func (i *Inspector) InspectFile(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, i.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return i.Inspect(filepath.Base(path), data)
}

// Inspect checks data, named name, and extracts its identifying metadata.
func (i *Inspector) Inspect(name string, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > i.maxSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, name, i.maxSize)
	}

	version, ok := headerVersion(data)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, name)
	}

	sum := sha3.Sum256(data)
	result := &Result{
		Name:        name,
		Size:        int64(len(data)),
		Fingerprint: hex.EncodeToString(sum[:]),
		Version:     version,
		Metadata:    []Field{},
	}

	c := newCollector()
	for _, field := range extractInfo(data) {
		result.Metadata = append(result.Metadata, field)
		c.addPDFField(field)
	}
	for _, field := range extractXMP(data) {
		result.Metadata = append(result.Metadata, field)
		c.addPDFField(field)
	}
	for _, field := range extractEXIF(data) {
		result.Metadata = append(result.Metadata, field)
		c.addEXIFField(field)
	}
	c.add("document_fingerprint", result.Fingerprint)

	result.Findings = c.sorted()
	return result, nil
}

// headerVersion finds the %PDF-x.y header near the start of data.
func headerVersion(data []byte) (string, bool) {
	window := data[:min(len(data), headerWindow)]
	idx := bytes.Index(window, pdfMagic)
	if idx < 0 {
		return "", false
	}
	rest := data[idx+len(pdfMagic):]
	end := bytes.IndexAny(rest, "\r\n \t%")
	if end < 0 {
		end = min(len(rest), 8)
	}
	return string(rest[:end]), true
}

// collector turns metadata fields into findings, dropping duplicates.
type collector struct {
	seen     map[string]bool
	findings []model.Finding
}

func newCollector() *collector {
	return &collector{seen: make(map[string]bool)}
}

func (c *collector) add(findingType, value string) {
	key := findingType + "\x00" + value
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.findings = append(c.findings, model.NewFinding(findingType, value))
}

// addPDFField maps an Info or XMP field to a finding type.
func (c *collector) addPDFField(f Field) {
	// Values shorter than three characters are almost always placeholders.
	if len(f.Value) < 3 {
		return
	}
	switch f.Key {
	case "author":
		c.add("pdf_author", f.Value)
	case "xmp_creator":
		c.add("xmp_creator", f.Value)
	case "creator", "xmp_tool":
		c.add("pdf_creator", f.Value)
	case "producer", "xmp_producer":
		c.add("pdf_producer", f.Value)
	case "title":
		c.add("pdf_title", f.Value)
	case "xmp_document_id", "xmp_instance_id", "xmp_original_document_id":
		c.add("xmp_document_id", f.Value)
	case "creation_date", "mod_date":
		if hasTimezone(f.Value) {
			c.add("pdf_dates", f.Value)
		}
	}
}

// addEXIFField maps an EXIF tag to a finding type.
func (c *collector) addEXIFField(f Field) {
	tag := strings.TrimPrefix(f.Key, "exif_")
	value := tag + ": " + f.Value
	switch tag {
	case "GPSLatitude", "GPSLongitude":
		c.add("exif_gps", value)
	case "Make", "Model":
		c.add("exif_camera", value)
	case "SerialNumber", "CameraSerialNumber", "BodySerialNumber", "LensSerialNumber":
		c.add("exif_serial", value)
	case "Artist", "Author", "Copyright", "XPAuthor":
		c.add("exif_author", value)
	case "DateTimeOriginal", "DateTimeDigitized", "DateTime":
		c.add("exif_datetime", value)
	}
}

// sorted returns the findings, most severe first. Equal severities keep
// extraction order.
func (c *collector) sorted() []model.Finding {
	out := slices.Clone(c.findings)
	if out == nil {
		return []model.Finding{}
	}
	slices.SortStableFunc(out, func(a, b model.Finding) int {
		return int(b.Severity) - int(a.Severity)
	})
	return out
}

// hasTimezone reports whether a PDF date ("D:20240115103045+09'00'")
// records an offset. A trailing Z is UTC and reveals nothing.
func hasTimezone(date string) bool {
	date = strings.TrimPrefix(date, "D:")
	return strings.ContainsAny(date, "+-")
}
