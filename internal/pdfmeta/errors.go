package pdfmeta

import "errors"

var (
	// ErrNotPDF is returned when the file does not start with a PDF header.
	ErrNotPDF = errors.New("not a PDF document")

	// ErrEmpty is returned for a zero-length file.
	ErrEmpty = errors.New("document is empty")

	// ErrTooLarge is returned when the file exceeds the inspector's limit.
	ErrTooLarge = errors.New("document exceeds the size limit")
)
