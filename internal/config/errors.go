package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidAPIURL is returned when the analysis service URL is not an
	// absolute http(s) URL.
	ErrInvalidAPIURL = errors.New("invalid API URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxFileSize is returned when the maximum PDF size is not positive.
	ErrInvalidMaxFileSize = errors.New("invalid max file size: must be positive")

	// ErrInvalidInterval is returned when a simulation interval or the
	// impact divisor is not positive.
	ErrInvalidInterval = errors.New("invalid simulation pacing: intervals and divisor must be positive")

	// ErrConflictingProxy is returned when --tor and --proxy are both set.
	ErrConflictingProxy = errors.New("conflicting proxies: --tor and --proxy cannot be used together")
)
