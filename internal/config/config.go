package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultAPIBaseURL is the hosted analysis service.
	DefaultAPIBaseURL = "https://personashield.onrender.com"

	// DefaultTimeout covers the whole upload round trip. The service runs
	// several LLM prompts per document, so answers routinely take a minute.
	DefaultTimeout = 120 * time.Second

	// DefaultBatchSize is the number of concurrent uploads for `upload a.pdf b.pdf`.
	DefaultBatchSize = 4

	// DefaultMaxFileSize is the largest PDF accepted by the pre-flight check.
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB

	// AppName is the application name used for XDG directory paths.
	AppName = "personashield"

	// DefaultUserAgent identifies the client in HTTP requests.
	DefaultUserAgent = "PersonaShield/1.0 (+https://github.com/nao1215/personashield)"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap when uploading with --tor.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultListenAddress is where `serve` listens. Loopback only, since
	// the API exposes the stored analyses without authentication.
	DefaultListenAddress = "127.0.0.1:8787"

	// Attack simulation pacing.
	DefaultReconInterval     = 1500 * time.Millisecond
	DefaultNarrativeInterval = 30 * time.Millisecond
	DefaultBodyInterval      = 20 * time.Millisecond
	DefaultCounterInterval   = 50 * time.Millisecond
	DefaultImpactDivisor     = 30

	// DefaultGaugeRadius is the radius of the correlation-depth ring.
	DefaultGaugeRadius = 80
)

// Config holds all configuration options for PersonaShield.
// It is populated from defaults, the config file, the environment and CLI
// flags, in that order, and passed down explicitly.
type Config struct {
	// APIBaseURL is the base URL of the analysis service, without the
	// /api/v1 path.
	APIBaseURL string

	// Timeout is the upload request timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with uploads.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy ("host:port") for uploads.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and uploads through it.
	// Mutually exclusive with ProxyAddress.
	UseTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// BatchSize is the number of concurrent uploads.
	BatchSize int

	// MaxFileSize is the largest accepted PDF in bytes.
	MaxFileSize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .personashield is searched in the current directory and
	// then in the user's home directory.
	ConfigFilePath string

	// DataDir holds the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/personashield on Linux).
	DataDir string

	// JSONReport selects JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects GitHub Flavored Markdown report output.
	MarkdownReport bool

	// ReportFile is the output file path for the report; stdout when empty.
	ReportFile string

	// ListenAddress is the `serve` listen address.
	ListenAddress string

	// AllowedOrigins are the CORS origins accepted by `serve`.
	AllowedOrigins []string

	// Attack simulation pacing.
	ReconInterval     time.Duration
	NarrativeInterval time.Duration
	BodyInterval      time.Duration
	CounterInterval   time.Duration
	ImpactDivisor     int

	// GaugeRadius is the radius of the correlation-depth ring.
	GaugeRadius float64
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		APIBaseURL:        DefaultAPIBaseURL,
		Timeout:           DefaultTimeout,
		UserAgent:         DefaultUserAgent,
		TorStartupTimeout: DefaultTorStartupTimeout,
		BatchSize:         DefaultBatchSize,
		MaxFileSize:       DefaultMaxFileSize,
		DataDir:           XDGDataDir(),
		ListenAddress:     DefaultListenAddress,
		AllowedOrigins:    []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		ReconInterval:     DefaultReconInterval,
		NarrativeInterval: DefaultNarrativeInterval,
		BodyInterval:      DefaultBodyInterval,
		CounterInterval:   DefaultCounterInterval,
		ImpactDivisor:     DefaultImpactDivisor,
		GaugeRadius:       DefaultGaugeRadius,
	}
}

// XDGDataDir returns the XDG data directory for PersonaShield.
// On Linux: ~/.local/share/personashield
// On macOS: ~/Library/Application Support/personashield
// On Windows: %LOCALAPPDATA%\personashield
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for PersonaShield.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if !validBaseURL(c.APIBaseURL) {
		return ErrInvalidAPIURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxFileSize <= 0 {
		return ErrInvalidMaxFileSize
	}

	if c.ReconInterval <= 0 || c.NarrativeInterval <= 0 || c.BodyInterval <= 0 ||
		c.CounterInterval <= 0 || c.ImpactDivisor <= 0 {
		return ErrInvalidInterval
	}

	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}

	return nil
}
