package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".personashield"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .personashield configuration file.
// Zero values leave the corresponding setting unchanged.
type File struct {
	API        APISection        `yaml:"api,omitempty"`
	Upload     UploadSection     `yaml:"upload,omitempty"`
	Simulation SimulationSection `yaml:"simulation,omitempty"`
	Dashboard  DashboardSection  `yaml:"dashboard,omitempty"`
	Server     ServerSection     `yaml:"server,omitempty"`

	// DataDir overrides the directory holding the database.
	DataDir string `yaml:"dataDir,omitempty"`
}

// APISection configures the analysis service client.
type APISection struct {
	BaseURL   string        `yaml:"baseURL,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Proxy     string        `yaml:"proxy,omitempty"`
	UserAgent string        `yaml:"userAgent,omitempty"`
}

// UploadSection configures uploads.
type UploadSection struct {
	BatchSize   int   `yaml:"batchSize,omitempty"`
	MaxFileSize int64 `yaml:"maxFileSize,omitempty"`
}

// SimulationSection configures the attack simulation pacing.
type SimulationSection struct {
	ReconInterval     time.Duration `yaml:"reconInterval,omitempty"`
	NarrativeInterval time.Duration `yaml:"narrativeInterval,omitempty"`
	BodyInterval      time.Duration `yaml:"bodyInterval,omitempty"`
	CounterInterval   time.Duration `yaml:"counterInterval,omitempty"`
	ImpactDivisor     int           `yaml:"impactDivisor,omitempty"`
}

// DashboardSection configures dashboard rendering.
type DashboardSection struct {
	GaugeRadius float64 `yaml:"gaugeRadius,omitempty"`
}

// ServerSection configures `serve`.
type ServerSection struct {
	Listen         string   `yaml:"listen,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Apply overrides c with every non-zero setting of the file.
func (f *File) Apply(c *Config) {
	if f == nil {
		return
	}
	setString(&c.APIBaseURL, f.API.BaseURL)
	setString(&c.ProxyAddress, f.API.Proxy)
	setString(&c.UserAgent, f.API.UserAgent)
	setString(&c.DataDir, f.DataDir)
	setString(&c.ListenAddress, f.Server.Listen)
	setDuration(&c.Timeout, f.API.Timeout)
	setDuration(&c.ReconInterval, f.Simulation.ReconInterval)
	setDuration(&c.NarrativeInterval, f.Simulation.NarrativeInterval)
	setDuration(&c.BodyInterval, f.Simulation.BodyInterval)
	setDuration(&c.CounterInterval, f.Simulation.CounterInterval)

	if f.Upload.BatchSize != 0 {
		c.BatchSize = f.Upload.BatchSize
	}
	if f.Upload.MaxFileSize != 0 {
		c.MaxFileSize = f.Upload.MaxFileSize
	}
	if f.Simulation.ImpactDivisor != 0 {
		c.ImpactDivisor = f.Simulation.ImpactDivisor
	}
	if f.Dashboard.GaugeRadius != 0 {
		c.GaugeRadius = f.Dashboard.GaugeRadius
	}
	if len(f.Server.AllowedOrigins) > 0 {
		c.AllowedOrigins = f.Server.AllowedOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .personashield in the current directory
// 3. Look for .personashield in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

func validBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
