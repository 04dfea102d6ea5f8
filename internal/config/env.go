package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIURL  = "PERSONASHIELD_API_URL"
	EnvProxy   = "PERSONASHIELD_PROXY"
	EnvDataDir = "PERSONASHIELD_DATA_DIR"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are given) into the process environment. Variables that are already set
// win, and a missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides c with the PERSONASHIELD_* variables that are set and
// non-empty. A nil lookup reads the process environment.
func ApplyEnv(c *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	setString(&c.APIBaseURL, get(EnvAPIURL))
	setString(&c.ProxyAddress, get(EnvProxy))
	setString(&c.DataDir, get(EnvDataDir))
}
