package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/personashield/internal/config"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "init" {
			t.Errorf("expected use 'init', got %q", cmd.Use)
		}
	})

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
		if flag.DefValue != configFileName {
			t.Errorf("expected default %q, got %q", configFileName, flag.DefValue)
		}
	})

	t.Run("has force flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("force")
		if flag == nil {
			t.Fatal("expected force flag")
		}
		if flag.Shorthand != "f" {
			t.Errorf("expected shorthand 'f', got %q", flag.Shorthand)
		}
	})
}

// TestRunInitCmd tests the init command execution.
func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates a loadable config file", func(t *testing.T) {
		t.Parallel()
		outputPath := filepath.Join(t.TempDir(), "nested", ".personashield")

		if _, _, err := execute(t, "init", "-o", outputPath); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := os.Stat(outputPath)
		if err != nil {
			t.Fatalf("expected config file to be created: %v", err)
		}
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			t.Errorf("config file should be private, got %o", perm)
		}

		file, err := config.LoadConfigFile(outputPath)
		if err != nil {
			t.Fatalf("generated file does not load: %v", err)
		}
		cfg := config.NewConfig()
		file.Apply(cfg)
		if err := cfg.Validate(); err != nil {
			t.Errorf("generated file yields an invalid config: %v", err)
		}
		if cfg.APIBaseURL != config.DefaultAPIBaseURL || cfg.ImpactDivisor != config.DefaultImpactDivisor {
			t.Errorf("generated file does not carry the defaults: %+v", cfg)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		t.Parallel()
		outputPath := filepath.Join(t.TempDir(), ".personashield")
		if err := os.WriteFile(outputPath, []byte("existing"), 0o600); err != nil {
			t.Fatal(err)
		}

		_, _, err := execute(t, "init", "-o", outputPath)
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected an already-exists error, got %v", err)
		}
		content, _ := os.ReadFile(outputPath)
		if string(content) != "existing" {
			t.Error("existing file was modified")
		}
	})

	t.Run("force overwrites", func(t *testing.T) {
		t.Parallel()
		outputPath := filepath.Join(t.TempDir(), ".personashield")
		if err := os.WriteFile(outputPath, []byte("existing"), 0o600); err != nil {
			t.Fatal(err)
		}

		if _, _, err := execute(t, "init", "-o", outputPath, "-f"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, _ := os.ReadFile(outputPath)
		if !strings.Contains(string(content), "baseURL") {
			t.Error("file was not overwritten with the template")
		}
	})
}
