// Package config provides the configuration of PersonaShield: the analysis
// service endpoint and transport, upload limits, the attack simulation
// pacing and report preferences.
//
// Settings are layered: NewConfig defaults, then the YAML file found by
// FindConfigFile, then PERSONASHIELD_* environment variables (optionally
// from a .env file), then command-line flags.
package config
