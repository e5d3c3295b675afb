// Package config handles configuration for the client component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the sharepad file-sync client.
//
// Fields:
//   - ServerURL: base URL of the sharepad server.
//   - FilePath: the local text file mirrored against the shared document.
//   - StateDir: directory for the persisted client id and encryption salt.
//   - PollInterval: fixed interval between protocol rounds.
//   - DebounceInterval: local-edit quiescence window; at most one write
//     is pushed per window.
//   - Encrypt: when true, a passphrase is prompted at startup and all
//     outgoing content is sealed into an encryption envelope.
type Config struct {
	ServerURL        string
	FilePath         string
	StateDir         string
	PollInterval     time.Duration
	DebounceInterval time.Duration
	Encrypt          bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.FilePath = "SHAREPAD.txt"
	c.StateDir = ".sharepad"
	c.PollInterval = 1 * time.Second
	c.DebounceInterval = 400 * time.Millisecond
	c.Encrypt = false
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
