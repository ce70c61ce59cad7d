package config

import "time"

// Config holds runtime settings for the PocketBank CLI.
//
// Fields:
//   - ServerBaseURL: base URL of the backend, e.g. "http://127.0.0.1:8080".
//   - RequestTimeout: bounded wait per request; exceeding it surfaces as
//     unreachable.
//   - DataDir: directory (under the working directory) holding the local
//     database and the device secret.
type Config struct {
	ServerBaseURL  string
	RequestTimeout time.Duration
	DataDir        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 15 * time.Second
	c.DataDir = "data"
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
