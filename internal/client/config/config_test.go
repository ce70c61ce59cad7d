package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerBaseURL)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, "data", c.DataDir)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()
	os.Args = []string{"cmd"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerBaseURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}

func TestParseFlags(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	tests := []struct {
		name        string
		args        []string
		expectPanic bool
		expected    Config
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "http://bank.local:9090", "-t", "30", "-d", "local"},
			expected: Config{
				ServerBaseURL:  "http://bank.local:9090",
				RequestTimeout: 30 * time.Second,
				DataDir:        "local",
			},
		},
		{
			name:        "bad timeout",
			args:        []string{"cmd", "-t", "abc"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}

			require.NotPanics(t, func() { parseFlags(config) })
			assert.Equal(t, tt.expected, *config)
		})
	}
}

func TestParseJson(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_base_url": "http://json.local:8081",
		"request_timeout": "20s"
	}`), 0o600))

	os.Args = []string{"cmd", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "http://json.local:8081", cfg.ServerBaseURL)
	assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	// absent keys keep defaults
	assert.Equal(t, "data", cfg.DataDir)
}

func TestParseJson_FlagsOverride(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_base_url": "http://json.local:8081"}`), 0o600))

	os.Args = []string{"cmd", "-c", path, "-a", "http://flag.local:9000"}

	cfg := LoadConfig()
	assert.Equal(t, "http://flag.local:9000", cfg.ServerBaseURL)
}
