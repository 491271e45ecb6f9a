package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()

	t.Run("no config flag leaves values", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{ServerEndpointAddr: "keep"}
		parseJson(cfg)
		assert.Equal(t, "keep", cfg.ServerEndpointAddr)
	})

	t.Run("present keys override", func(t *testing.T) {
		path := writeTempJSON(t, dir, "full.json", map[string]any{
			"server_endpoint_addr": "www.example:9000",
			"state_dsn":            "/var/lib/state.db",
			"request_timeout":      "90s",
		})
		os.Args = []string{"testbin", "-c", path}

		cfg := &Config{}
		parseJson(cfg)
		assert.Equal(t, "www.example:9000", cfg.ServerEndpointAddr)
		assert.Equal(t, "/var/lib/state.db", cfg.StateDSN)
		assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	})

	t.Run("absent keys keep defaults", func(t *testing.T) {
		path := writeTempJSON(t, dir, "partial.json", map[string]any{
			"state_dsn": "x.db",
		})
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)
		assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
		assert.Equal(t, "x.db", cfg.StateDSN)
		assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
