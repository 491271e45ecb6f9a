package config

import (
	"os"
	"time"
)

// parseEnv overlays values from SHIELDAUTH_* variables. Empty values are
// ignored; an unparsable timeout panics.
func parseEnv(cfg *Config) {
	if v := os.Getenv("SHIELDAUTH_SERVER_ADDR"); v != "" {
		cfg.ServerEndpointAddr = v
	}
	if v := os.Getenv("SHIELDAUTH_STATE_DSN"); v != "" {
		cfg.StateDSN = v
	}
	if v := os.Getenv("SHIELDAUTH_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		cfg.RequestTimeout = d
	}
}
