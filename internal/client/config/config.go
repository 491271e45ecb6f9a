package config

import "time"

// Config holds runtime settings for the CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the authentication server.
//   - StateDSN: SQLite DSN of the local session store.
//   - RequestTimeout: deadline for a single command's server round trip.
type Config struct {
	ServerEndpointAddr string
	StateDSN           string
	RequestTimeout     time.Duration
}

// StateDirName is the directory under $HOME used when StateDSN is empty.
const StateDirName = ".shieldauth"

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.StateDSN = ""
	c.RequestTimeout = 2 * time.Minute
}

// LoadConfig applies defaults, then the JSON file and the environment.
// Flags are applied later, when the CLI parses its arguments.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	return cfg
}
