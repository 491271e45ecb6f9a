// Package config loads runtime configuration for the shieldauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c <path>.
//  3. Environment: SHIELDAUTH_SERVER_ADDR, SHIELDAUTH_STATE_DSN, SHIELDAUTH_REQUEST_TIMEOUT.
//  4. Command-line flags bound by the CLI through (*Config).BindFlags.
//
// # JSON schema
//
// Durations use timex.Duration, so they may be strings like "90s" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "state_dsn": "/home/me/.shieldauth/state.db",
//	  "request_timeout": "2m"
//	}
//
// An empty StateDSN means "state.db" under ~/.shieldauth.
package config
