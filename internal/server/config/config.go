// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment and command-line flags.
package config

import "time"

// Config holds runtime settings for the ShieldUI authentication server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the public gRPC endpoint.
//   - DatabaseDriver / DatabaseDSN: "pgx" (PostgreSQL) or "sqlite" plus its DSN.
//   - EncryptionKey: passphrase the secret cipher key is derived from.
//   - SecretKey: HMAC secret for signing enrollment tickets (HS256).
//   - EnrollmentTicketValidityDuration: lifetime of a TOTP enrollment ticket.
//   - TOTPIssuer: issuer label shown by authenticator apps.
//   - GeminiAPIURL / GeminiAPIKey: generateContent endpoint for OCR and analysis.
//   - OCRTimeout / AITimeout: per-attempt deadlines for the two upstream calls.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	EndpointAddrGRPC                 string
	DatabaseDriver                   string
	DatabaseDSN                      string
	EncryptionKey                    string
	SecretKey                        string
	EnrollmentTicketValidityDuration time.Duration
	TOTPIssuer                       string
	GeminiAPIURL                     string
	GeminiAPIKey                     string
	OCRTimeout                       time.Duration
	AITimeout                        time.Duration
	LogLevel                         string
}

// DefaultGeminiAPIURL is the generateContent endpoint used when none is configured.
const DefaultGeminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash-exp:generateContent"

// LoadDefaults populates Config with development defaults.
// NOTE: the keys are insecure for production and must be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:data/shieldauth.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	c.EncryptionKey = "dev-encryption-key-32-bytes-long"
	c.SecretKey = "secretKey"
	c.EnrollmentTicketValidityDuration = 10 * time.Minute
	c.TOTPIssuer = "ShieldUI"
	c.GeminiAPIURL = DefaultGeminiAPIURL
	c.GeminiAPIKey = ""
	c.OCRTimeout = 15 * time.Second
	c.AITimeout = 15 * time.Second
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
