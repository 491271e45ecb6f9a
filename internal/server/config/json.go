package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/shieldauth/internal/flagx"
	"github.com/dmitrijs2005/shieldauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15s" and integer nanoseconds are accepted.
// Only keys present in the file override the current values.
type JsonConfig struct {
	EndpointAddrGRPC                 *string         `json:"endpoint_addr_grpc"`
	DatabaseDriver                   *string         `json:"database_driver"`
	DatabaseDSN                      *string         `json:"database_dsn"`
	EncryptionKey                    *string         `json:"encryption_key"`
	SecretKey                        *string         `json:"secret_key"`
	EnrollmentTicketValidityDuration *timex.Duration `json:"enrollment_ticket_validity_duration"`
	TOTPIssuer                       *string         `json:"totp_issuer"`
	GeminiAPIURL                     *string         `json:"gemini_api_url"`
	GeminiAPIKey                     *string         `json:"gemini_api_key"`
	OCRTimeout                       *timex.Duration `json:"ocr_timeout"`
	AITimeout                        *timex.Duration `json:"ai_timeout"`
	LogLevel                         *string         `json:"log_level"`
}

// parseJson loads configuration values from the file named by -c or -config.
// Without the flag nothing is loaded. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.EncryptionKey, c.EncryptionKey)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TOTPIssuer, c.TOTPIssuer)
	setString(&config.GeminiAPIURL, c.GeminiAPIURL)
	setString(&config.GeminiAPIKey, c.GeminiAPIKey)
	setString(&config.LogLevel, c.LogLevel)

	if c.EnrollmentTicketValidityDuration != nil {
		config.EnrollmentTicketValidityDuration = c.EnrollmentTicketValidityDuration.Duration
	}
	if c.OCRTimeout != nil {
		config.OCRTimeout = c.OCRTimeout.Duration
	}
	if c.AITimeout != nil {
		config.AITimeout = c.AITimeout.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
