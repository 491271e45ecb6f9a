package config

import (
	"os"
	"time"
)

// parseEnv overlays values from the environment. ENCRYPTION_KEY,
// GEMINI_API_KEY and GEMINI_API_URL are read under their bare names so
// existing deployments keep working; everything else uses SHIELDAUTH_*.
// Unparsable durations panic, matching the other layers.
func parseEnv(config *Config) {
	lookupString(&config.EndpointAddrGRPC, "SHIELDAUTH_GRPC_ADDR")
	lookupString(&config.DatabaseDriver, "SHIELDAUTH_DATABASE_DRIVER")
	lookupString(&config.DatabaseDSN, "SHIELDAUTH_DATABASE_DSN")
	lookupString(&config.EncryptionKey, "ENCRYPTION_KEY")
	lookupString(&config.SecretKey, "SHIELDAUTH_SECRET_KEY")
	lookupString(&config.TOTPIssuer, "SHIELDAUTH_TOTP_ISSUER")
	lookupString(&config.GeminiAPIURL, "GEMINI_API_URL")
	lookupString(&config.GeminiAPIKey, "GEMINI_API_KEY")
	lookupString(&config.LogLevel, "SHIELDAUTH_LOG_LEVEL")

	lookupDuration(&config.EnrollmentTicketValidityDuration, "SHIELDAUTH_ENROLLMENT_TICKET_TTL")
	lookupDuration(&config.OCRTimeout, "SHIELDAUTH_OCR_TIMEOUT")
	lookupDuration(&config.AITimeout, "SHIELDAUTH_AI_TIMEOUT")
}

func lookupString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func lookupDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
