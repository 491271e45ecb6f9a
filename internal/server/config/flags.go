package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/flagx"
)

var flagNames = []string{"a", "D", "d", "k", "s", "t", "i", "g", "G", "o", "A", "l"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-D string   database driver, "pgx" or "sqlite"
//	-d string   database DSN
//	-k string   encryption key passphrase
//	-s string   enrollment ticket HMAC secret
//	-t int      enrollment ticket validity, minutes
//	-i string   TOTP issuer
//	-g string   Gemini generateContent URL
//	-G string   Gemini API key
//	-o int      OCR timeout, seconds
//	-A int      analysis timeout, seconds
//	-l string   log level
//
// os.Args is first filtered down to flagNames, so -c/-config and unknown
// flags never reach the flag set.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagNames...)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "D", config.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "encryption key")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	ticketValidity := fs.Int("t", int(config.EnrollmentTicketValidityDuration.Minutes()), "enrollment ticket validity (in minutes)")

	fs.StringVar(&config.TOTPIssuer, "i", config.TOTPIssuer, "TOTP issuer")
	fs.StringVar(&config.GeminiAPIURL, "g", config.GeminiAPIURL, "Gemini API URL")
	fs.StringVar(&config.GeminiAPIKey, "G", config.GeminiAPIKey, "Gemini API key")

	ocrTimeout := fs.Int("o", int(config.OCRTimeout.Seconds()), "OCR timeout (in seconds)")
	aiTimeout := fs.Int("A", int(config.AITimeout.Seconds()), "analysis timeout (in seconds)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.EnrollmentTicketValidityDuration = time.Duration(*ticketValidity) * time.Minute
	config.OCRTimeout = time.Duration(*ocrTimeout) * time.Second
	config.AITimeout = time.Duration(*aiTimeout) * time.Second
}
