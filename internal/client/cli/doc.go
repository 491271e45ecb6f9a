// Package cli provides the shieldauth command-line client.
//
// Commands (cobra):
//
//	register      create an account from a username and passkey credential
//	setup-totp    enroll TOTP with the ticket saved by register
//	login         passkey + TOTP code; stores the bearer session locally
//	whoami        show the identity behind the stored session
//	logout        revoke the stored session
//	analyze       OCR a screenshot and/or classify text for dark patterns
//
// The passkey credential is read from --passkey-file or prompted for without
// echo. See Execute.
package cli
