// Package shared holds the wire contract between the CLI and the server:
// the gRPC service path and the request/response field names.
package shared

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "shieldui.v1.AuthService"

// Method names.
const (
	MethodRegisterPasskey       = "RegisterPasskey"
	MethodRenewEnrollmentTicket = "RenewEnrollmentTicket"
	MethodSetupTotp             = "SetupTotp"
	MethodLogin                 = "Login"
	MethodSession               = "Session"
	MethodLogout                = "Logout"
	MethodExtractText           = "ExtractText"
	MethodAnalyzeText           = "AnalyzeText"
)

// FullMethod returns the wire path of method, e.g. "/shieldui.v1.AuthService/Login".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Message field names.
const (
	FieldUsername          = "username"
	FieldPasskeyCredential = "passkey_credential"
	FieldUserID            = "user_id"
	FieldEnrollmentTicket  = "enrollment_ticket"
	FieldTOTPSecret        = "totp_secret"
	FieldProvisioningURI   = "provisioning_uri"
	FieldQRCode            = "qr_code"
	FieldTOTPCode          = "totp_code"
	FieldToken             = "token"
	FieldExpiresAt         = "expires_at"
	FieldValid             = "valid"
	FieldSettingsVersion   = "settings_version"
	FieldLoggedOut         = "logged_out"
	FieldImage             = "image"
	FieldText              = "text"
	FieldDetected          = "detected"
	FieldPatternType       = "pattern_type"
	FieldConfidenceScore   = "confidence_score"
	FieldDescription       = "description"
	FieldAffectedElements  = "affected_elements"
)
