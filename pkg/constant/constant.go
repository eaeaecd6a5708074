package constant

// Token purposes stored in the verification_tokens table.
const (
	PurposeEmailVerification = "email_verification"
	PurposePasswordReset     = "password_reset"
)

// SessionCookieName is the HTTP-only cookie carrying the session JWT.
const SessionCookieName = "auth_token"

// VerificationTokenBytes is the entropy of an opaque token before hex
// encoding, so the wire form is twice this many characters.
const VerificationTokenBytes = 32
