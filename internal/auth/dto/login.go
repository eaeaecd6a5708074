package dto

type LoginInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
}

// LoginResult is what the service hands back to the handler. Exactly
// one of Token / NeedsVerification is meaningful: an unverified user
// with correct credentials gets NeedsVerification instead of a session.
type LoginResult struct {
	User              UserOutput
	Token             string
	ExpiresIn         int // seconds, cookie max-age
	NeedsVerification bool
}
