package mail

//go:generate mockgen -destination=../mocks/mock_mailer.go -package=mocks github.com/dylanc316/essayhuzz/internal/mail Mailer

import "context"

// Mailer delivers the verification and password-reset emails. Failures
// are surfaced to the caller but never roll back the user mutation
// that triggered the send.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, name, token string) error
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error
}
