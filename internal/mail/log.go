package mail

import (
	"context"
	"fmt"

	"github.com/dylanc316/essayhuzz/internal/logging"
)

// LogMailer logs the links instead of sending mail. It stands in for
// the real transport in development, where no RESEND_API_KEY is set.
type LogMailer struct {
	log     logging.Logger
	baseURL string
}

func NewLogMailer(log logging.Logger, baseURL string) *LogMailer {
	return &LogMailer{log: log, baseURL: baseURL}
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	m.log.Info(ctx, "verification email (dev transport)",
		"to", to,
		"link", fmt.Sprintf("%s/verifyemail?token=%s", m.baseURL, token),
	)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	m.log.Info(ctx, "password reset email (dev transport)",
		"to", to,
		"link", fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, token),
	)
	return nil
}
