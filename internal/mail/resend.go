package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ResendMailer sends mail through the Resend API.
type ResendMailer struct {
	client  *resend.Client
	sender  string
	baseURL string
}

func NewResendMailer(apiKey, sender, baseURL string) *ResendMailer {
	return &ResendMailer{
		client:  resend.NewClient(apiKey),
		sender:  sender,
		baseURL: baseURL,
	}
}

func (m *ResendMailer) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/verifyemail?token=%s", m.baseURL, token)

	params := &resend.SendEmailRequest{
		From:    m.sender,
		To:      []string{to},
		Subject: "Verify your EssayHuzz account",
		Html: fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Verify your email for EssayHuzz</h2>
  <p>Hello %s,</p>
  <p>Please click the link below to verify your email address:</p>
  <a href="%s" style="display: inline-block; background-color: #2563eb; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px;">Verify Email</a>
  <p>If you didn't request this verification, you can safely ignore this email.</p>
  <p>Thanks,<br>The EssayHuzz Team</p>
</div>`, name, link),
		Text: fmt.Sprintf("Hello %s,\n\nVerify your EssayHuzz account: %s\n", name, link),
	}

	_, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}

func (m *ResendMailer) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, token)

	params := &resend.SendEmailRequest{
		From:    m.sender,
		To:      []string{to},
		Subject: "Reset your EssayHuzz password",
		Html: fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Reset your EssayHuzz password</h2>
  <p>Hello %s,</p>
  <p>Click the link below to choose a new password. The link expires in one hour.</p>
  <a href="%s" style="display: inline-block; background-color: #2563eb; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px;">Reset Password</a>
  <p>If you didn't request a reset, you can safely ignore this email.</p>
  <p>Thanks,<br>The EssayHuzz Team</p>
</div>`, name, link),
		Text: fmt.Sprintf("Hello %s,\n\nReset your EssayHuzz password: %s\n", name, link),
	}

	_, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	return nil
}
