package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dylanc316/essayhuzz/config"
	"github.com/dylanc316/essayhuzz/internal/auth/domain"
	"github.com/dylanc316/essayhuzz/internal/auth/dto"
	autherror "github.com/dylanc316/essayhuzz/internal/errors"
	"github.com/dylanc316/essayhuzz/internal/logging"
	mailer "github.com/dylanc316/essayhuzz/internal/mail"
	"github.com/dylanc316/essayhuzz/internal/ratelimit"
	"github.com/dylanc316/essayhuzz/pkg/constant"
)

type UserService struct {
	repo         domain.UserRepository
	tokenService TokenGenerator
	mailer       mailer.Mailer
	cfg          *config.Config
	log          logging.Logger
	mailLimiter  *ratelimit.KeyedLimiter
}

func NewUserService(repo domain.UserRepository, tokenService TokenGenerator,
	m mailer.Mailer, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		repo:         repo,
		tokenService: tokenService,
		mailer:       m,
		cfg:          cfg,
		log:          log,
		mailLimiter:  ratelimit.NewKeyedLimiter(time.Minute, 3),
	}
}

// Register creates an unverified user and dispatches a verification
// email. A mail failure is logged but never rolls back the created
// user; the user can always request a resend.
func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, error) {
	if err := validateRegisterInput(input, s.cfg.PasswordMinLength); err != nil {
		return nil, err
	}

	email := normalizeEmail(input.Email)

	existingUser, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingUser != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	user := &domain.User{
		ID:            uuid.New().String(),
		Email:         email,
		Name:          strings.TrimSpace(input.FirstName + " " + input.LastName),
		PasswordHash:  string(hashedPassword),
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		s.log.Error(ctx, "failed to send verification email", "email", user.Email, "error", err)
	}

	return user, nil
}

// Login checks credentials and issues a session token. Unknown email
// and wrong password are indistinguishable to the caller. A correct
// login against an unverified account gets a fresh verification email
// and a NeedsVerification result instead of a session.
func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.LoginResult, error) {
	email := normalizeEmail(input.Email)

	failures, err := s.repo.CountRecentFailures(ctx, email, time.Now().Add(-s.cfg.LoginAttemptWindow))
	if err != nil {
		return nil, err
	}
	if failures >= s.cfg.MaxLoginAttempts {
		return nil, autherror.ErrTooManyLoginAttempts
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		_ = s.repo.RecordLoginAttempt(ctx, email, input.IPAddress, false)
		return nil, autherror.ErrInvalidCredentials
	}

	if err := s.repo.RecordLoginAttempt(ctx, email, input.IPAddress, true); err != nil {
		s.log.Warn(ctx, "failed to record login attempt", "email", email, "error", err)
	}

	if !user.EmailVerified {
		if err := s.sendVerification(ctx, user); err != nil {
			s.log.Error(ctx, "failed to send verification email", "email", user.Email, "error", err)
		}
		return &dto.LoginResult{
			User:              dto.NewUserOutput(user),
			NeedsVerification: true,
		}, nil
	}

	token, err := s.tokenService.IssueSessionToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &dto.LoginResult{
		User:      dto.NewUserOutput(user),
		Token:     token,
		ExpiresIn: int(s.tokenService.SessionTTL().Seconds()),
	}, nil
}

// VerifyEmail consumes a verification token and flips the user's
// verified flag. The consume is atomic in the repository, so the same
// token presented twice succeeds at most once.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	vt, err := s.repo.ConsumeVerificationToken(ctx, token, constant.PurposeEmailVerification)
	if err != nil {
		return nil, err
	}
	if vt == nil {
		return nil, autherror.ErrInvalidToken
	}
	if vt.IsExpired() {
		// The consume already removed the row.
		return nil, autherror.ErrExpiredToken
	}

	if err := s.repo.MarkVerified(ctx, vt.UserID); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, vt.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrInvalidToken
	}

	return user, nil
}

func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	if !s.mailLimiter.Allow(email) {
		return autherror.ErrRateLimited
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrUserNotFound
	}
	if user.EmailVerified {
		return autherror.ErrAlreadyVerified
	}

	return s.sendVerification(ctx, user)
}

// ForgotPassword issues a reset token and mails it. Unknown emails are
// swallowed on purpose so the endpoint cannot be used to enumerate
// accounts.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	if !s.mailLimiter.Allow(email) {
		return autherror.ErrRateLimited
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		s.log.Info(ctx, "password reset requested for unknown email", "email", email)
		return nil
	}

	token, err := s.issueToken(ctx, user, constant.PurposePasswordReset, s.cfg.ResetTokenTTL)
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.Name, token); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	return nil
}

// ResetPassword consumes a reset token and replaces the password. A
// completed reset also marks the user verified, since it proves
// control of the mailbox.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < s.cfg.PasswordMinLength {
		return autherror.NewValidation(fmt.Sprintf("password must be at least %d characters", s.cfg.PasswordMinLength))
	}

	vt, err := s.repo.ConsumeVerificationToken(ctx, token, constant.PurposePasswordReset)
	if err != nil {
		return err
	}
	if vt == nil {
		return autherror.ErrInvalidToken
	}
	if vt.IsExpired() {
		return autherror.ErrExpiredToken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, vt.UserID, string(hashedPassword)); err != nil {
		return err
	}

	if err := s.repo.MarkVerified(ctx, vt.UserID); err != nil {
		return err
	}

	return nil
}

// IssueSession re-issues a session token for an already-loaded user.
// Used after verification so the new cookie carries the fresh flag.
func (s *UserService) IssueSession(user *domain.User) (string, int, error) {
	token, err := s.tokenService.IssueSessionToken(user)
	if err != nil {
		return "", 0, fmt.Errorf("failed to issue session token: %w", err)
	}

	return token, int(s.tokenService.SessionTTL().Seconds()), nil
}

func (s *UserService) sendVerification(ctx context.Context, user *domain.User) error {
	token, err := s.issueToken(ctx, user, constant.PurposeEmailVerification, s.cfg.VerificationTokenTTL)
	if err != nil {
		return err
	}

	return s.mailer.SendVerificationEmail(ctx, user.Email, user.Name, token)
}

func (s *UserService) issueToken(ctx context.Context, user *domain.User, purpose string, ttl time.Duration) (string, error) {
	token, err := NewOpaqueToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	vt := &domain.VerificationToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     token,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := s.repo.ReplaceVerificationToken(ctx, vt); err != nil {
		return "", err
	}

	return token, nil
}

func validateRegisterInput(input dto.RegisterInput, minPasswordLen int) error {
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" ||
		input.Email == "" || input.Password == "" {
		return autherror.NewValidation("all fields are required")
	}

	if _, err := mail.ParseAddress(input.Email); err != nil {
		return autherror.NewValidation("invalid email address")
	}

	if len(input.Password) < minPasswordLen {
		return autherror.NewValidation(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
