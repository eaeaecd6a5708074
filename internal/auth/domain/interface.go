package domain

//go:generate mockgen -destination=../../mocks/mock_user_repository.go -package=mocks github.com/dylanc316/essayhuzz/internal/auth/domain UserRepository

import (
	"context"
	"time"
)

type UserRepository interface {
	// GetByEmail returns (nil, nil) when no user has the email. The
	// lookup is case-insensitive.
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	MarkVerified(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// ReplaceVerificationToken deletes every token for the same
	// (user, purpose) and inserts the new one, atomically.
	ReplaceVerificationToken(ctx context.Context, vt *VerificationToken) error

	// ConsumeVerificationToken deletes the token and returns it in one
	// atomic step. Returns (nil, nil) when no row matched, so two
	// concurrent consumers of the same token cannot both get a row.
	// Expired rows are returned too; expiry is the caller's check.
	ConsumeVerificationToken(ctx context.Context, token, purpose string) (*VerificationToken, error)

	RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error

	// CountRecentFailures counts failed attempts for the email since
	// the cutoff, stopping at the most recent successful one.
	CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error)
}
