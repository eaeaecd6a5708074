package domain

import "time"

type User struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VerificationToken is a single-use opaque token mailed to a user,
// scoped by purpose. At most one active token exists per
// (user, purpose); issuing a new one deletes its predecessors.
type VerificationToken struct {
	ID        string
	UserID    string
	Token     string
	Purpose   string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t *VerificationToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

type LoginAttempt struct {
	ID          string
	Email       string
	IPAddress   string
	AttemptTime time.Time
	Successful  bool
}
