package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dylanc316/essayhuzz/internal/auth/domain"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it too, which is what the tests run against.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, name, password_hash, email_verified, created_at, updated_at
		FROM users
		WHERE lower(email) = lower($1)
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, name, password_hash, email_verified, created_at, updated_at
		FROM users
		WHERE id = $1
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO users (id, email, name, password_hash, email_verified, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Email, user.Name, user.PasswordHash, user.EmailVerified, user.CreatedAt, user.UpdatedAt)

	return err
}

// MarkVerified is idempotent; verifying an already-verified user is a
// no-op.
func (r *PostgresRepository) MarkVerified(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET email_verified = TRUE, updated_at = now()
		WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// ReplaceVerificationToken invalidates every prior token for the same
// (user, purpose) and stores the new one in a single transaction.
func (r *PostgresRepository) ReplaceVerificationToken(ctx context.Context, vt *domain.VerificationToken) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM verification_tokens WHERE user_id = $1 AND purpose = $2
	`, vt.UserID, vt.Purpose)
	if err != nil {
		return fmt.Errorf("failed to delete prior tokens: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO verification_tokens (id, user_id, token, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, vt.ID, vt.UserID, vt.Token, vt.Purpose, vt.ExpiresAt, vt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	return tx.Commit(ctx)
}

// ConsumeVerificationToken deletes the token row and returns it. The
// DELETE ... RETURNING makes consumption atomic: of two concurrent
// calls with the same token, exactly one sees the row.
func (r *PostgresRepository) ConsumeVerificationToken(ctx context.Context, token, purpose string) (*domain.VerificationToken, error) {
	query := `
		DELETE FROM verification_tokens
		WHERE token = $1 AND purpose = $2
		RETURNING id, user_id, token, purpose, expires_at, created_at;
	`
	row := r.db.QueryRow(ctx, query, token, purpose)

	var vt domain.VerificationToken
	err := row.Scan(&vt.ID, &vt.UserID, &vt.Token, &vt.Purpose, &vt.ExpiresAt, &vt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	return &vt, nil
}

func (r *PostgresRepository) RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, email, ip_address, attempt_time, successful)
		VALUES (gen_random_uuid(), $1, $2, now(), $3)
	`, email, ip, success)
	return err
}

// CountRecentFailures counts failed attempts since the cutoff, not
// looking past the most recent successful login.
func (r *PostgresRepository) CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT count(*)
		FROM login_attempts
		WHERE email = $1
		  AND successful = FALSE
		  AND attempt_time > $2
		  AND attempt_time > COALESCE(
			(SELECT max(attempt_time) FROM login_attempts WHERE email = $1 AND successful = TRUE),
			'-infinity'::timestamptz);
	`
	var count int
	if err := r.db.QueryRow(ctx, query, email, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count login failures: %w", err)
	}

	return count, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.EmailVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &user, nil
}
