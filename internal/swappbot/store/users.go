package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUserNotFound is returned when the requested account does not exist.
var ErrUserNotFound = errors.New("store: user not found")

// ErrUserExists is returned by CreateUser for a duplicate email.
var ErrUserExists = errors.New("store: email already registered")

// User is a registered account row. PasswordHash is a bcrypt hash; the OTP
// fields are populated only while a password reset is in flight.
type User struct {
	Email        string
	Name         string
	PasswordHash string
	OTP          string
	OTPExpiresAt time.Time
	CreatedAt    time.Time
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO auth_users (email, name, password_hash, created_at)
VALUES (?, ?, ?, ?)
`, email, name, passwordHash, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

// GetUser returns the account for email, or ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, email string) (*User, error) {
	var u User
	var otp, otpExpires sql.NullString
	var createdStr string

	err := s.db.QueryRowContext(ctx, `
SELECT email, name, password_hash, otp, otp_expires_at, created_at
FROM auth_users
WHERE email = ?
`, email).Scan(&u.Email, &u.Name, &u.PasswordHash, &otp, &otpExpires, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}

	u.OTP = otp.String
	if otpExpires.Valid {
		u.OTPExpiresAt, _ = time.Parse(time.RFC3339, otpExpires.String)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return &u, nil
}

// SetUserOTP stores a pending password-reset OTP and its expiry.
func (s *Store) SetUserOTP(ctx context.Context, email, otp string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE auth_users SET otp = ?, otp_expires_at = ? WHERE email = ?
`, otp, expiresAt.UTC().Format(time.RFC3339), email)
	if err != nil {
		return fmt.Errorf("store: set otp: %w", err)
	}
	return requireRow(res, ErrUserNotFound)
}

// ResetUserPassword stores a new password hash and clears any pending OTP.
func (s *Store) ResetUserPassword(ctx context.Context, email, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE auth_users SET password_hash = ?, otp = NULL, otp_expires_at = NULL WHERE email = ?
`, passwordHash, email)
	if err != nil {
		return fmt.Errorf("store: reset password: %w", err)
	}
	return requireRow(res, ErrUserNotFound)
}

// requireRow converts a zero-row update into notFound.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint error.
// modernc.org/sqlite does not export a typed error for this, so the message
// is matched.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
