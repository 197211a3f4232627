package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTokenNotFound is returned when the session token does not exist.
	ErrTokenNotFound = errors.New("auth: token not found")
	// ErrTokenExpired is returned when the token's TTL has elapsed.
	ErrTokenExpired = errors.New("auth: token expired")
)

// DefaultSessionTTL is the session lifetime when no TTL is specified.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Session is one issued login token loaded from the store.
type Session struct {
	Token     string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// TokenStore manages session_tokens rows in SQLite. Tokens are opaque random
// strings; validity lives entirely server-side so a token can be revoked by
// deleting its row.
type TokenStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewTokenStore creates a TokenStore. Pass ttl <= 0 to use DefaultSessionTTL.
func NewTokenStore(db *sql.DB, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenStore{db: db, ttl: ttl}
}

// Issue creates and persists a new session token for email. Returns the raw
// token string and the expiry time on success.
func (s *TokenStore) Issue(ctx context.Context, email string) (string, time.Time, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, fmt.Errorf("auth: generate token entropy: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(raw)
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)

	_, err := s.db.ExecContext(ctx, `
INSERT INTO session_tokens (token, email, created_at, expires_at)
VALUES (?, ?, ?, ?)
`, token, email,
		now.Format(time.RFC3339),
		expiresAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: insert token: %w", err)
	}

	return token, expiresAt, nil
}

// Validate fetches the session for token and checks that it has not expired.
// Expired rows are deleted on sight.
func (s *TokenStore) Validate(ctx context.Context, token string) (*Session, error) {
	var sess Session
	var createdStr, expiresStr string

	err := s.db.QueryRowContext(ctx, `
SELECT token, email, created_at, expires_at
FROM session_tokens
WHERE token = ?
`, token).Scan(&sess.Token, &sess.Email, &createdStr, &expiresStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: query token: %w", err)
	}

	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	sess.ExpiresAt, _ = time.Parse(time.RFC3339, expiresStr)

	if time.Now().UTC().After(sess.ExpiresAt) {
		_ = s.Revoke(ctx, token)
		return nil, ErrTokenExpired
	}
	return &sess, nil
}

// Revoke deletes a session token. Revoking an unknown token is not an error.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// RevokeAll deletes every session for email, e.g. after a password reset.
func (s *TokenStore) RevokeAll(ctx context.Context, email string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE email = ?`, email); err != nil {
		return fmt.Errorf("auth: revoke sessions: %w", err)
	}
	return nil
}
