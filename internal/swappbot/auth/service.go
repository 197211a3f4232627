// Package auth implements account registration, login, and OTP-based password
// reset for the swappbot HTTP surface.
//
// Sessions are opaque random tokens stored server-side; there is nothing to
// decode client-side and revocation is a row delete.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/huzaifa838/swappbot/internal/swappbot/store"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password, so
	// a login probe cannot distinguish the two.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	// ErrInvalidOTP covers a wrong, expired, or never-issued OTP.
	ErrInvalidOTP = errors.New("auth: invalid or expired OTP")
	// ErrWeakPassword is returned for passwords below the minimum length.
	ErrWeakPassword = errors.New("auth: password must be at least 6 characters")
	// ErrInvalidEmail is returned for obviously malformed addresses.
	ErrInvalidEmail = errors.New("auth: invalid email address")
)

// otpTTL is how long a password-reset code stays redeemable.
const otpTTL = 10 * time.Minute

// bcryptCost trades hash strength against login latency.
const bcryptCost = 10

// Service wires the account store, session tokens, and outbound mail.
type Service struct {
	store   *store.Store
	tokens  *TokenStore
	mailer  Mailer
	nowFunc func() time.Time
}

// NewService creates a Service.
func NewService(st *store.Store, tokens *TokenStore, mailer Mailer) *Service {
	return &Service{
		store:   st,
		tokens:  tokens,
		mailer:  mailer,
		nowFunc: time.Now,
	}
}

// Register creates an account. The email is lowercased so lookups are
// case-insensitive.
func (s *Service) Register(ctx context.Context, email, name, password string) error {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return ErrInvalidEmail
	}
	if len(password) < 6 {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	return s.store.CreateUser(ctx, email, strings.TrimSpace(name), string(hash))
}

// Login verifies the credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (token string, expiresAt time.Time, err error) {
	email = normalizeEmail(email)

	u, err := s.store.GetUser(ctx, email)
	if errors.Is(err, store.ErrUserNotFound) {
		// Burn comparable time so the miss is not observable by latency.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.tokens.Issue(ctx, email)
}

// Validate resolves a session token to its account email.
func (s *Service) Validate(ctx context.Context, token string) (string, error) {
	sess, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return "", err
	}
	return sess.Email, nil
}

// ForgotPassword issues a 6-digit OTP and mails it. An unknown email is
// reported as success to the caller so the endpoint cannot be used to probe
// for registered addresses; the miss is only logged.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	otp, err := generateOTP()
	if err != nil {
		return err
	}

	expiresAt := s.nowFunc().Add(otpTTL)
	err = s.store.SetUserOTP(ctx, email, otp, expiresAt)
	if errors.Is(err, store.ErrUserNotFound) {
		slog.Info("password reset requested for unknown email", "email", email)
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.mailer.SendOTP(email, otp); err != nil {
		return fmt.Errorf("auth: deliver otp: %w", err)
	}
	return nil
}

// ResetPassword redeems an OTP for a new password. All live sessions for the
// account are revoked on success.
func (s *Service) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	email = normalizeEmail(email)
	if len(newPassword) < 6 {
		return ErrWeakPassword
	}

	u, err := s.store.GetUser(ctx, email)
	if errors.Is(err, store.ErrUserNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return err
	}

	if u.OTP == "" || u.OTP != otp || s.nowFunc().After(u.OTPExpiresAt) {
		return ErrInvalidOTP
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.store.ResetUserPassword(ctx, email, string(hash)); err != nil {
		return err
	}
	if err := s.tokens.RevokeAll(ctx, email); err != nil {
		slog.Warn("failed to revoke sessions after password reset", "email", email, "err", err)
	}
	return nil
}

// dummyHash is compared against when the account does not exist, keeping the
// unknown-email and wrong-password paths similarly slow.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("swappbot-timing-pad"), bcryptCost)
	return h
}()

// generateOTP returns a uniformly random 6-digit code, zero-padded.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("auth: generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail does the minimal sanity check: one @ with something on both
// sides and a dot in the domain.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t\n")
}
