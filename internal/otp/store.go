// Package otp issues and verifies short-lived numeric login codes bound to
// an email address.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/example/coimbatore-discount/internal/domain"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 5 * time.Minute

const codeDigits = 6

// Challenge is a pending code for one email.
type Challenge struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Backend keeps at most one challenge per email. Get returns nil, nil when
// nothing is stored.
type Backend interface {
	Put(ctx context.Context, email string, challenge Challenge) error
	Get(ctx context.Context, email string) (*Challenge, error)
	Delete(ctx context.Context, email string) error
}

// Sender delivers a code to its owner. Delivery is best-effort.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Store is the OTP challenge store.
type Store struct {
	backend Backend
	sender  Sender
	logger  *slog.Logger
	ttl     time.Duration
	now     func() time.Time
	subject string
	noun    string
}

// NewStore builds a Store. sender may be nil.
func NewStore(backend Backend, sender Sender, logger *slog.Logger, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: backend,
		sender:  sender,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
		subject: "Your Login Code",
		noun:    "login code",
	}
}

// WithMessage sets the email subject and the name of the code in the body.
func (s *Store) WithMessage(subject, noun string) *Store {
	s.subject = subject
	s.noun = noun
	return s
}

// WithClock replaces the time source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// TTL returns the lifetime of issued codes.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Issue creates a fresh code for email, replacing any pending one, and tries
// to deliver it. A delivery failure is logged and the code stays valid.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	challenge := Challenge{Code: code, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.backend.Put(ctx, email, challenge); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	s.deliver(ctx, email, code)
	return code, nil
}

// Verify checks code against the pending challenge for email. A matching
// code is consumed. An expired challenge is removed and reported as
// domain.ErrExpired.
func (s *Store) Verify(ctx context.Context, email, code string) error {
	challenge, err := s.backend.Get(ctx, email)
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	if challenge == nil || challenge.Code != code {
		return domain.ErrInvalidCode
	}

	if err := s.backend.Delete(ctx, email); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}

	if s.now().After(challenge.ExpiresAt) {
		return domain.ErrExpired
	}
	return nil
}

func (s *Store) deliver(ctx context.Context, email, code string) {
	s.logger.InfoContext(ctx, "otp issued", "email", email)
	if s.sender == nil {
		return
	}

	body := fmt.Sprintf(
		"Your %s is %s.\nThis code expires in %d minutes.\nIf you didn't request this, please ignore this email.",
		s.noun, code, int(s.ttl.Minutes()),
	)
	if err := s.sender.Send(ctx, email, s.subject, body); err != nil {
		s.logger.WarnContext(ctx, "otp delivery failed", "email", email, "error", err)
	}
}

func generateCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
