// Package security holds the credential primitives of the auth core: bcrypt
// password hashing and JWT access/refresh tokens.
package security

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const (
	DefaultCost           = 12
	DefaultPasswordLength = 12

	minPasswordLength = 6
	maxPasswordLength = 100
	// bcrypt only reads the first 72 bytes of its input.
	maxPasswordBytes = 72

	passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// PasswordHasher hashes passwords with bcrypt. Hash and Verify calls are
// bounded by a semaphore so CPU-bound work cannot crowd out other requests.
type PasswordHasher struct {
	cost     int
	sem      *semaphore.Weighted
	observer prometheus.Observer
}

type HasherOption func(*PasswordHasher)

// WithMaxConcurrency caps the number of simultaneous bcrypt computations.
// n <= 0 keeps the default of runtime.NumCPU().
func WithMaxConcurrency(n int) HasherOption {
	return func(h *PasswordHasher) {
		if n > 0 {
			h.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithDurationObserver records the duration of every Hash call in seconds.
func WithDurationObserver(o prometheus.Observer) HasherOption {
	return func(h *PasswordHasher) { h.observer = o }
}

// NewPasswordHasher returns a hasher using the given bcrypt cost.
// A cost of 0 selects DefaultCost.
func NewPasswordHasher(cost int, opts ...HasherOption) (*PasswordHasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	h := &PasswordHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(runtime.NumCPU())),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Cost returns the configured work factor.
func (h *PasswordHasher) Cost() int { return h.cost }

// Hash returns the salted bcrypt hash of plaintext.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrHashing, err)
	}
	defer h.sem.Release(1)

	start := time.Now()
	b, err := bcrypt.GenerateFromPassword(bcryptInput(plaintext), h.cost)
	if h.observer != nil {
		h.observer.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrHashing, err)
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash. A mismatch is not an error;
// only a malformed hash or an aborted wait is.
func (h *PasswordHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrHashing, err)
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", domain.ErrHashing, err)
	}
}

// bcryptInput cuts plaintext to the bytes bcrypt actually uses, so long
// passwords hash instead of failing with bcrypt.ErrPasswordTooLong.
func bcryptInput(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// StrengthResult lists every rule a candidate password breaks.
type StrengthResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidateStrength checks length bounds and required character classes.
// Only ASCII letters and digits count towards the classes.
func ValidateStrength(plaintext string) StrengthResult {
	var errs []string

	n := utf8.RuneCountInString(plaintext)
	if n < minPasswordLength {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", minPasswordLength))
	}
	if n > maxPasswordLength {
		errs = append(errs, fmt.Sprintf("Password must not exceed %d characters", maxPasswordLength))
	}

	var lower, upper, digit bool
	for _, r := range plaintext {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if !lower {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if !upper {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if !digit {
		errs = append(errs, "Password must contain at least one number")
	}

	return StrengthResult{IsValid: len(errs) == 0, Errors: errs}
}

// GeneratePassword returns a random password drawn from letters, digits and
// symbols. It is meant for auto-provisioned accounts and does not itself
// guarantee ValidateStrength passes.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = DefaultPasswordLength
	}
	limit := big.NewInt(int64(len(passwordCharset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = passwordCharset[n.Int64()]
	}
	return string(out), nil
}
