package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// AuthService implements registration, login and profile lookup.
type AuthService struct {
	repo    ports.UserRepository
	hasher  ports.PasswordHasher
	tokens  ports.TokenIssuer
	limiter ports.LoginLimiter
	log     zerolog.Logger
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*AuthService)

// WithLoginLimiter enables throttling of repeated failed logins.
func WithLoginLimiter(l ports.LoginLimiter) Option {
	return func(s *AuthService) { s.limiter = l }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(repo ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, log zerolog.Logger, opts ...Option) *AuthService {
	s := &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		log:    log.With().Str("component", "auth_service").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and returns it with a fresh token pair.
//
// The email check here is only a fast path: two concurrent registrations can
// both pass it, so the store's uniqueness constraint is what actually decides.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)

	role := domain.RoleUser
	if strings.TrimSpace(in.Role) != "" {
		r, err := domain.ParseRole(in.Role)
		if err != nil {
			return nil, domain.NewValidationError(domain.FieldError{
				Field:   "role",
				Message: "role must be one of: ADMIN, MANAGER, USER",
			})
		}
		role = r
	}

	_, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("user registered")
	return s.issue(created)
}

// Login authenticates by email and password. An unknown email and a wrong
// password are reported identically.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)

	if s.limiter != nil {
		blocked, err := s.limiter.Blocked(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Msg("login limiter unavailable, allowing attempt")
		} else if blocked {
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		// Spend the same bcrypt work as a real comparison.
		if _, verr := s.hasher.Verify(ctx, in.Password, s.dummy(ctx)); verr != nil {
			s.log.Debug().Err(verr).Msg("dummy password comparison failed")
		}
		s.recordFailure(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, in.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.recordFailure(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.log.Warn().Err(err).Msg("failed to reset login limiter")
		}
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return s.issue(user)
}

// GetUserProfile returns the sanitized user with the given id.
func (s *AuthService) GetUserProfile(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	pub := user.Public()
	return &pub, nil
}

func (s *AuthService) issue(user *domain.User) (*ports.AuthResult, error) {
	pair, err := s.tokens.IssueTokenPair(user.Claims())
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &ports.AuthResult{
		User:         user.Public(),
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to record login failure")
	}
}

// dummy returns a hash of a throwaway password, computed on first use with
// the configured cost so timing matches a real account.
func (s *AuthService) dummy(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(context.WithoutCancel(ctx), uuid.NewString())
		if err != nil {
			s.log.Warn().Err(err).Msg("could not prepare dummy hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
