package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
}

// TokenIssuer mints signed access and refresh tokens.
type TokenIssuer interface {
	IssueAccessToken(claims domain.Claims) (string, error)
	IssueRefreshToken(userID string) (string, error)
	IssueTokenPair(claims domain.Claims) (domain.TokenPair, error)
}

// TokenVerifier validates tokens minted by a TokenIssuer.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*domain.Claims, error)
	VerifyRefreshToken(token string) (string, error)
}

// LoginLimiter throttles repeated failed logins for the same email.
type LoginLimiter interface {
	// Blocked reports whether further attempts for key are currently refused.
	Blocked(ctx context.Context, key string) (bool, error)
	// RecordFailure counts a failed attempt for key.
	RecordFailure(ctx context.Context, key string) error
	// Reset clears the failure count for key.
	Reset(ctx context.Context, key string) error
}
