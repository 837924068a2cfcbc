package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// TokenConfig is fixed per deployment.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
}

// accessClaims is the signed payload of an access token.
type accessClaims struct {
	UserID      string      `json:"userId"`
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	Permissions []string    `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// refreshClaims deliberately carries no role or permissions: a long-lived
// credential must not be able to assert privileges.
type refreshClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access and refresh tokens.
type TokenManager struct {
	cfg TokenConfig
	now func() time.Time
}

type TokenOption func(*TokenManager)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager validates cfg and returns a TokenManager.
func NewTokenManager(cfg TokenConfig, opts ...TokenOption) (*TokenManager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets must be set")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token expiry durations must be positive")
	}
	m := &TokenManager{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *TokenManager) AccessTTL() time.Duration { return m.cfg.AccessTTL }

func (m *TokenManager) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := m.now()
	return jwt.RegisteredClaims{
		Issuer:    m.cfg.Issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{m.cfg.Audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
}

// IssueAccessToken signs claims with the access secret.
func (m *TokenManager) IssueAccessToken(claims domain.Claims) (string, error) {
	c := accessClaims{
		UserID:           claims.UserID,
		Email:            claims.Email,
		Role:             claims.Role,
		Permissions:      claims.Permissions,
		RegisteredClaims: m.registered(claims.UserID, m.cfg.AccessTTL),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(m.cfg.AccessSecret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs only the user id with the refresh secret.
func (m *TokenManager) IssueRefreshToken(userID string) (string, error) {
	c := refreshClaims{
		UserID:           userID,
		RegisteredClaims: m.registered(userID, m.cfg.RefreshTTL),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(m.cfg.RefreshSecret))
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// IssueTokenPair issues an access token for claims and a refresh token for
// the same user.
func (m *TokenManager) IssueTokenPair(claims domain.Claims) (domain.TokenPair, error) {
	access, err := m.IssueAccessToken(claims)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := m.IssueRefreshToken(claims.UserID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.cfg.AccessTTL / time.Second),
	}, nil
}

func (m *TokenManager) parse(token string, claims jwt.Claims, secret string) error {
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	return nil
}

// VerifyAccessToken checks signature, issuer, audience and expiry and returns
// the embedded claims. Any failure yields domain.ErrInvalidToken and no claims.
func (m *TokenManager) VerifyAccessToken(token string) (*domain.Claims, error) {
	var c accessClaims
	if err := m.parse(token, &c, m.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if c.UserID == "" || !c.Role.Valid() {
		return nil, fmt.Errorf("%w: incomplete claims", domain.ErrInvalidToken)
	}
	return &domain.Claims{
		UserID:      c.UserID,
		Email:       c.Email,
		Role:        c.Role,
		Permissions: c.Permissions,
	}, nil
}

// VerifyRefreshToken checks a refresh token and returns the user id it names.
func (m *TokenManager) VerifyRefreshToken(token string) (string, error) {
	var c refreshClaims
	if err := m.parse(token, &c, m.cfg.RefreshSecret); err != nil {
		return "", err
	}
	if c.UserID == "" {
		return "", fmt.Errorf("%w: missing user id", domain.ErrInvalidToken)
	}
	return c.UserID, nil
}

// ExtractBearerToken parses an "Authorization: Bearer <token>" header value.
// It reports false when the header is empty or not a bearer credential.
func ExtractBearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
