package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to AuthService.Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// LoginInput carries login credentials. It is never persisted.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by a successful registration or login.
type AuthResult struct {
	User         domain.PublicUser
	Token        string
	RefreshToken string
	ExpiresIn    int64
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	GetUserProfile(ctx context.Context, userID string) (*domain.PublicUser, error)
}
