package handler

import (
	"github.com/99minutos/auth-service/internal/core/domain"
)

// --- Request / Response types ---

type registerRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"omitempty,oneof=ADMIN MANAGER USER"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// authResponse is the data of a successful register or login.
type authResponse struct {
	User         domain.PublicUser `json:"user"`
	Token        string            `json:"token"`
	RefreshToken string            `json:"refreshToken"`
	ExpiresIn    int64             `json:"expiresIn"`
}

type userResponse struct {
	User domain.PublicUser `json:"user"`
}

type sessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	Claims        *domain.Claims `json:"claims,omitempty"`
}
