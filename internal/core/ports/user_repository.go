package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// UserRepository is the user store the auth core depends on.
//
// Implementations must enforce email uniqueness themselves (unique index or
// constraint) and report a duplicate as domain.ErrUserExists. Lookups that
// find nothing return domain.ErrUserNotFound. A stored role outside the known
// set is reported as *domain.CorruptRecordError.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
