// Package memory is a process-local user store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	r.byID[user.ID] = clone(user)
	r.byEmail[user.Email] = user.ID
	return clone(user), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

// Ping always succeeds; it lets the readiness handler treat every store alike.
func (r *UserRepository) Ping(context.Context) error { return nil }

func clone(u *domain.User) *domain.User {
	c := *u
	c.Permissions = append([]string(nil), u.Permissions...)
	return &c
}
