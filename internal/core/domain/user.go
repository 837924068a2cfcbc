package domain

import (
	"strings"
	"time"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleUser    Role = "USER"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleManager, RoleUser}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// ParseRole converts a stored or submitted role string into a Role.
// Matching is case-insensitive; unknown values return ErrInvalidRole.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// User models an account as held by the user store.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Permissions  []string  `json:"permissions,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is a user with the password hash removed, safe to return to callers.
type PublicUser struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Public strips the password hash. Every outward-facing user goes through here.
func (u *User) Public() PublicUser {
	var perms []string
	if len(u.Permissions) > 0 {
		perms = append([]string(nil), u.Permissions...)
	}
	return PublicUser{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// Claims returns the identity claims embedded in an access token for u.
func (u *User) Claims() Claims {
	return Claims{
		UserID:      u.ID,
		Email:       u.Email,
		Role:        u.Role,
		Permissions: append([]string(nil), u.Permissions...),
	}
}

// NormalizeEmail trims and lower-cases an email so lookups and the uniqueness
// constraint agree on a single form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
