package domain

import "slices"

// Claims is the identity carried by a verified access token.
type Claims struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasRole reports whether the claims' role is one of roles.
func (c *Claims) HasRole(roles ...Role) bool {
	return slices.Contains(roles, c.Role)
}

// HasPermissions reports whether every one of perms is granted.
func (c *Claims) HasPermissions(perms ...string) bool {
	for _, p := range perms {
		if !slices.Contains(c.Permissions, p) {
			return false
		}
	}
	return true
}

// TokenPair is an access token together with its refresh token.
// ExpiresIn is the access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}
