package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the capability tag carried by every identity.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAnonymous Role = "ANONYMOUS"
	RoleAdmin     Role = "ADMIN"
)

// AnonymousUsername is the reserved name of the shared identity that owns
// chat turns sent without a bearer token.
const AnonymousUsername = "anonymous"

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAnonymous, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// User models a registered or anonymous principal.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAnonymous reports whether u is the shared anonymous placeholder.
func (u *User) IsAnonymous() bool {
	return u != nil && u.Role == RoleAnonymous
}
