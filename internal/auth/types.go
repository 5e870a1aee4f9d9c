package auth

import "errors"

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleClient is a regular customer account: can track parcels, manage
	// their own profile and notification subscriptions.
	RoleClient Role = "client"

	// RoleAdmin has full control: parcel and driver management, dashboard
	// feeds, user administration.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles accepted at registration.
var ValidRoles = []Role{RoleClient, RoleAdmin}

// IsValidRole returns true if the role is a recognised account role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Identity is the resolved caller identity after a credential check.
//
// For bearer tokens all fields are populated from the claims. For the
// static admin key UID and Email are empty: the key grants the admin role
// without binding to a user record.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Role  Role   `json:"role"`

	// FromKey is true when the identity was established by the static
	// admin key rather than a signed token.
	FromKey bool `json:"-"`
}

// IsAdmin returns true if the identity carries the admin role.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == RoleAdmin
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoCredential       = errors.New("missing bearer credential")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrForbidden          = errors.New("insufficient permissions")
)
