package auth

import (
	"crypto/subtle"
	"fmt"
)

// Guard verifies bearer credentials and enforces role requirements.
//
// Two independent schemes can authorise a request:
//
//  1. A signed HS256 token carrying {uid, email, role}, issued at login.
//  2. The privileged static admin key, presented as the bearer credential.
//     The key is compared in constant time and grants the admin role
//     without a user record. It must never be logged.
//
// Thread Safety: Guard is immutable after construction and safe for
// concurrent use.
type Guard struct {
	secret     string
	adminKey   string
	ttlMinutes int
}

// NewGuard creates a credential guard.
//
// adminKey may be empty, which disables the static-key scheme entirely.
func NewGuard(secret, adminKey string, ttlMinutes int) *Guard {
	return &Guard{
		secret:     secret,
		adminKey:   adminKey,
		ttlMinutes: ttlMinutes,
	}
}

// IssueToken creates a signed bearer token for the given user identity.
func (g *Guard) IssueToken(uid, email string, role Role) (string, error) {
	return GenerateToken(uid, email, role, g.secret, g.ttlMinutes)
}

// Authenticate resolves a bearer credential to a caller identity.
//
// The static admin key is checked first so that key-shaped credentials are
// never fed to the token parser. On failure the credential never appears in
// the returned error.
func (g *Guard) Authenticate(credential string) (*Identity, error) {
	if credential == "" {
		return nil, ErrNoCredential
	}

	if g.MatchesAdminKey(credential) {
		return &Identity{Role: RoleAdmin, FromKey: true}, nil
	}

	claims, err := ParseToken(credential, g.secret)
	if err != nil {
		return nil, err
	}

	return &Identity{
		UID:   claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}

// MatchesAdminKey reports whether the credential equals the configured
// admin key, using a constant-time comparison to avoid timing side-channels.
// Always false when no key is configured.
func (g *Guard) MatchesAdminKey(credential string) bool {
	if g.adminKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), []byte(g.adminKey)) == 1
}

// RequireAdmin rejects identities that do not carry the admin role.
func (g *Guard) RequireAdmin(id *Identity) error {
	if id == nil {
		return ErrNoCredential
	}
	if id.Role != RoleAdmin {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}
