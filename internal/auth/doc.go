// Package auth provides authentication and authorisation for Rush Core.
//
// It implements a 2-tier role model (client, admin) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Signed HS256 bearer tokens carrying {uid, email, role}
//   - A privileged static admin key, checked in constant time, that grants
//     the admin role without a user record
//   - Optional token expiry (disabled for legacy clients when TTL is 0)
//
// All protected operations declare a required role. The Guard resolves the
// caller's role from whichever credential scheme matched and rejects with
// ErrForbidden when the requirement is unmet, or a token error when no
// scheme matched.
package auth
