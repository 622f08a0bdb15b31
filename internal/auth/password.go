// Package auth holds the security primitives of the identity core: bcrypt
// password hashing, dual-class JWT issuance, and the request-auth middleware
// that resolves a bearer credential to a user.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /api/v1/users/register → password hashed, user created, token pair issued
//  2. Tokens travel as HttpOnly cookies AND in the response body
//  3. Each API request carries the access token; middleware validates it and
//     puts the resolved user in the request context
//  4. When the access token expires, POST /refresh-token rotates the refresh
//     token and mints a new pair
//
// WHY BCRYPT?
// bcrypt is deliberately slow, which is the point: a few hundred ms per
// guess makes offline brute force expensive. It also generates a random salt
// per call and embeds it in the output, so the same password hashed twice
// yields different strings and no separate salt column is needed.
//
// Hash format (full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. Cost 12 lands around 250ms per hash
// on current server hardware — slow enough to hurt attackers, fast enough
// for an interactive login.
const defaultCost = 12

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so the cost can be injected: tests use
// cost 4 (the bcrypt minimum) and run in milliseconds without changing the
// logic under test.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost creates a PasswordService with a custom bcrypt
// cost. Intended for tests — do not lower the cost in production.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes a plaintext password with bcrypt.
//
// The output is self-contained (version, cost, salt, digest) and goes
// straight into the password_hash column.
//
// bcrypt silently truncates input beyond 72 bytes, so we reject longer
// passwords explicitly rather than hash a prefix the user didn't intend.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify reports whether plaintext matches a stored bcrypt hash.
//
// It returns false for a wrong password AND for a malformed hash — callers
// get a plain yes/no and cannot tell the difference, which is exactly what
// the login path wants. bcrypt.CompareHashAndPassword compares in constant
// time, so response timing doesn't leak how close a guess was.
func (p *PasswordService) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
