package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// Sentinel errors returned by token verification.
//
// WHY TWO DISTINCT ERRORS?
// Callers react differently: an expired access token is routine (the client
// should try /refresh-token), while a bad signature means tampering or a
// token from another deployment (force re-login). Both still collapse to a
// single 401 at the HTTP boundary — the distinction is for internal logic
// and logs only.
var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: token invalid")
)

const issuer = "microblog"

// TokenConfig carries the signing secrets and expiry windows.
//
// Access and refresh tokens are signed with INDEPENDENT secrets. That makes
// the two classes cryptographically disjoint: an access token presented to
// the refresh endpoint fails signature verification outright, and vice
// versa. The TTL asymmetry is the core security property — a stolen access
// token has a small exploitation window, a stolen refresh token is bounded
// by rotation.
//
// Config is read once at startup and passed in here; nothing in the business
// logic touches the environment. Tests construct a TokenConfig with fixed
// secrets and pin the clock.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration // e.g. 15 minutes
	RefreshTTL    time.Duration // e.g. 7 days
}

// applyDefaults fills in the standard expiry windows when the environment
// doesn't override them.
func (c *TokenConfig) applyDefaults() {
	if c.AccessTTL == 0 {
		c.AccessTTL = 15 * time.Minute
	}
	if c.RefreshTTL == 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
}

// TokenService issues and verifies signed, time-bounded JWTs for both token
// classes.
type TokenService struct {
	cfg TokenConfig

	// now is the clock, injectable so tests can issue tokens "in the past"
	// without sleeping.
	now func() time.Time
}

// NewTokenService creates a TokenService. Both secrets must be present,
// non-trivial, and different from each other — reusing one secret for both
// classes would let an access token be replayed as a refresh token.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) < 16 || len(cfg.RefreshSecret) < 16 {
		return nil, errors.New("auth: token secrets must be at least 16 characters")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	cfg.applyDefaults()
	return &TokenService{cfg: cfg, now: time.Now}, nil
}

// WithClock replaces the token service's clock. Test hook.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// claims is the JWT payload. The subject carries the internal user ID —
// that's all a token needs; everything else about the user is looked up
// fresh on each request.
type claims struct {
	jwt.RegisteredClaims
}

// IssueAccess creates a short-lived access token for userID.
func (s *TokenService) IssueAccess(userID string) (string, error) {
	return s.issue(userID, []byte(s.cfg.AccessSecret), s.cfg.AccessTTL)
}

// IssueRefresh creates a long-lived refresh token for userID. The caller
// (the session manager) is responsible for persisting it as the user's
// single current refresh token.
func (s *TokenService) IssueRefresh(userID string) (string, error) {
	return s.issue(userID, []byte(s.cfg.RefreshSecret), s.cfg.RefreshTTL)
}

func (s *TokenService) issue(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()

	// The jti keeps every issued token unique. HS256 signing is
	// deterministic and iat/exp only have one-second precision, so without
	// it two tokens minted for the same user in the same second would be
	// byte-identical — and refresh rotation would "rotate" to the same
	// string, leaving the old one valid.
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// VerifyAccess validates an access-class token and returns the user ID it
// encodes. Fails with ErrTokenExpired or ErrTokenInvalid.
func (s *TokenService) VerifyAccess(tokenStr string) (string, error) {
	return s.verify(tokenStr, []byte(s.cfg.AccessSecret))
}

// VerifyRefresh validates a refresh-class token and returns the user ID.
// Signature/expiry only — the stored-token equality check that defeats
// replay of a rotated-out token lives in the session manager, because it
// needs the credential store.
func (s *TokenService) VerifyRefresh(tokenStr string) (string, error) {
	return s.verify(tokenStr, []byte(s.cfg.RefreshSecret))
}

// verify parses and checks signature, expiry, issuer, and algorithm.
//
// ALGORITHM CONFUSION:
// jwt.WithValidMethods pins HS256. Without it an attacker could present a
// token with alg=none (or an RSA public key abused as an HMAC secret) and
// some parsers would accept it.
func (s *TokenService) verify(tokenStr string, secret []byte) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", ErrTokenInvalid
	}

	return c.Subject, nil
}
