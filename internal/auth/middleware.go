package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/microblog/internal/model"
)

// AccessTokenCookie is the cookie carrying the access JWT. The refresh
// token has its own cookie so the two classes never travel under one name.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// UserStore is the slice of the user repository the resolver needs.
// Declared here (at the consumer) so this package doesn't depend on the
// repository package — the server wires in the concrete SQLite store.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// contextKey is an unexported type for context keys in this package.
// A package-private key type means no other package can read or shadow the
// resolved user in the request context.
type contextKey string

const userKey contextKey = "user"

// RequireAuth is the identity resolver for protected routes.
//
// It extracts the access token (HttpOnly cookie first, then the
// Authorization: Bearer header — cookie wins when both are present),
// validates it, and re-fetches the user record. The DB lookup matters:
// access tokens are stateless, so without it a deleted account could keep
// using a still-valid token until it expired.
//
// Every failure — missing token, expired, tampered, user gone — produces
// the same 401 body. The specific reason goes to the log at debug level,
// never to the client.
func RequireAuth(tokens *TokenService, users UserStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(r, tokens, users)
			if err != nil {
				logger.Debug("request rejected by auth middleware",
					slog.String("path", r.URL.Path),
					slog.String("reason", err.Error()),
				)
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves the user if a valid access token is present but
// never blocks the request. Used on the public feed, where anonymous users
// can read but logged-in users additionally see which tweets they liked.
func OptionalAuth(tokens *TokenService, users UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := resolveUser(r, tokens, users); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), userKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the resolved user for an authenticated request.
// Returns (nil, false) on anonymous requests.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// resolveUser turns a raw request credential into a trusted user record.
func resolveUser(r *http.Request, tokens *TokenService, users UserStore) (*model.User, error) {
	tokenStr, err := extractAccessToken(r)
	if err != nil {
		return nil, err
	}

	userID, err := tokens.VerifyAccess(tokenStr)
	if err != nil {
		return nil, err
	}

	// Stale-token check: the subject must still exist.
	user, err := users.GetByID(r.Context(), userID)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// extractAccessToken reads the access token from the cookie or, failing
// that, from "Authorization: Bearer <token>". Dual transport supports both
// browser clients (cookie) and API clients (header).
func extractAccessToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token, nil
	}

	return "", http.ErrNoCookie
}
