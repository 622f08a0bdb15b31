package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
)

// fakeUserStore is an in-memory UserStore for middleware tests.
type fakeUserStore struct {
	users map[string]*model.User
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

func newMiddlewareFixture(t *testing.T) (*TokenService, *fakeUserStore, *model.User) {
	t.Helper()

	ts := newTestTokenService(t)
	user := &model.User{ID: "user-1", Username: "alice", Email: "alice@x.com"}
	store := &fakeUserStore{users: map[string]*model.User{user.ID: user}}
	return ts, store, user
}

// echoUserHandler writes 200 and records the user it saw in the context.
func echoUserHandler(seen **model.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := UserFromContext(r.Context()); ok {
			*seen = u
		}
		w.WriteHeader(http.StatusOK)
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// =========================================================================
// RequireAuth TESTS
// =========================================================================

func TestRequireAuth_NoToken(t *testing.T) {
	ts, store, _ := newMiddlewareFixture(t)

	var seen *model.User
	h := RequireAuth(ts, store, testLogger())(echoUserHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if seen != nil {
		t.Error("handler ran despite missing token")
	}
}

func TestRequireAuth_ValidCookie(t *testing.T) {
	ts, store, user := newMiddlewareFixture(t)

	token, err := ts.IssueAccess(user.ID)
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}

	var seen *model.User
	h := RequireAuth(ts, store, testLogger())(echoUserHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if seen == nil || seen.ID != user.ID {
		t.Errorf("context user = %+v, want ID %q", seen, user.ID)
	}
}

func TestRequireAuth_ValidBearerHeader(t *testing.T) {
	ts, store, user := newMiddlewareFixture(t)

	token, _ := ts.IssueAccess(user.ID)

	var seen *model.User
	h := RequireAuth(ts, store, testLogger())(echoUserHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if seen == nil || seen.ID != user.ID {
		t.Errorf("context user = %+v, want ID %q", seen, user.ID)
	}
}

func TestRequireAuth_CookieTakesPrecedenceOverHeader(t *testing.T) {
	ts, store, user := newMiddlewareFixture(t)

	token, _ := ts.IssueAccess(user.ID)

	var seen *model.User
	h := RequireAuth(ts, store, testLogger())(echoUserHandler(&seen))

	// Garbage cookie + valid header: the cookie wins, so the request must
	// be rejected — precedence is strict, not "first one that validates".
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "garbage"})
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 (cookie should take precedence)", rr.Code)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	ts, store, user := newMiddlewareFixture(t)

	past := time.Now().Add(-16 * time.Minute)
	ts.WithClock(func() time.Time { return past })
	token, _ := ts.IssueAccess(user.ID)
	ts.WithClock(time.Now)

	h := RequireAuth(ts, store, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for an expired token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestRequireAuth_DeletedUserWithValidToken(t *testing.T) {
	ts, store, _ := newMiddlewareFixture(t)

	// A well-signed, unexpired token for an account that no longer exists.
	token, _ := ts.IssueAccess("deleted-user")

	h := RequireAuth(ts, store, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for a deleted user")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestRequireAuth_UniformRejectionBody(t *testing.T) {
	ts, store, user := newMiddlewareFixture(t)

	past := time.Now().Add(-16 * time.Minute)
	ts.WithClock(func() time.Time { return past })
	expired, _ := ts.IssueAccess(user.ID)
	ts.WithClock(time.Now)

	h := RequireAuth(ts, store, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	bodies := map[string]string{}
	for name, token := range map[string]string{
		"expired":  expired,
		"tampered": expired[:len(expired)-3] + "xxx",
		"missing":  "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		bodies[name] = rr.Body.String()
	}

	// Whatever the internal reason, the client sees one identical body.
	if bodies["expired"] != bodies["tampered"] || bodies["expired"] != bodies["missing"] {
		t.Errorf("rejection bodies differ by failure reason: %v", bodies)
	}
}

// =========================================================================
// OptionalAuth TESTS
// =========================================================================

func TestOptionalAuth_AnonymousPassesThrough(t *testing.T) {
	ts, store, _ := newMiddlewareFixture(t)

	var seen *model.User
	h := OptionalAuth(ts, store)(echoUserHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for anonymous request", rr.Code)
	}
	if seen != nil {
		t.Error("anonymous request should have no context user")
	}
}

func TestOptionalAuth_ValidTokenResolvesUser(t *testing.T) {
	ts, store, user := newMiddlewareFixture(t)

	token, _ := ts.IssueAccess(user.ID)

	var seen *model.User
	h := OptionalAuth(ts, store)(echoUserHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen == nil || seen.ID != user.ID {
		t.Errorf("context user = %+v, want ID %q", seen, user.ID)
	}
}

func TestOptionalAuth_InvalidTokenStillPasses(t *testing.T) {
	ts, store, _ := newMiddlewareFixture(t)

	var seen *model.User
	h := OptionalAuth(ts, store)(echoUserHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "garbage"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 even with an invalid token", rr.Code)
	}
	if seen != nil {
		t.Error("invalid token should not resolve a user")
	}
}

// =========================================================================
// UserFromContext TESTS
// =========================================================================

func TestUserFromContext_Empty(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("UserFromContext() on an empty context should return ok=false")
	}
}
