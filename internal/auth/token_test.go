package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const (
	testAccessSecret  = "access-secret-at-least-16-chars!"
	testRefreshSecret = "refresh-secret-at-least-16-char!"
)

// newTestTokenService creates a TokenService with fixed secrets so tests
// are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{
		AccessSecret:  "short",
		RefreshSecret: testRefreshSecret,
	})
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_IdenticalSecrets(t *testing.T) {
	_, err := NewTokenService(TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testAccessSecret,
	})
	if err == nil {
		t.Fatal("NewTokenService() should reject identical access/refresh secrets")
	}
}

func TestNewTokenService_DefaultTTLs(t *testing.T) {
	ts, err := NewTokenService(TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
	})
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	if ts.cfg.AccessTTL != 15*time.Minute {
		t.Errorf("default AccessTTL = %v, want 15m", ts.cfg.AccessTTL)
	}
	if ts.cfg.RefreshTTL != 7*24*time.Hour {
		t.Errorf("default RefreshTTL = %v, want 168h", ts.cfg.RefreshTTL)
	}
}

// =========================================================================
// ROUND-TRIP TESTS
// =========================================================================

func TestAccessToken_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	userID := "user-abc-123"

	token, err := ts.IssueAccess(userID)
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}

	got, err := ts.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess() error = %v", err)
	}
	if got != userID {
		t.Errorf("VerifyAccess() userID = %q, want %q", got, userID)
	}
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	userID := "user-xyz-789"

	token, err := ts.IssueRefresh(userID)
	if err != nil {
		t.Fatalf("IssueRefresh() error = %v", err)
	}

	got, err := ts.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("VerifyRefresh() error = %v", err)
	}
	if got != userID {
		t.Errorf("VerifyRefresh() userID = %q, want %q", got, userID)
	}
}

// =========================================================================
// CLASS ISOLATION TESTS
// =========================================================================

func TestClassIsolation_AccessTokenFailsRefreshVerification(t *testing.T) {
	ts := newTestTokenService(t)

	access, _ := ts.IssueAccess("user-123")

	_, err := ts.VerifyRefresh(access)
	if err == nil {
		t.Fatal("VerifyRefresh() should reject an access-class token")
	}
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("VerifyRefresh() error = %v, want ErrTokenInvalid", err)
	}
}

func TestClassIsolation_RefreshTokenFailsAccessVerification(t *testing.T) {
	ts := newTestTokenService(t)

	refresh, _ := ts.IssueRefresh("user-123")

	_, err := ts.VerifyAccess(refresh)
	if err == nil {
		t.Fatal("VerifyAccess() should reject a refresh-class token")
	}
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("VerifyAccess() error = %v, want ErrTokenInvalid", err)
	}
}

// =========================================================================
// FAILURE CLASSIFICATION TESTS
// =========================================================================

func TestVerifyAccess_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	// Issue with a clock 16 minutes in the past so the 15m token is one
	// minute past its expiry by real-time verification.
	past := time.Now().Add(-16 * time.Minute)
	ts.WithClock(func() time.Time { return past })
	token, err := ts.IssueAccess("user-123")
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}
	ts.WithClock(time.Now)

	_, err = ts.VerifyAccess(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("VerifyAccess() error = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyAccess_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.IssueAccess("user-123")

	// Corrupt the signature — the last dot-separated segment.
	tampered := token[:len(token)-3] + "xxx"

	_, err := ts.VerifyAccess(tampered)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("VerifyAccess() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyAccess_ExpiredAndTamperedAreDistinct(t *testing.T) {
	ts := newTestTokenService(t)

	past := time.Now().Add(-16 * time.Minute)
	ts.WithClock(func() time.Time { return past })
	expired, _ := ts.IssueAccess("user-123")
	ts.WithClock(time.Now)

	_, expiredErr := ts.VerifyAccess(expired)
	if errors.Is(expiredErr, ErrTokenInvalid) {
		t.Error("expired token should NOT classify as ErrTokenInvalid")
	}

	fresh, _ := ts.IssueAccess("user-123")
	_, tamperedErr := ts.VerifyAccess(fresh[:len(fresh)-3] + "yyy")
	if errors.Is(tamperedErr, ErrTokenExpired) {
		t.Error("tampered token should NOT classify as ErrTokenExpired")
	}
}

func TestVerifyAccess_GarbageInputs(t *testing.T) {
	ts := newTestTokenService(t)

	for _, input := range []string{"", "garbage", "not.a.jwt", "a.b.c.d"} {
		if _, err := ts.VerifyAccess(input); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("VerifyAccess(%q) error = %v, want ErrTokenInvalid", input, err)
		}
	}
}

func TestVerifyAccess_WrongSecret(t *testing.T) {
	ts1 := newTestTokenService(t)
	ts2, _ := NewTokenService(TokenConfig{
		AccessSecret:  "different-access-secret-16chars!",
		RefreshSecret: testRefreshSecret,
	})

	token, _ := ts1.IssueAccess("user-123")

	if _, err := ts2.VerifyAccess(token); err == nil {
		t.Fatal("VerifyAccess() should fail with a different secret")
	}
}

// =========================================================================
// TOKEN SHAPE TESTS
// =========================================================================

func TestIssue_ProducesJWTShape(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.IssueAccess("user-123")
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token doesn't look like a JWT (want 2 dots): %q", token)
	}
}

func TestIssue_UniqueTokensAtSameInstant(t *testing.T) {
	ts := newTestTokenService(t)

	// Pin the clock so both tokens share iat and exp exactly. Signing is
	// deterministic, so uniqueness has to come from the token itself.
	fixed := time.Now()
	ts.WithClock(func() time.Time { return fixed })

	first, err := ts.IssueRefresh("user-123")
	if err != nil {
		t.Fatalf("IssueRefresh() error = %v", err)
	}
	second, err := ts.IssueRefresh("user-123")
	if err != nil {
		t.Fatalf("IssueRefresh() error = %v", err)
	}
	if first == second {
		t.Fatal("two refresh tokens issued at the same instant must differ")
	}

	// Both remain independently verifiable.
	for _, token := range []string{first, second} {
		if got, err := ts.VerifyRefresh(token); err != nil || got != "user-123" {
			t.Errorf("VerifyRefresh() = %q, %v", got, err)
		}
	}

	a1, _ := ts.IssueAccess("user-123")
	a2, _ := ts.IssueAccess("user-123")
	if a1 == a2 {
		t.Error("two access tokens issued at the same instant must differ")
	}
}

func TestIssue_DifferentUsersGetDifferentTokens(t *testing.T) {
	ts := newTestTokenService(t)

	token1, _ := ts.IssueAccess("user-aaa")
	token2, _ := ts.IssueAccess("user-bbb")

	if token1 == token2 {
		t.Error("IssueAccess() returned identical tokens for different user IDs")
	}
}
