package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const testOrigin = "https://app.example.com"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func corsRequest(method, origin, requestMethod string) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/tweets/get-all-tweets", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if requestMethod != "" {
		req.Header.Set("Access-Control-Request-Method", requestMethod)
	}
	return req
}

// =========================================================================
// CORS TESTS
// =========================================================================

func TestCORS_MatchingOrigin(t *testing.T) {
	h := CORS(testOrigin)(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, corsRequest(http.MethodGet, testOrigin, ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Errorf("Allow-Origin = %q, want %q", got, testOrigin)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}
}

func TestCORS_NonMatchingOriginGetsNoAllowHeaders(t *testing.T) {
	h := CORS(testOrigin)(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, corsRequest(http.MethodGet, "https://evil.example.com", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (CORS doesn't block server-side)", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want unset for a foreign origin", got)
	}
}

func TestCORS_PreflightAnsweredUniformly(t *testing.T) {
	h := CORS(testOrigin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight should be answered by the middleware, not the router")
	}))

	// Matching, non-matching, and absent Origin all get the same 204 —
	// the browser decides from the allow headers (or their absence).
	for _, origin := range []string{testOrigin, "https://evil.example.com", ""} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, corsRequest(http.MethodOptions, origin, http.MethodPost))

		if rr.Code != http.StatusNoContent {
			t.Errorf("preflight with origin %q: status = %d, want 204", origin, rr.Code)
		}
	}
}

func TestCORS_PreflightFromAllowedOriginCarriesAllowHeaders(t *testing.T) {
	h := CORS(testOrigin)(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, corsRequest(http.MethodOptions, testOrigin, http.MethodPost))

	if got := rr.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("preflight from the allowed origin should list allowed methods")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Errorf("Allow-Origin = %q, want %q", got, testOrigin)
	}
}

func TestCORS_VaryOriginAlwaysSet(t *testing.T) {
	h := CORS(testOrigin)(okHandler())

	for _, origin := range []string{testOrigin, "https://evil.example.com", ""} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, corsRequest(http.MethodGet, origin, ""))

		if got := rr.Header().Get("Vary"); got != "Origin" {
			t.Errorf("origin %q: Vary = %q, want Origin", origin, got)
		}
	}
}

func TestCORS_EmptyOriginConfigIsNoOp(t *testing.T) {
	h := CORS("")(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, corsRequest(http.MethodGet, "https://anywhere.example.com", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Vary"); got != "" {
		t.Errorf("Vary = %q, want unset when CORS is disabled", got)
	}
}
