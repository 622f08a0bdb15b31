package middleware

import "net/http"

// CORS allows a single separately-hosted frontend origin to call the API
// with credentials. Credentialed CORS forbids the "*" wildcard, so the
// origin must be configured explicitly; when it's empty the middleware is
// a no-op (same-origin deployments).
//
// Vary: Origin goes out on every response so shared caches never serve a
// response negotiated for one origin to another. Preflights are answered
// uniformly with 204 — a preflight from a non-matching origin gets no
// allow headers, which is how the browser learns it's blocked.
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if origin == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			if r.Header.Get("Origin") == origin {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
