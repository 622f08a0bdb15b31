package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/service"
)

// AuthHandler exposes the session manager over HTTP: register, login,
// logout, token refresh, password change, and the profile endpoints.
//
// TOKEN TRANSPORT:
// Every operation that issues tokens delivers them BOTH ways — as HttpOnly
// cookies (browser clients; JavaScript can't read them, so XSS can't steal
// them) and in the JSON body (header-based API clients). The cookies are
// Secure + SameSite=None because the frontend is hosted on a different
// origin than the API.
type AuthHandler struct {
	sessions     *service.SessionService
	cookieMaxAge time.Duration
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. cookieMaxAge should match the
// refresh-token TTL so the cookie and the credential inside it die together.
func NewAuthHandler(sessions *service.SessionService, cookieMaxAge time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions:     sessions,
		cookieMaxAge: cookieMaxAge,
		logger:       logger,
	}
}

// authResponse is the body returned by register, login, and refresh.
type authResponse struct {
	User         any    `json:"user,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// HandleRegister creates an account and logs it straight in.
//
// HTTP: POST /api/v1/users/register
// Body: {"username","email","password","fullName","avatarUrl"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FullName  string `json:"fullName"`
		AvatarURL string `json:"avatarUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.sessions.Register(r.Context(), service.RegisterParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, result)
	writeJSON(w, http.StatusCreated, authResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

// HandleLogin authenticates with username or email plus password.
//
// HTTP: POST /api/v1/users/login
// Body: {"identifier","password"} — identifier may also arrive as
// "username" or "email" for older clients; first non-empty wins.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Username   string `json:"username"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Username
	}
	if identifier == "" {
		identifier = req.Email
	}

	result, err := h.sessions.Login(r.Context(), identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, result)
	writeJSON(w, http.StatusOK, authResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

// HandleRefresh rotates the refresh token and mints a new access token.
//
// HTTP: POST /api/v1/users/refresh-token
// The refresh token comes from the cookie or, for header-based clients,
// from the body: {"refreshToken": "..."}. Cookie wins if both are present.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie(auth.RefreshTokenCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		// Body is optional when the cookie is set; ignore decode errors.
		_ = json.NewDecoder(r.Body).Decode(&req)
		presented = req.RefreshToken
	}

	result, err := h.sessions.Refresh(r.Context(), presented)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, result)
	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

// HandleLogout ends the session server-side and clears both cookies.
//
// HTTP: POST /api/v1/users/logout (auth required)
// POST, not GET: logout changes state, and GETs get pre-fetched.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	if err := h.sessions.Logout(r.Context(), user.ID); err != nil {
		writeError(w, err)
		return
	}

	h.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleChangePassword swaps the password and kills the current session.
//
// HTTP: POST /api/v1/users/change-password (auth required)
// Body: {"oldPassword","newPassword","confirmPassword"}
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req struct {
		OldPassword     string `json:"oldPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	err := h.sessions.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		writeError(w, err)
		return
	}

	// The refresh token was invalidated with the password; drop the cookies
	// so the client knows to log in again.
	h.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed, please log in again"})
}

// HandleCurrentUser returns the resolved identity's profile.
//
// HTTP: GET /api/v1/users/current-user (auth required)
func (h *AuthHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateAccount updates full name and email.
//
// HTTP: PATCH /api/v1/users/update-account (auth required)
func (h *AuthHandler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	updated, err := h.sessions.UpdateAccount(r.Context(), user.ID, req.FullName, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// HandleUpdateAvatar replaces the avatar URL.
//
// HTTP: PATCH /api/v1/users/update-avatar (auth required)
func (h *AuthHandler) HandleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req struct {
		AvatarURL string `json:"avatarUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	updated, err := h.sessions.UpdateAvatar(r.Context(), user.ID, req.AvatarURL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// HandleDeleteAccount deletes the account and everything it owns.
//
// HTTP: DELETE /api/v1/users/delete-account (auth required)
func (h *AuthHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	if err := h.sessions.DeleteAccount(r.Context(), user.ID); err != nil {
		writeError(w, err)
		return
	}

	h.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

// setSessionCookies writes both token cookies.
//
// SameSite=None requires Secure — browsers drop None cookies on plain HTTP.
// Both cookies share the refresh-token lifetime: the access token inside
// expires long before its cookie does, which is fine, the middleware checks
// the token, not the cookie.
func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, result *service.AuthResult) {
	maxAge := int(h.cookieMaxAge.Seconds())

	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    result.AccessToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     auth.RefreshTokenCookie,
		Value:    result.RefreshToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// clearSessionCookies tells the browser to delete both token cookies.
func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		})
	}
}
