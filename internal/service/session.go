// Package service contains the business logic layer: the session manager
// (this file) plus tweet and like services. Handlers parse HTTP and write
// responses; services enforce the rules; repositories touch SQL. Nothing in
// this package knows about status codes or cookies.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// Validation rules for account fields.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 6
	MinFullNameLength = 2
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// SessionService is the session manager: it orchestrates registration,
// login, logout, token refresh, and password/profile changes across the
// credential store, the password hasher, and the token issuer.
//
// The session state machine per user is implicit in the stored refresh
// token: NULL ⇄ one active token string. Every transition below is a single
// repository write, so concurrent transitions for the same user settle
// last-write-wins and never leave two valid sessions.
type SessionService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewSessionService wires the session manager's dependencies.
func NewSessionService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user with a freshly issued token pair, so the
// handler can set cookies and build the response body in one step.
type AuthResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// RegisterParams is the input to Register. AvatarURL is optional; the rest
// are required.
type RegisterParams struct {
	Username  string
	Email     string
	Password  string
	FullName  string
	AvatarURL string
}

// Register creates an account and immediately logs it in (registration
// implies login — the client gets a token pair straight away).
//
// The username is normalised to lowercase before storage, and uniqueness of
// username (any case variant) and email is enforced twice: a friendly
// existence check here, and the UNIQUE indexes underneath for the race
// where two registrations pass the check simultaneously.
//
// If token issuance fails after the user row is created, the error is
// returned as-is: the password is already stored, so the user simply logs
// in normally — no half-session to clean up.
func (s *SessionService) Register(ctx context.Context, p RegisterParams) (*AuthResult, error) {
	p.Username = strings.ToLower(strings.TrimSpace(p.Username))
	p.Email = strings.TrimSpace(p.Email)
	p.FullName = strings.TrimSpace(p.FullName)

	if err := validateUsername(p.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(p.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(p.Password); err != nil {
		return nil, err
	}
	if len(p.FullName) < MinFullNameLength {
		return nil, apperror.ValidationFailed("fullName", "full name is required")
	}

	// Friendly pre-check so the common duplicate case gets a clean message.
	if existing, err := s.users.GetByUsernameOrEmail(ctx, p.Username); err == nil && existing != nil {
		return nil, apperror.Conflict("user", "username or email is taken")
	} else if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/session: checking username %s: %w", p.Username, err)
	}
	if existing, err := s.users.GetByUsernameOrEmail(ctx, p.Email); err == nil && existing != nil {
		return nil, apperror.Conflict("user", "username or email is taken")
	} else if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/session: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(p.Password)
	if err != nil {
		return nil, fmt.Errorf("service/session: hashing password: %w", err)
	}

	user := &model.User{
		Username:     p.Username,
		Email:        p.Email,
		FullName:     p.FullName,
		AvatarURL:    strings.TrimSpace(p.AvatarURL),
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err // Conflict from the unique indexes passes through
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.startSession(ctx, user)
}

// Login authenticates by username or email plus password and starts a new
// session, overwriting any previous one (single active session per user —
// a login on a second device logs the first one out at the refresh level).
//
// Unknown identifier and wrong password return the IDENTICAL error. Serving
// a distinguishable "no such user" would let anyone probe which usernames
// and emails exist.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperror.ValidationFailed("identifier", "username or email and password are required")
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/session: looking up user: %w", err)
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		s.logger.Info("login failed", slog.String("userID", user.ID))
		return nil, apperror.InvalidCredentials()
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.startSession(ctx, user)
}

// Refresh rotates the session: it validates the presented refresh token and
// issues a replacement pair, invalidating the presented token string.
//
// TWO CHECKS, BOTH REQUIRED:
//  1. Signature + expiry (the token is well-formed and current)
//  2. Exact equality with the stored refresh token
//
// Check 2 is the replay defense. A token that was rotated out is still
// cryptographically valid until its own expiry — only the stored-value
// comparison catches an attacker (or a stale client) presenting it again.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*AuthResult, error) {
	if presented == "" {
		return nil, apperror.Unauthorized("refresh token required")
	}

	userID, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		s.logger.Debug("refresh rejected", slog.String("reason", err.Error()))
		return nil, apperror.Unauthorized("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("service/session: looking up user %s: %w", userID, err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != presented {
		// Rotated-out or post-logout token. Possibly replay.
		s.logger.Warn("refresh token reuse detected", slog.String("userID", user.ID))
		return nil, apperror.Unauthorized("refresh token is expired or already used")
	}

	return s.startSession(ctx, user)
}

// Logout clears the stored refresh token, ending the session. Idempotent:
// logging out an already-logged-out user succeeds quietly. Outstanding
// access tokens stay valid until they expire — that window is the accepted
// cost of stateless access tokens.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil // account gone = nothing to log out
		}
		return fmt.Errorf("service/session: clearing refresh token for %s: %w", userID, err)
	}

	s.logger.Info("user logged out", slog.String("userID", userID))
	return nil
}

// ChangePassword re-verifies the old password, then swaps the hash and
// invalidates the current session in one atomic store write. The caller
// must log in again with the new password — a stolen session does not
// survive a password change.
func (s *SessionService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirm string) error {
	if newPassword != confirm {
		return apperror.ValidationFailed("confirmPassword", "new password and confirmation do not match")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/session: looking up user %s: %w", userID, err)
	}

	if !s.passwords.Verify(oldPassword, user.PasswordHash) {
		return &apperror.AppError{
			Err:     apperror.ErrInvalidCredentials,
			Message: "old password is incorrect",
		}
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/session: hashing new password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("service/session: updating password for %s: %w", userID, err)
	}

	s.logger.Info("password changed, session invalidated", slog.String("userID", userID))
	return nil
}

// UpdateAccount changes the mutable profile fields (full name, email).
func (s *SessionService) UpdateAccount(ctx context.Context, userID, fullName, email string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	if len(fullName) < MinFullNameLength {
		return nil, apperror.ValidationFailed("fullName", "full name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	if err := s.users.UpdateProfile(ctx, userID, fullName, email); err != nil {
		return nil, err
	}

	return s.users.GetByID(ctx, userID)
}

// UpdateAvatar replaces the avatar URL. Upload and image hosting happen
// elsewhere; the core only stores the reference.
func (s *SessionService) UpdateAvatar(ctx context.Context, userID, avatarURL string) (*model.User, error) {
	avatarURL = strings.TrimSpace(avatarURL)
	if avatarURL == "" {
		return nil, apperror.ValidationFailed("avatarUrl", "avatar URL is required")
	}

	if err := s.users.UpdateAvatar(ctx, userID, avatarURL); err != nil {
		return nil, err
	}

	return s.users.GetByID(ctx, userID)
}

// DeleteAccount removes the user; the store cascades the deletion to their
// tweets and likes. Any still-valid access token for the account dies at
// the resolver's user lookup.
func (s *SessionService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("account deleted", slog.String("userID", userID))
	return nil
}

// GetUserByID returns the user for /current-user style lookups.
func (s *SessionService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetByID(ctx, id)
}

// startSession issues a fresh access+refresh pair and persists the refresh
// token, unconditionally superseding whatever session existed before.
// Transition: no-session/session-active → session-active.
func (s *SessionService) startSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	accessToken, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/session: issuing access token for %s: %w", user.ID, err)
	}

	refreshToken, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/session: issuing refresh token for %s: %w", user.ID, err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("service/session: storing refresh token for %s: %w", user.ID, err)
	}
	user.RefreshToken = &refreshToken

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func validateUsername(username string) error {
	if len(username) < MinUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be at least %d characters", MinUsernameLength))
	}
	if len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if !usernamePattern.MatchString(username) {
		return apperror.ValidationFailed("username",
			"username can only contain letters, numbers, and underscores")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperror.ValidationFailed("email", "invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > 72 {
		return apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}
	return nil
}
