package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// UserDB is the credential store backed by the users table.
type UserDB struct {
	conn *sql.DB
}

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, username, email, full_name, avatar_url, password_hash, refresh_token, created_at, updated_at`

// Create inserts a new user. The ID and timestamps are generated here and
// written back into the caller's struct (pointer receiver on the model).
// A duplicate username or email surfaces as apperror.ErrConflict — the
// UNIQUE indexes are the authority, so two racing registrations can't both
// win even if the service-level existence check passed for both.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, full_name, avatar_url, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.AvatarURL,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "username or email is taken")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no such user exists.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByUsernameOrEmail looks a user up by either unique identifier, the way
// a login form accepts both. Username matching is case-insensitive (the
// column is COLLATE NOCASE); email matching is exact.
func (u *UserDB) GetByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	return u.getOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ?`,
		identifier, identifier,
	)
}

func (u *UserDB) getOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	var user model.User

	err := u.conn.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.AvatarURL,
		&user.PasswordHash,
		&user.RefreshToken, // *string handles NULL without sql.NullString
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(args[0]))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	return &user, nil
}

// SetRefreshToken stores the user's current refresh token. A single UPDATE,
// so concurrent logins/refreshes resolve last-write-wins — at most one of
// the racing tokens ends up valid.
func (u *UserDB) SetRefreshToken(ctx context.Context, id, token string) error {
	return u.update(ctx, id,
		`UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?`,
		token, time.Now().UTC(), id,
	)
}

// ClearRefreshToken ends the user's session by nulling the stored token.
func (u *UserDB) ClearRefreshToken(ctx context.Context, id string) error {
	return u.update(ctx, id,
		`UPDATE users SET refresh_token = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
}

// UpdatePassword swaps the password hash and clears the refresh token in
// the same statement. One UPDATE = atomic: there is no window where the new
// password coexists with the old session.
func (u *UserDB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return u.update(ctx, id,
		`UPDATE users SET password_hash = ?, refresh_token = NULL, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id,
	)
}

// UpdateProfile changes the mutable profile fields. An email collision with
// another account surfaces as apperror.ErrConflict.
func (u *UserDB) UpdateProfile(ctx context.Context, id, fullName, email string) error {
	err := u.update(ctx, id,
		`UPDATE users SET full_name = ?, email = ?, updated_at = ? WHERE id = ?`,
		fullName, email, time.Now().UTC(), id,
	)
	if isUniqueViolation(err) {
		return apperror.Conflict("user", "email is taken")
	}
	return err
}

// UpdateAvatar replaces the avatar URL.
func (u *UserDB) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	return u.update(ctx, id,
		`UPDATE users SET avatar_url = ?, updated_at = ? WHERE id = ?`,
		avatarURL, time.Now().UTC(), id,
	)
}

// Delete removes the user. Tweets and likes referencing the account go with
// it via ON DELETE CASCADE — cascading cleanup is the store's job, not the
// session manager's.
func (u *UserDB) Delete(ctx context.Context, id string) error {
	res, err := u.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	return u.requireRow(res, id)
}

// update runs a single-row UPDATE and converts "no row matched" into
// NotFound, so services don't silently no-op on a deleted account.
func (u *UserDB) update(ctx context.Context, id, query string, args ...any) error {
	res, err := u.conn.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return err // caller maps this to a field-specific Conflict
		}
		return fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	return u.requireRow(res, id)
}

func (u *UserDB) requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for user %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
