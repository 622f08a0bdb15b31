// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// WHY json:"-" ON THE SECRET FIELDS?
// PasswordHash and RefreshToken must never leave the server. Marking them
// json:"-" means encoding/json skips them entirely, so a handler can return
// a *User directly without accidentally serialising secrets. The db tags
// still let the repository layer read/write them.
//
// SESSION STATE:
// RefreshToken doubles as the session state machine: nil means no active
// session, non-nil means exactly one active session (the single-session
// model — a new login or refresh overwrites it, invalidating the previous
// token string). A *string rather than a string because "no session" and
// "empty token" must be distinguishable in SQL (NULL vs '').
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"` // stored lowercase, unique
	Email        string    `json:"email"     db:"email"`    // unique
	FullName     string    `json:"fullName"  db:"full_name"`
	AvatarURL    string    `json:"avatarUrl" db:"avatar_url"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	RefreshToken *string   `json:"-"         db:"refresh_token"` // nil = no active session
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
