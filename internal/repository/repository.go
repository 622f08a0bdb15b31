// Package repository declares the storage interfaces consumed by the service
// layer. The concrete SQLite implementation lives in repository/sqlite;
// services depend only on these interfaces, which is what lets tests swap in
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/microblog/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the credential store. All single-row writes are atomic
// (one UPDATE statement each) — concurrent logins/refreshes for the same
// user race last-write-wins on refresh_token, which fails closed: exactly
// one of the racing tokens stays valid.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByUsernameOrEmail looks the user up by either unique identifier.
	// Username matching is case-insensitive.
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error)
	// SetRefreshToken stores the user's single current refresh token
	// (login/rotation). ClearRefreshToken ends the session (logout).
	SetRefreshToken(ctx context.Context, id, token string) error
	ClearRefreshToken(ctx context.Context, id string) error
	// UpdatePassword swaps the hash AND clears the refresh token in one
	// statement, so a password change atomically invalidates the session.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id, fullName, email string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	// Delete removes the user; owned tweets and likes cascade at the
	// storage level.
	Delete(ctx context.Context, id string) error
}

type TweetRepository interface {
	Create(ctx context.Context, tweet *model.Tweet) error
	GetByID(ctx context.Context, id string) (*model.Tweet, error)
	// ListByOwner returns the owner's tweets newest-first plus the total count.
	ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]model.FeedTweet, int, error)
	// Feed returns all tweets newest-first with owner info, like counts, and
	// IsLiked for viewerID ("" for anonymous viewers), plus the total count.
	Feed(ctx context.Context, viewerID string, opts ListOptions) ([]model.FeedTweet, int, error)
	Update(ctx context.Context, tweet *model.Tweet) error
	Delete(ctx context.Context, id string) error
}

type LikeRepository interface {
	Create(ctx context.Context, like *model.Like) error
	// Get returns the like by a user on a tweet, or apperror.ErrNotFound.
	Get(ctx context.Context, tweetID, userID string) (*model.Like, error)
	Delete(ctx context.Context, id string) error
	CountForTweet(ctx context.Context, tweetID string) (int, error)
	// ListLikedTweets returns the tweets a user liked, newest like first.
	// Likes whose tweet has since been deleted never appear (FK cascade
	// removes them).
	ListLikedTweets(ctx context.Context, userID string, opts ListOptions) ([]model.FeedTweet, int, error)
}
