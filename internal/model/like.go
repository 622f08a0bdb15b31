package model

import "time"

// Like records that a user liked a tweet. The (TweetID, UserID) pair is
// unique — liking is idempotent at the storage level, and the service layer
// toggles by deleting an existing row.
type Like struct {
	ID        string    `json:"id"        db:"id"`
	TweetID   string    `json:"tweetId"   db:"tweet_id"`
	UserID    string    `json:"userId"    db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
