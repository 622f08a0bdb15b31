package model

import "time"

// Tweet is a short text post owned by a user.
type Tweet struct {
	ID        string    `json:"id"        db:"id"`
	OwnerID   string    `json:"ownerId"   db:"owner_id"`
	Content   string    `json:"content"   db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TweetOwner is the slice of the owner's profile embedded in feed responses.
// Mirrors what the frontend needs to render a post card — never includes
// email or any secret field.
type TweetOwner struct {
	ID        string `json:"id"        db:"id"`
	Username  string `json:"username"  db:"username"`
	FullName  string `json:"fullName"  db:"full_name"`
	AvatarURL string `json:"avatarUrl" db:"avatar_url"`
}

// FeedTweet is a tweet enriched with its owner and like information for a
// particular viewer. IsLiked is always false for anonymous viewers.
type FeedTweet struct {
	Tweet
	Owner      TweetOwner `json:"owner"`
	LikesCount int        `json:"likesCount"`
	IsLiked    bool       `json:"isLiked"`
}
