package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// LikeService handles like/unlike toggling and like-based reads.
type LikeService struct {
	likes  repository.LikeRepository
	tweets repository.TweetRepository
	logger *slog.Logger
}

// NewLikeService creates a LikeService. It needs the tweet repository too,
// to reject likes on tweets that don't exist.
func NewLikeService(likes repository.LikeRepository, tweets repository.TweetRepository, logger *slog.Logger) *LikeService {
	return &LikeService{
		likes:  likes,
		tweets: tweets,
		logger: logger,
	}
}

// LikeStatus is the result of a toggle or count: the current like state for
// the acting user and the tweet's total.
type LikeStatus struct {
	TweetID    string `json:"tweetId"`
	IsLiked    bool   `json:"isLiked"`
	LikesCount int    `json:"likesCount"`
}

// Toggle likes the tweet if the user hasn't liked it, unlikes it if they
// have. Returns the resulting state plus the fresh count.
//
// Two racing toggles can both see "not liked" and both try to insert; the
// UNIQUE(tweet_id, user_id) index turns the loser into a Conflict, which we
// fold into the liked state rather than surfacing — the user's intent
// ("make it liked") was satisfied.
func (s *LikeService) Toggle(ctx context.Context, userID, tweetID string) (*LikeStatus, error) {
	if tweetID == "" {
		return nil, apperror.ValidationFailed("tweetId", "tweet ID is required")
	}

	// The FK would catch a missing tweet too, but a clean NotFound beats a
	// constraint error.
	if _, err := s.tweets.GetByID(ctx, tweetID); err != nil {
		return nil, err
	}

	existing, err := s.likes.Get(ctx, tweetID, userID)
	switch {
	case err == nil:
		// Already liked → unlike.
		if err := s.likes.Delete(ctx, existing.ID); err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("removing like: %w", err)
		}
		s.logger.Info("tweet unliked",
			slog.String("tweetID", tweetID),
			slog.String("userID", userID),
		)
		return s.status(ctx, tweetID, false)

	case errors.Is(err, apperror.ErrNotFound):
		like := &model.Like{TweetID: tweetID, UserID: userID}
		if err := s.likes.Create(ctx, like); err != nil && !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("creating like: %w", err)
		}
		s.logger.Info("tweet liked",
			slog.String("tweetID", tweetID),
			slog.String("userID", userID),
		)
		return s.status(ctx, tweetID, true)

	default:
		return nil, fmt.Errorf("checking like: %w", err)
	}
}

// Count returns the like total for a tweet. NotFound for a missing tweet.
func (s *LikeService) Count(ctx context.Context, tweetID string) (*LikeStatus, error) {
	if tweetID == "" {
		return nil, apperror.ValidationFailed("tweetId", "tweet ID is required")
	}

	if _, err := s.tweets.GetByID(ctx, tweetID); err != nil {
		return nil, err
	}

	count, err := s.likes.CountForTweet(ctx, tweetID)
	if err != nil {
		return nil, fmt.Errorf("counting likes: %w", err)
	}

	return &LikeStatus{TweetID: tweetID, LikesCount: count}, nil
}

// LikedTweets returns a page of tweets the user liked, most recent like
// first.
func (s *LikeService) LikedTweets(ctx context.Context, userID string, page, limit int) (*TweetPage, error) {
	page, limit = clampPage(page, limit)

	tweets, total, err := s.likes.ListLikedTweets(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		s.logger.Error("failed to list liked tweets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing liked tweets: %w", err)
	}

	return &TweetPage{Tweets: tweets, Page: page, Limit: limit, Total: total}, nil
}

func (s *LikeService) status(ctx context.Context, tweetID string, isLiked bool) (*LikeStatus, error) {
	count, err := s.likes.CountForTweet(ctx, tweetID)
	if err != nil {
		return nil, fmt.Errorf("counting likes: %w", err)
	}
	return &LikeStatus{TweetID: tweetID, IsLiked: isLiked, LikesCount: count}, nil
}
