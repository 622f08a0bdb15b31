package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// Tweet validation and pagination limits.
const (
	MaxTweetLength   = 280
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// TweetService handles the business logic for tweets: validation, ownership
// enforcement, and feed assembly. Authorization here is just a comparison —
// the identity itself comes from the resolver, which has already done the
// hard part.
type TweetService struct {
	tweets repository.TweetRepository
	logger *slog.Logger
}

// NewTweetService creates a TweetService.
func NewTweetService(tweets repository.TweetRepository, logger *slog.Logger) *TweetService {
	return &TweetService{
		tweets: tweets,
		logger: logger,
	}
}

// TweetPage is a page of feed tweets plus pagination info.
type TweetPage struct {
	Tweets []model.FeedTweet `json:"tweets"`
	Page   int               `json:"page"`
	Limit  int               `json:"limit"`
	Total  int               `json:"total"`
}

// Create validates and saves a new tweet owned by ownerID.
func (s *TweetService) Create(ctx context.Context, ownerID, content string) (*model.Tweet, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "tweet content is required")
	}
	if len([]rune(content)) > MaxTweetLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("tweet must be %d characters or less", MaxTweetLength))
	}

	tweet := &model.Tweet{
		OwnerID: ownerID,
		Content: content,
	}

	if err := s.tweets.Create(ctx, tweet); err != nil {
		s.logger.Error("failed to create tweet",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating tweet: %w", err)
	}

	s.logger.Info("tweet created",
		slog.String("id", tweet.ID),
		slog.String("ownerID", ownerID),
	)

	return tweet, nil
}

// Update rewrites a tweet's content. Only the owner may update; anyone else
// gets Forbidden, which deliberately confirms the tweet exists — tweets are
// public, so that's not a leak.
func (s *TweetService) Update(ctx context.Context, userID, tweetID, content string) (*model.Tweet, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "tweet content is required")
	}
	if len([]rune(content)) > MaxTweetLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("tweet must be %d characters or less", MaxTweetLength))
	}

	tweet, err := s.tweets.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}

	if tweet.OwnerID != userID {
		return nil, apperror.Forbidden("you are not allowed to update this tweet")
	}

	tweet.Content = content
	if err := s.tweets.Update(ctx, tweet); err != nil {
		s.logger.Error("failed to update tweet",
			slog.String("id", tweetID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating tweet: %w", err)
	}

	s.logger.Info("tweet updated", slog.String("id", tweetID))
	return tweet, nil
}

// Delete removes a tweet after an ownership check. Its likes cascade away
// in the store.
func (s *TweetService) Delete(ctx context.Context, userID, tweetID string) error {
	tweet, err := s.tweets.GetByID(ctx, tweetID)
	if err != nil {
		return err
	}

	if tweet.OwnerID != userID {
		return apperror.Forbidden("you are not allowed to delete this tweet")
	}

	if err := s.tweets.Delete(ctx, tweetID); err != nil {
		return fmt.Errorf("deleting tweet: %w", err)
	}

	s.logger.Info("tweet deleted", slog.String("id", tweetID))
	return nil
}

// ListUser returns a page of the user's own tweets, newest first.
func (s *TweetService) ListUser(ctx context.Context, userID string, page, limit int) (*TweetPage, error) {
	page, limit = clampPage(page, limit)

	tweets, total, err := s.tweets.ListByOwner(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		s.logger.Error("failed to list user tweets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing tweets: %w", err)
	}

	return &TweetPage{Tweets: tweets, Page: page, Limit: limit, Total: total}, nil
}

// Feed returns a page of all tweets newest-first, enriched with like counts
// and — when viewerID is non-empty — whether the viewer liked each one.
func (s *TweetService) Feed(ctx context.Context, viewerID string, page, limit int) (*TweetPage, error) {
	page, limit = clampPage(page, limit)

	tweets, total, err := s.tweets.Feed(ctx, viewerID, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		s.logger.Error("failed to load feed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("loading feed: %w", err)
	}

	return &TweetPage{Tweets: tweets, Page: page, Limit: limit, Total: total}, nil
}

// clampPage normalises pagination input to sane bounds.
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
