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

// LikeDB stores likes.
type LikeDB struct {
	conn *sql.DB
}

var _ repository.LikeRepository = (*LikeDB)(nil)

// Create inserts a like. The UNIQUE(tweet_id, user_id) index makes a double
// like surface as a conflict rather than a duplicate row — the toggle logic
// in the service normally prevents it, but two racing toggles can both reach
// the insert.
func (l *LikeDB) Create(ctx context.Context, like *model.Like) error {
	like.ID = xid.New().String()
	like.CreatedAt = time.Now().UTC()

	_, err := l.conn.ExecContext(ctx,
		`INSERT INTO likes (id, tweet_id, user_id, created_at) VALUES (?, ?, ?, ?)`,
		like.ID,
		like.TweetID,
		like.UserID,
		like.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("like", "tweet already liked")
		}
		return fmt.Errorf("sqlite: inserting like: %w", err)
	}

	return nil
}

// Get returns the like by userID on tweetID, or apperror.ErrNotFound.
func (l *LikeDB) Get(ctx context.Context, tweetID, userID string) (*model.Like, error) {
	var like model.Like

	err := l.conn.QueryRowContext(ctx,
		`SELECT id, tweet_id, user_id, created_at FROM likes WHERE tweet_id = ? AND user_id = ?`,
		tweetID, userID,
	).Scan(&like.ID, &like.TweetID, &like.UserID, &like.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("like", tweetID)
		}
		return nil, fmt.Errorf("sqlite: getting like for tweet %s: %w", tweetID, err)
	}

	return &like, nil
}

// Delete removes a like by its ID.
func (l *LikeDB) Delete(ctx context.Context, id string) error {
	res, err := l.conn.ExecContext(ctx, `DELETE FROM likes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting like %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for like %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("like", id)
	}
	return nil
}

// CountForTweet returns how many likes a tweet has.
func (l *LikeDB) CountForTweet(ctx context.Context, tweetID string) (int, error) {
	var count int
	err := l.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE tweet_id = ?`, tweetID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting likes for tweet %s: %w", tweetID, err)
	}
	return count, nil
}

// ListLikedTweets returns the tweets a user liked, most recently liked
// first. Deleted tweets never appear: the FK cascade removed their likes.
// IsLiked is constitutively true on this path (these ARE the user's likes).
func (l *LikeDB) ListLikedTweets(ctx context.Context, userID string, opts repository.ListOptions) ([]model.FeedTweet, int, error) {
	rows, err := l.conn.QueryContext(ctx, `
		SELECT t.id, t.owner_id, t.content, t.created_at, t.updated_at,
		       u.id, u.username, u.full_name, u.avatar_url,
		       (SELECT COUNT(*) FROM likes lc WHERE lc.tweet_id = t.id),
		       1
		FROM likes l
		JOIN tweets t ON t.id = l.tweet_id
		JOIN users u ON u.id = t.owner_id
		WHERE l.user_id = ?
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: querying liked tweets: %w", err)
	}
	defer rows.Close()

	tweets, err := scanFeedRows(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := l.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting liked tweets for user %s: %w", userID, err)
	}

	return tweets, total, nil
}
