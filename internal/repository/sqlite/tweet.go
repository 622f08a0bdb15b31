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

// TweetDB stores tweets.
type TweetDB struct {
	conn *sql.DB
}

var _ repository.TweetRepository = (*TweetDB)(nil)

// feedSelect is the enriched tweet projection used by every read path:
// the tweet row, its owner's public profile, the like count, and whether a
// given viewer liked it. The two correlated subqueries replace what would
// otherwise be an N+1 loop over likes in the service layer.
//
// Placeholder 1 is the viewer ID; "" (anonymous) simply never matches.
const feedSelect = `
	SELECT t.id, t.owner_id, t.content, t.created_at, t.updated_at,
	       u.id, u.username, u.full_name, u.avatar_url,
	       (SELECT COUNT(*) FROM likes l WHERE l.tweet_id = t.id),
	       EXISTS(SELECT 1 FROM likes l WHERE l.tweet_id = t.id AND l.user_id = ?)
	FROM tweets t
	JOIN users u ON u.id = t.owner_id`

// Create inserts a new tweet, generating its ID and timestamps.
func (tw *TweetDB) Create(ctx context.Context, tweet *model.Tweet) error {
	tweet.ID = xid.New().String()
	now := time.Now().UTC()
	tweet.CreatedAt = now
	tweet.UpdatedAt = now

	_, err := tw.conn.ExecContext(ctx,
		`INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		tweet.ID,
		tweet.OwnerID,
		tweet.Content,
		tweet.CreatedAt,
		tweet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting tweet: %w", err)
	}

	return nil
}

// GetByID retrieves a bare tweet (no owner/like enrichment) — used by the
// service layer for ownership checks before update/delete.
func (tw *TweetDB) GetByID(ctx context.Context, id string) (*model.Tweet, error) {
	var t model.Tweet

	err := tw.conn.QueryRowContext(ctx,
		`SELECT id, owner_id, content, created_at, updated_at FROM tweets WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("tweet", id)
		}
		return nil, fmt.Errorf("sqlite: getting tweet %s: %w", id, err)
	}

	return &t, nil
}

// ListByOwner returns one user's tweets newest-first. The viewer is the
// owner themselves, so IsLiked reflects the owner's own likes.
func (tw *TweetDB) ListByOwner(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.FeedTweet, int, error) {
	tweets, err := tw.queryFeed(ctx,
		feedSelect+` WHERE t.owner_id = ? ORDER BY t.created_at DESC, t.id DESC LIMIT ? OFFSET ?`,
		ownerID, ownerID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := tw.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tweets WHERE owner_id = ?`, ownerID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting tweets for owner %s: %w", ownerID, err)
	}

	return tweets, total, nil
}

// Feed returns every tweet newest-first, enriched for viewerID (may be "").
func (tw *TweetDB) Feed(ctx context.Context, viewerID string, opts repository.ListOptions) ([]model.FeedTweet, int, error) {
	tweets, err := tw.queryFeed(ctx,
		feedSelect+` ORDER BY t.created_at DESC, t.id DESC LIMIT ? OFFSET ?`,
		viewerID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := tw.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweets`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting tweets: %w", err)
	}

	return tweets, total, nil
}

// Update rewrites the content and bumps updated_at. Ownership has already
// been checked by the service; this is a plain row update.
func (tw *TweetDB) Update(ctx context.Context, tweet *model.Tweet) error {
	tweet.UpdatedAt = time.Now().UTC()

	res, err := tw.conn.ExecContext(ctx,
		`UPDATE tweets SET content = ?, updated_at = ? WHERE id = ?`,
		tweet.Content, tweet.UpdatedAt, tweet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating tweet %s: %w", tweet.ID, err)
	}
	return tw.requireRow(res, tweet.ID)
}

// Delete removes a tweet; its likes cascade away with it.
func (tw *TweetDB) Delete(ctx context.Context, id string) error {
	res, err := tw.conn.ExecContext(ctx, `DELETE FROM tweets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting tweet %s: %w", id, err)
	}
	return tw.requireRow(res, id)
}

func (tw *TweetDB) requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for tweet %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("tweet", id)
	}
	return nil
}

// queryFeed runs any feedSelect-shaped query and scans the rows.
func (tw *TweetDB) queryFeed(ctx context.Context, query string, args ...any) ([]model.FeedTweet, error) {
	rows, err := tw.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying feed: %w", err)
	}
	defer rows.Close()

	return scanFeedRows(rows)
}

// scanFeedRows is shared with LikeDB.ListLikedTweets, which selects the
// same columns.
func scanFeedRows(rows *sql.Rows) ([]model.FeedTweet, error) {
	// Initialise non-nil so an empty page serialises as [] rather than null.
	tweets := []model.FeedTweet{}

	for rows.Next() {
		var ft model.FeedTweet
		err := rows.Scan(
			&ft.ID,
			&ft.OwnerID,
			&ft.Content,
			&ft.CreatedAt,
			&ft.UpdatedAt,
			&ft.Owner.ID,
			&ft.Owner.Username,
			&ft.Owner.FullName,
			&ft.Owner.AvatarURL,
			&ft.LikesCount,
			&ft.IsLiked,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning feed row: %w", err)
		}
		tweets = append(tweets, ft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating feed rows: %w", err)
	}

	return tweets, nil
}
