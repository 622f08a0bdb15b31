// Package sqlite implements the repository interfaces on SQLite.
//
// WHY SQLITE?
// The store's contract (spec-wise) is a document/row store with atomic
// per-record updates and unique indexes on username and email — SQLite
// delivers all of that embedded in the binary, with ":memory:" databases
// for tests. modernc.org/sqlite is the pure-Go translation of SQLite, so
// there's no CGo and cross-compilation stays painless.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB pool. Repository implementations hang off it via the
// Users/Tweets/Likes accessors so each interface gets its own receiver type
// (the method sets would otherwise collide on Create).
type DB struct {
	conn *sql.DB
}

// New opens the database, configures it, and runs migrations.
//
// dbPath is a file path, or ":memory:" for an in-memory database (tests).
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an immediate connection so a bad path fails here, not on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — necessary for a
	// web server where requests hit the DB concurrently.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite. The cascade from users to
	// tweets to likes depends on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Flushes the WAL and releases the file
// lock — always deferred wherever New is called.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the UserRepository implementation.
func (db *DB) Users() *UserDB { return &UserDB{conn: db.conn} }

// Tweets returns the TweetRepository implementation.
func (db *DB) Tweets() *TweetDB { return &TweetDB{conn: db.conn} }

// Likes returns the LikeRepository implementation.
func (db *DB) Likes() *LikeDB { return &LikeDB{conn: db.conn} }

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent — safe to run on every start.
func (db *DB) migrate() error {
	// username is COLLATE NOCASE so the UNIQUE index treats "Alice" and
	// "alice" as the same name; the service additionally normalises
	// usernames to lowercase on create.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE COLLATE NOCASE,
			email         TEXT NOT NULL UNIQUE,
			full_name     TEXT NOT NULL DEFAULT '',
			avatar_url    TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			refresh_token TEXT,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tweets (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			content    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tweets_owner_id ON tweets(owner_id);
		CREATE INDEX IF NOT EXISTS idx_tweets_created_at ON tweets(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating tweets table: %w", err)
	}

	// One like per (tweet, user) — the toggle endpoint relies on this.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS likes (
			id         TEXT PRIMARY KEY,
			tweet_id   TEXT NOT NULL REFERENCES tweets(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(tweet_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_likes_user_id ON likes(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating likes table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite exposes no typed constraint error, so matching the
// message text is the only portable check.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
