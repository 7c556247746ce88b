package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aytch4k/socialz/internal/model"
)

// TwitterSQLite implements TwitterStore backed by a SQLite database.
type TwitterSQLite struct {
	db *sql.DB
}

// NewTwitterSQLite opens the Twitter store at dsn and runs pending
// migrations.
func NewTwitterSQLite(dsn string) (*TwitterSQLite, error) {
	db, err := openSQLite(dsn, "twitter")
	if err != nil {
		return nil, err
	}
	return &TwitterSQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *TwitterSQLite) Close() error {
	return s.db.Close()
}

// UpsertAccount inserts the account if absent and returns the stored row.
func (s *TwitterSQLite) UpsertAccount(ctx context.Context, username string) (*model.Account, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (username, created_at) VALUES (?, ?)`,
		username, formatTime(time.Now()),
	); err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, created_at FROM accounts WHERE username = ?`, username)
	var a model.Account
	var created string
	if err := row.Scan(&a.ID, &a.NaturalKey, &created); err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.CreatedAt = parseTime(created)
	return &a, nil
}

// SaveMetrics appends one snapshot row and populates its ID.
func (s *TwitterSQLite) SaveMetrics(ctx context.Context, m *model.TwitterMetrics) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (account_id, timestamp_utc, total_followers, follower_growth,
		    impressions, engagement_rate, link_clicks, profile_visits, reposts, mentions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AccountID, formatTime(m.Timestamp), m.TotalFollowers, m.FollowerGrowth,
		m.Impressions, m.EngagementRate, m.LinkClicks, m.ProfileVisits, m.Reposts, m.Mentions,
	)
	if err != nil {
		return fmt.Errorf("insert metrics: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

// SaveTweet inserts or replaces a tweet row keyed by its tweet ID.
func (s *TwitterSQLite) SaveTweet(ctx context.Context, accountID int64, t *model.Tweet) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO posts (account_id, tweet_id, content, created_at_utc, likes, retweets, replies)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		accountID, t.TweetID, t.Content, formatTime(t.CreatedAt), t.Likes, t.Retweets, t.Replies,
	)
	if err != nil {
		return fmt.Errorf("save tweet: %w", err)
	}
	return nil
}

// LatestMetrics returns the most recent snapshot for the account, or nil
// when none exists.
func (s *TwitterSQLite) LatestMetrics(ctx context.Context, accountID int64) (*model.TwitterMetrics, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, timestamp_utc, total_followers, follower_growth,
		    impressions, engagement_rate, link_clicks, profile_visits, reposts, mentions
		 FROM metrics WHERE account_id = ? ORDER BY id DESC LIMIT 1`, accountID,
	)
	var m model.TwitterMetrics
	var ts string
	err := row.Scan(&m.ID, &m.AccountID, &ts, &m.TotalFollowers, &m.FollowerGrowth,
		&m.Impressions, &m.EngagementRate, &m.LinkClicks, &m.ProfileVisits, &m.Reposts, &m.Mentions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan metrics: %w", err)
	}
	m.Timestamp = parseTime(ts)
	return &m, nil
}

// GetTweet returns a stored tweet by its tweet ID.
func (s *TwitterSQLite) GetTweet(ctx context.Context, tweetID string) (*model.Tweet, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT tweet_id, content, created_at_utc, likes, retweets, replies
		 FROM posts WHERE tweet_id = ?`, tweetID,
	)
	var t model.Tweet
	var created string
	if err := row.Scan(&t.TweetID, &t.Content, &created, &t.Likes, &t.Retweets, &t.Replies); err != nil {
		return nil, fmt.Errorf("scan tweet: %w", err)
	}
	t.CreatedAt = parseTime(created)
	return &t, nil
}
