package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aytch4k/socialz/internal/model"
)

// TelegramSQLite implements TelegramStore backed by a SQLite database.
type TelegramSQLite struct {
	db *sql.DB
}

// NewTelegramSQLite opens the Telegram store at dsn and runs pending
// migrations.
func NewTelegramSQLite(dsn string) (*TelegramSQLite, error) {
	db, err := openSQLite(dsn, "telegram")
	if err != nil {
		return nil, err
	}
	return &TelegramSQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *TelegramSQLite) Close() error {
	return s.db.Close()
}

// UpsertAccount inserts the account if absent and returns the stored row.
func (s *TelegramSQLite) UpsertAccount(ctx context.Context, username string) (*model.Account, error) {
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
func (s *TelegramSQLite) SaveMetrics(ctx context.Context, m *model.TelegramMetrics) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (account_id, timestamp_utc, total_subscribers, subscriber_growth,
		    total_views, engagement_rate, forwards, mentions, post_reach)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AccountID, formatTime(m.Timestamp), m.TotalSubscribers, m.SubscriberGrowth,
		m.TotalViews, m.EngagementRate, m.Forwards, m.Mentions, m.PostReach,
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

// SavePost inserts or replaces a post row keyed by its message ID.
func (s *TelegramSQLite) SavePost(ctx context.Context, accountID int64, p *model.TelegramPost) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO posts (account_id, message_id, content, created_at_utc, views, forwards, replies)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		accountID, p.MessageID, p.Content, formatTime(p.CreatedAt), p.Views, p.Forwards, p.Replies,
	)
	if err != nil {
		return fmt.Errorf("save post: %w", err)
	}
	return nil
}

// LatestMetrics returns the most recent snapshot for the account, or nil
// when none exists.
func (s *TelegramSQLite) LatestMetrics(ctx context.Context, accountID int64) (*model.TelegramMetrics, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, timestamp_utc, total_subscribers, subscriber_growth,
		    total_views, engagement_rate, forwards, mentions, post_reach
		 FROM metrics WHERE account_id = ? ORDER BY id DESC LIMIT 1`, accountID,
	)
	var m model.TelegramMetrics
	var ts string
	err := row.Scan(&m.ID, &m.AccountID, &ts, &m.TotalSubscribers, &m.SubscriberGrowth,
		&m.TotalViews, &m.EngagementRate, &m.Forwards, &m.Mentions, &m.PostReach)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan metrics: %w", err)
	}
	m.Timestamp = parseTime(ts)
	return &m, nil
}

// GetPost returns a stored post by its message ID.
func (s *TelegramSQLite) GetPost(ctx context.Context, messageID string) (*model.TelegramPost, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT message_id, content, created_at_utc, views, forwards, replies
		 FROM posts WHERE message_id = ?`, messageID,
	)
	var p model.TelegramPost
	var created string
	if err := row.Scan(&p.MessageID, &p.Content, &created, &p.Views, &p.Forwards, &p.Replies); err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	p.CreatedAt = parseTime(created)
	return &p, nil
}
