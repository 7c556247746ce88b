package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aytch4k/socialz/internal/model"
)

// DiscordSQLite implements DiscordStore backed by a SQLite database.
type DiscordSQLite struct {
	db *sql.DB
}

// NewDiscordSQLite opens the Discord store at dsn and runs pending
// migrations.
func NewDiscordSQLite(dsn string) (*DiscordSQLite, error) {
	db, err := openSQLite(dsn, "discord")
	if err != nil {
		return nil, err
	}
	return &DiscordSQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *DiscordSQLite) Close() error {
	return s.db.Close()
}

// UpsertAccount inserts the server if absent and returns the stored row.
func (s *DiscordSQLite) UpsertAccount(ctx context.Context, serverID, serverName string) (*model.Account, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (server_id, server_name, created_at) VALUES (?, ?, ?)`,
		serverID, serverName, formatTime(time.Now()),
	); err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, server_id, server_name, created_at FROM accounts WHERE server_id = ?`, serverID)
	var a model.Account
	var created string
	if err := row.Scan(&a.ID, &a.NaturalKey, &a.DisplayName, &created); err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.CreatedAt = parseTime(created)
	return &a, nil
}

// SaveMetrics appends one snapshot row and populates its ID.
func (s *DiscordSQLite) SaveMetrics(ctx context.Context, m *model.DiscordMetrics) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (account_id, timestamp_utc, total_members, member_growth,
		    online_members, total_messages, engagement_rate, active_channels,
		    reactions_count, mentions_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AccountID, formatTime(m.Timestamp), m.TotalMembers, m.MemberGrowth,
		m.OnlineMembers, m.TotalMessages, m.EngagementRate, m.ActiveChannels,
		m.Reactions, m.Mentions,
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

// SaveMessage inserts or replaces a message row keyed by its message ID.
func (s *DiscordSQLite) SaveMessage(ctx context.Context, accountID int64, msg *model.DiscordMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO messages (account_id, message_id, channel_id, content,
		    created_at_utc, reactions_count, replies_count, mentions_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		accountID, msg.MessageID, msg.ChannelID, msg.Content,
		formatTime(msg.CreatedAt), msg.Reactions, msg.Replies, msg.Mentions,
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// LatestMetrics returns the most recent snapshot for the account, or nil
// when none exists.
func (s *DiscordSQLite) LatestMetrics(ctx context.Context, accountID int64) (*model.DiscordMetrics, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, timestamp_utc, total_members, member_growth,
		    online_members, total_messages, engagement_rate, active_channels,
		    reactions_count, mentions_count
		 FROM metrics WHERE account_id = ? ORDER BY id DESC LIMIT 1`, accountID,
	)
	var m model.DiscordMetrics
	var ts string
	err := row.Scan(&m.ID, &m.AccountID, &ts, &m.TotalMembers, &m.MemberGrowth,
		&m.OnlineMembers, &m.TotalMessages, &m.EngagementRate, &m.ActiveChannels,
		&m.Reactions, &m.Mentions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan metrics: %w", err)
	}
	m.Timestamp = parseTime(ts)
	return &m, nil
}

// GetMessage returns a stored message by its message ID.
func (s *DiscordSQLite) GetMessage(ctx context.Context, messageID string) (*model.DiscordMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT message_id, channel_id, content, created_at_utc, reactions_count, replies_count, mentions_count
		 FROM messages WHERE message_id = ?`, messageID,
	)
	var m model.DiscordMessage
	var created string
	if err := row.Scan(&m.MessageID, &m.ChannelID, &m.Content, &created, &m.Reactions, &m.Replies, &m.Mentions); err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.CreatedAt = parseTime(created)
	return &m, nil
}
