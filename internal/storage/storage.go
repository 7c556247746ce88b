// Package storage defines the persistence interfaces and their SQLite
// implementations, one isolated store per platform.
package storage

import (
	"context"

	"github.com/aytch4k/socialz/internal/model"
)

// TelegramStore persists Telegram channel scans. Accounts are created on
// first use and never mutated; snapshots are append-only; posts are keyed
// by their message ID and replaced on re-ingestion.
type TelegramStore interface {
	UpsertAccount(ctx context.Context, username string) (*model.Account, error)
	SaveMetrics(ctx context.Context, m *model.TelegramMetrics) error
	SavePost(ctx context.Context, accountID int64, p *model.TelegramPost) error
	// LatestMetrics returns the most recent snapshot for the account, or
	// nil when none exists. It is the lookup point for growth baselines.
	LatestMetrics(ctx context.Context, accountID int64) (*model.TelegramMetrics, error)
	GetPost(ctx context.Context, messageID string) (*model.TelegramPost, error)
	Close() error
}

// DiscordStore persists Discord server scans.
type DiscordStore interface {
	UpsertAccount(ctx context.Context, serverID, serverName string) (*model.Account, error)
	SaveMetrics(ctx context.Context, m *model.DiscordMetrics) error
	SaveMessage(ctx context.Context, accountID int64, msg *model.DiscordMessage) error
	LatestMetrics(ctx context.Context, accountID int64) (*model.DiscordMetrics, error)
	GetMessage(ctx context.Context, messageID string) (*model.DiscordMessage, error)
	Close() error
}

// TwitterStore persists Twitter account scans.
type TwitterStore interface {
	UpsertAccount(ctx context.Context, username string) (*model.Account, error)
	SaveMetrics(ctx context.Context, m *model.TwitterMetrics) error
	SaveTweet(ctx context.Context, accountID int64, t *model.Tweet) error
	LatestMetrics(ctx context.Context, accountID int64) (*model.TwitterMetrics, error)
	GetTweet(ctx context.Context, tweetID string) (*model.Tweet, error)
	Close() error
}
