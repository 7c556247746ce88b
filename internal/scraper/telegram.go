package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aytch4k/socialz/internal/metrics"
	"github.com/aytch4k/socialz/internal/model"
	"github.com/aytch4k/socialz/internal/ratelimit"
	"github.com/aytch4k/socialz/internal/source"
	"github.com/aytch4k/socialz/internal/storage"
)

// TelegramScraper scans one Telegram channel per call. It is stateless
// between calls; concurrent scans by independent callers resolve
// last-write-wins on conflicting post rows.
type TelegramScraper struct {
	src   source.TelegramSource
	store storage.TelegramStore
	gov   *ratelimit.Governor
	log   *slog.Logger
	opts  Options
	now   func() time.Time
}

// NewTelegram creates a TelegramScraper sharing the given governor with its
// source adapter.
func NewTelegram(src source.TelegramSource, store storage.TelegramStore, gov *ratelimit.Governor, log *slog.Logger, opts Options) *TelegramScraper {
	return &TelegramScraper{
		src:   src,
		store: store,
		gov:   gov,
		log:   log,
		opts:  opts.withDefaults(),
		now:   time.Now,
	}
}

// Scan collects, aggregates, and persists one snapshot of the channel.
func (s *TelegramScraper) Scan(ctx context.Context, username string) (*model.TelegramMetrics, error) {
	s.log.Info("starting scan", "platform", "telegram", "account", username)

	var ch *source.TelegramChannel
	err := ratelimit.Do(ctx, s.gov, s.opts.MaxRetries, func(ctx context.Context) error {
		var err error
		ch, err = s.src.ResolveChannel(ctx, username)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resolve channel %s: %w", username, err)
	}

	var posts []model.TelegramPost
	err = ratelimit.Do(ctx, s.gov, s.opts.MaxRetries, func(ctx context.Context) error {
		var err error
		posts, err = s.src.RecentPosts(ctx, ch, s.opts.MessageLimit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("collect posts for %s: %w", username, err)
	}

	m := metrics.AggregateTelegram(ch, posts)
	m.Mentions = s.countMentions(ctx, username)
	m.Timestamp = s.now().UTC()

	acct, err := s.store.UpsertAccount(ctx, ch.Username)
	if err != nil {
		return nil, fmt.Errorf("upsert account %s: %w", username, err)
	}
	m.AccountID = acct.ID

	if err := s.store.SaveMetrics(ctx, &m); err != nil {
		return nil, fmt.Errorf("save metrics for %s: %w", username, err)
	}
	for i := range posts {
		if err := s.store.SavePost(ctx, acct.ID, &posts[i]); err != nil {
			s.log.Error("save post",
				"platform", "telegram", "account", username,
				"message_id", posts[i].MessageID, "error", err)
		}
	}

	s.log.Info("scan completed",
		"platform", "telegram",
		"account", username,
		"timestamp", m.Timestamp.Format(time.RFC3339),
		"total_subscribers", m.TotalSubscribers,
		"subscriber_growth", m.SubscriberGrowth,
		"total_views", m.TotalViews,
		"engagement_rate", fmt.Sprintf("%.2f%%", m.EngagementRate),
		"forwards", m.Forwards,
		"mentions", m.Mentions,
		"post_reach", m.PostReach,
	)
	return &m, nil
}

// countMentions is best-effort: a failed search counts as zero mentions.
func (s *TelegramScraper) countMentions(ctx context.Context, username string) int {
	since := s.now().Add(-s.opts.MentionWindow)
	var n int
	err := ratelimit.Do(ctx, s.gov, s.opts.MaxRetries, func(ctx context.Context) error {
		var err error
		n, err = s.src.SearchMentions(ctx, username, since, s.opts.MessageLimit)
		return err
	})
	if err != nil {
		s.log.Warn("mention search failed", "platform", "telegram", "account", username, "error", err)
		return 0
	}
	return n
}
