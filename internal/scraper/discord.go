package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aytch4k/socialz/internal/metrics"
	"github.com/aytch4k/socialz/internal/model"
	"github.com/aytch4k/socialz/internal/ratelimit"
	"github.com/aytch4k/socialz/internal/source"
	"github.com/aytch4k/socialz/internal/storage"
)

// DiscordScraper scans one Discord server per call. Only one scan may run
// at a time per instance: concurrent calls are suppressed with
// ErrScanInProgress, not queued.
type DiscordScraper struct {
	src   source.DiscordSource
	store storage.DiscordStore
	gov   *ratelimit.Governor
	log   *slog.Logger
	opts  Options
	now   func() time.Time

	mu       sync.Mutex
	scanning bool
}

// NewDiscord creates a DiscordScraper sharing the given governor with its
// source adapter.
func NewDiscord(src source.DiscordSource, store storage.DiscordStore, gov *ratelimit.Governor, log *slog.Logger, opts Options) *DiscordScraper {
	return &DiscordScraper{
		src:   src,
		store: store,
		gov:   gov,
		log:   log,
		opts:  opts.withDefaults(),
		now:   time.Now,
	}
}

// Scan collects, aggregates, and persists one snapshot of the server.
func (s *DiscordScraper) Scan(ctx context.Context, guildID string) (*model.DiscordMetrics, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		s.log.Warn("scan already in progress", "platform", "discord", "server", guildID)
		return nil, ErrScanInProgress
	}
	s.scanning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	s.log.Info("starting scan", "platform", "discord", "server", guildID)

	var guild *source.DiscordGuild
	err := ratelimit.Do(ctx, s.gov, s.opts.MaxRetries, func(ctx context.Context) error {
		var err error
		guild, err = s.src.ResolveGuild(ctx, guildID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resolve server %s: %w", guildID, err)
	}

	var channels []source.DiscordChannel
	err = ratelimit.Do(ctx, s.gov, s.opts.MaxRetries, func(ctx context.Context) error {
		var err error
		channels, err = s.src.TextChannels(ctx, guildID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list channels for %s: %w", guildID, err)
	}

	msgs, err := s.collectMessages(ctx, channels)
	if err != nil {
		return nil, fmt.Errorf("collect messages for %s: %w", guildID, err)
	}
	metrics.ResolveReplies(msgs)

	m := metrics.AggregateDiscord(guild, msgs, s.now())
	m.Mentions = s.countMentions(ctx, channels)
	m.Timestamp = s.now().UTC()

	acct, err := s.store.UpsertAccount(ctx, guild.ID, guild.Name)
	if err != nil {
		return nil, fmt.Errorf("upsert account %s: %w", guildID, err)
	}
	m.AccountID = acct.ID

	if err := s.store.SaveMetrics(ctx, &m); err != nil {
		return nil, fmt.Errorf("save metrics for %s: %w", guildID, err)
	}
	for i := range msgs {
		if err := s.store.SaveMessage(ctx, acct.ID, &msgs[i]); err != nil {
			s.log.Error("save message",
				"platform", "discord", "server", guildID,
				"message_id", msgs[i].MessageID, "error", err)
		}
	}

	s.log.Info("scan completed",
		"platform", "discord",
		"server", guild.Name,
		"timestamp", m.Timestamp.Format(time.RFC3339),
		"total_members", m.TotalMembers,
		"member_growth", m.MemberGrowth,
		"online_members", m.OnlineMembers,
		"total_messages", m.TotalMessages,
		"engagement_rate", fmt.Sprintf("%.2f%%", m.EngagementRate),
		"active_channels", m.ActiveChannels,
		"reactions_count", m.Reactions,
		"mentions_count", m.Mentions,
	)
	return &m, nil
}

// collectMessages pages through every accessible text channel. A channel
// denying access to its history is skipped; any other source failure aborts
// the collection.
func (s *DiscordScraper) collectMessages(ctx context.Context, channels []source.DiscordChannel) ([]model.DiscordMessage, error) {
	var all []model.DiscordMessage
	for _, ch := range channels {
		var msgs []model.DiscordMessage
		err := ratelimit.Do(ctx, s.gov, s.opts.MaxRetries, func(ctx context.Context) error {
			var err error
			msgs, err = s.src.ChannelMessages(ctx, ch.ID, s.opts.MessageLimit, time.Time{})
			return err
		})
		if source.IsAccessDenied(err) {
			s.log.Warn("no access to channel history",
				"platform", "discord", "channel", ch.Name, "channel_id", ch.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
		}
		all = append(all, msgs...)
	}
	return all, nil
}

// countMentions sums member mentions across accessible channels within the
// trailing mention window. Denied channels contribute zero; other failures
// are logged and contribute zero as well.
func (s *DiscordScraper) countMentions(ctx context.Context, channels []source.DiscordChannel) int {
	after := s.now().Add(-s.opts.MentionWindow)
	total := 0
	for _, ch := range channels {
		var msgs []model.DiscordMessage
		err := ratelimit.Do(ctx, s.gov, s.opts.MaxRetries, func(ctx context.Context) error {
			var err error
			msgs, err = s.src.ChannelMessages(ctx, ch.ID, s.opts.MessageLimit, after)
			return err
		})
		if err != nil {
			if !source.IsAccessDenied(err) {
				s.log.Warn("mention count failed",
					"platform", "discord", "channel", ch.Name, "error", err)
			}
			continue
		}
		for _, m := range msgs {
			total += m.Mentions
		}
	}
	return total
}
