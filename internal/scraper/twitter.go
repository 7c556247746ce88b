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

// TwitterScraper scans one Twitter account per call. It is stateless
// between calls.
type TwitterScraper struct {
	src   source.TwitterSource
	store storage.TwitterStore
	gov   *ratelimit.Governor
	log   *slog.Logger
	opts  Options
	now   func() time.Time
}

// NewTwitter creates a TwitterScraper sharing the given governor with its
// source adapter.
func NewTwitter(src source.TwitterSource, store storage.TwitterStore, gov *ratelimit.Governor, log *slog.Logger, opts Options) *TwitterScraper {
	return &TwitterScraper{
		src:   src,
		store: store,
		gov:   gov,
		log:   log,
		opts:  opts.withDefaults(),
		now:   time.Now,
	}
}

// Scan collects, aggregates, and persists one snapshot of the account.
func (s *TwitterScraper) Scan(ctx context.Context, username string) (*model.TwitterMetrics, error) {
	s.log.Info("starting scan", "platform", "twitter", "account", username)

	var user *source.TwitterUser
	err := ratelimit.Do(ctx, s.gov, s.opts.MaxRetries, func(ctx context.Context) error {
		var err error
		user, err = s.src.ResolveUser(ctx, username)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", username, err)
	}

	var tweets []model.Tweet
	err = ratelimit.Do(ctx, s.gov, s.opts.MaxRetries, func(ctx context.Context) error {
		var err error
		tweets, err = s.src.RecentTweets(ctx, user.ID, s.opts.MessageLimit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("collect tweets for %s: %w", username, err)
	}

	m := metrics.AggregateTwitter(user, tweets)
	m.Mentions = s.countMentions(ctx, user.Username)
	m.Timestamp = s.now().UTC()

	acct, err := s.store.UpsertAccount(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("upsert account %s: %w", username, err)
	}
	m.AccountID = acct.ID

	if err := s.store.SaveMetrics(ctx, &m); err != nil {
		return nil, fmt.Errorf("save metrics for %s: %w", username, err)
	}
	for i := range tweets {
		if err := s.store.SaveTweet(ctx, acct.ID, &tweets[i]); err != nil {
			s.log.Error("save tweet",
				"platform", "twitter", "account", username,
				"tweet_id", tweets[i].TweetID, "error", err)
		}
	}

	s.log.Info("scan completed",
		"platform", "twitter",
		"account", username,
		"timestamp", m.Timestamp.Format(time.RFC3339),
		"total_followers", m.TotalFollowers,
		"follower_growth", m.FollowerGrowth,
		"impressions", m.Impressions,
		"engagement_rate", fmt.Sprintf("%.2f%%", m.EngagementRate),
		"link_clicks", m.LinkClicks,
		"profile_visits", m.ProfileVisits,
		"reposts", m.Reposts,
		"mentions", m.Mentions,
	)
	return &m, nil
}

// countMentions searches for recent tweets mentioning the account, authored
// by someone else. A failed search counts as zero mentions.
func (s *TwitterScraper) countMentions(ctx context.Context, username string) int {
	query := fmt.Sprintf("@%s -from:%s", username, username)
	var n int
	err := ratelimit.Do(ctx, s.gov, s.opts.MaxRetries, func(ctx context.Context) error {
		var err error
		n, err = s.src.SearchRecent(ctx, query, s.opts.MessageLimit)
		return err
	})
	if err != nil {
		s.log.Warn("mention search failed", "platform", "twitter", "account", username, "error", err)
		return 0
	}
	return n
}
