// Package metrics reduces collected pages into engagement snapshots.
// All functions are pure: callers supply the reference time where one is
// needed. Growth fields stay zero without a historical baseline.
package metrics

import (
	"time"

	"github.com/aytch4k/socialz/internal/model"
	"github.com/aytch4k/socialz/internal/source"
)

// reachWindow is the number of most-recent posts averaged for post reach.
const reachWindow = 10

// activeWindow bounds which messages count a channel as active.
const activeWindow = 24 * time.Hour

// EngagementRate relates participation volume to audience size as a
// percentage. Zero when the audience is empty.
func EngagementRate(participation float64, audience int) float64 {
	if audience <= 0 {
		return 0
	}
	return participation / float64(audience) * 100
}

// PostReach returns the mean view count over the most recent posts, at most
// reachWindow of them. Posts are expected newest-first, as collected. With
// fewer posts than the window, the mean is taken over what is available.
func PostReach(posts []model.TelegramPost) float64 {
	n := len(posts)
	if n == 0 {
		return 0
	}
	if n > reachWindow {
		n = reachWindow
	}
	total := 0
	for _, p := range posts[:n] {
		total += p.Views
	}
	return float64(total) / float64(n)
}

// ActiveChannels counts distinct channels with at least one message in the
// trailing 24 hours before now.
func ActiveChannels(msgs []model.DiscordMessage, now time.Time) int {
	cutoff := now.Add(-activeWindow)
	seen := make(map[string]struct{})
	for _, m := range msgs {
		if m.CreatedAt.After(cutoff) {
			seen[m.ChannelID] = struct{}{}
		}
	}
	return len(seen)
}

// ResolveReplies fills in each message's reply count from references within
// the same collected page.
func ResolveReplies(msgs []model.DiscordMessage) {
	refs := make(map[string]int)
	for _, m := range msgs {
		if m.ReferencedID != "" {
			refs[m.ReferencedID]++
		}
	}
	for i := range msgs {
		msgs[i].Replies = refs[msgs[i].MessageID]
	}
}

// AggregateTelegram reduces a channel's recent posts into a snapshot.
// Engagement rate relates average views per post to the subscriber count.
// Mentions and the capture timestamp are merged in by the caller.
func AggregateTelegram(ch *source.TelegramChannel, posts []model.TelegramPost) model.TelegramMetrics {
	totalViews, totalForwards := 0, 0
	for _, p := range posts {
		totalViews += p.Views
		totalForwards += p.Forwards
	}
	avgViews := 0.0
	if len(posts) > 0 {
		avgViews = float64(totalViews) / float64(len(posts))
	}
	return model.TelegramMetrics{
		TotalSubscribers: ch.Subscribers,
		TotalViews:       totalViews,
		EngagementRate:   EngagementRate(avgViews, ch.Subscribers),
		Forwards:         totalForwards,
		PostReach:        PostReach(posts),
	}
}

// AggregateDiscord reduces a server's collected messages into a snapshot.
// Engagement rate relates message participation to the member count.
func AggregateDiscord(g *source.DiscordGuild, msgs []model.DiscordMessage, now time.Time) model.DiscordMetrics {
	reactions := 0
	for _, m := range msgs {
		reactions += m.Reactions
	}
	return model.DiscordMetrics{
		TotalMembers:   g.MemberCount,
		OnlineMembers:  g.OnlineCount,
		TotalMessages:  len(msgs),
		EngagementRate: EngagementRate(float64(len(msgs)), g.MemberCount),
		ActiveChannels: ActiveChannels(msgs, now),
		Reactions:      reactions,
	}
}

// AggregateTwitter reduces an account's recent tweets into a snapshot.
// Engagement rate relates per-tweet engagements to the follower count.
func AggregateTwitter(u *source.TwitterUser, tweets []model.Tweet) model.TwitterMetrics {
	impressions, engagements, reposts := 0, 0, 0
	for _, t := range tweets {
		impressions += t.Impressions
		engagements += t.Likes + t.Retweets + t.Replies + t.Quotes
		reposts += t.Retweets
	}
	perTweet := 0.0
	if len(tweets) > 0 {
		perTweet = float64(engagements) / float64(len(tweets))
	}
	return model.TwitterMetrics{
		TotalFollowers: u.Followers,
		Impressions:    impressions,
		EngagementRate: EngagementRate(perTweet, u.Followers),
		Reposts:        reposts,
	}
}
