// Package model defines the domain types used across the application.
package model

import "time"

// Account is one tracked entity: a Telegram channel, a Discord server, or a
// Twitter account. The natural key is the platform-issued identifier; rows
// are created on first scan and never deleted.
type Account struct {
	ID          int64
	NaturalKey  string
	DisplayName string
	CreatedAt   time.Time
}

// TelegramMetrics is one immutable engagement snapshot of a Telegram channel.
type TelegramMetrics struct {
	ID               int64
	AccountID        int64
	Timestamp        time.Time
	TotalSubscribers int
	SubscriberGrowth int
	TotalViews       int
	EngagementRate   float64
	Forwards         int
	Mentions         int
	PostReach        float64
}

// TelegramPost is a single channel post as collected from the upstream.
type TelegramPost struct {
	MessageID string
	Content   string
	CreatedAt time.Time
	Views     int
	Forwards  int
	Replies   int
}

// DiscordMetrics is one immutable engagement snapshot of a Discord server.
type DiscordMetrics struct {
	ID             int64
	AccountID      int64
	Timestamp      time.Time
	TotalMembers   int
	MemberGrowth   int
	OnlineMembers  int
	TotalMessages  int
	EngagementRate float64
	ActiveChannels int
	Reactions      int
	Mentions       int
}

// DiscordMessage is a single message from a server text channel.
// ReferencedID is the message this one replies to, if any; Replies is
// derived from references within the same collected page.
type DiscordMessage struct {
	MessageID    string
	ChannelID    string
	Content      string
	CreatedAt    time.Time
	Reactions    int
	Replies      int
	Mentions     int
	ReferencedID string
}

// TwitterMetrics is one immutable engagement snapshot of a Twitter account.
type TwitterMetrics struct {
	ID             int64
	AccountID      int64
	Timestamp      time.Time
	TotalFollowers int
	FollowerGrowth int
	Impressions    int
	EngagementRate float64
	LinkClicks     int
	ProfileVisits  int
	Reposts        int
	Mentions       int
}

// Tweet is a single tweet with its public interaction counters.
type Tweet struct {
	TweetID     string
	Content     string
	CreatedAt   time.Time
	Likes       int
	Retweets    int
	Replies     int
	Quotes      int
	Impressions int
}
