// Package discordapi implements source.DiscordSource against the Discord
// REST API (v10).
package discordapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/aytch4k/socialz/internal/model"
	"github.com/aytch4k/socialz/internal/source"
)

const defaultBaseURL = "https://discord.com/api/v10"

// discordEpoch is the Discord snowflake epoch (2015-01-01T00:00:00Z) in
// milliseconds.
const discordEpoch = 1420070400000

const channelTypeText = 0

// Client talks to the Discord REST API with a bot token.
type Client struct {
	http *resty.Client
}

// New creates a Client authenticated with the given bot token.
func New(token string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}
	c := resty.New().
		SetBaseURL(defaultBaseURL).
		SetHeader("Authorization", "Bot "+token).
		SetHeader("User-Agent", "socialz/1.0")
	return &Client{http: c}, nil
}

// HTTPClient exposes the underlying HTTP client for test interception.
func (c *Client) HTTPClient() *http.Client {
	return c.http.GetClient()
}

type guildPayload struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	ApproximateMemberCount   int    `json:"approximate_member_count"`
	ApproximatePresenceCount int    `json:"approximate_presence_count"`
}

// ResolveGuild fetches a guild with its approximate member and presence
// counts.
func (c *Client) ResolveGuild(ctx context.Context, guildID string) (*source.DiscordGuild, error) {
	var payload guildPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("with_counts", "true").
		SetResult(&payload).
		Get("/guilds/" + guildID)
	if err != nil {
		return nil, fmt.Errorf("get guild: %w", err)
	}
	if err := checkStatus(resp, "guild "+guildID); err != nil {
		return nil, err
	}
	return &source.DiscordGuild{
		ID:          payload.ID,
		Name:        payload.Name,
		MemberCount: payload.ApproximateMemberCount,
		OnlineCount: payload.ApproximatePresenceCount,
	}, nil
}

type channelPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

// TextChannels lists the guild's text channels.
func (c *Client) TextChannels(ctx context.Context, guildID string) ([]source.DiscordChannel, error) {
	var payload []channelPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&payload).
		Get("/guilds/" + guildID + "/channels")
	if err != nil {
		return nil, fmt.Errorf("get channels: %w", err)
	}
	if err := checkStatus(resp, "guild "+guildID); err != nil {
		return nil, err
	}

	var channels []source.DiscordChannel
	for _, ch := range payload {
		if ch.Type != channelTypeText {
			continue
		}
		channels = append(channels, source.DiscordChannel{ID: ch.ID, Name: ch.Name})
	}
	return channels, nil
}

type messagePayload struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Mentions  []struct {
		ID string `json:"id"`
	} `json:"mentions"`
	Reactions []struct {
		Count int `json:"count"`
	} `json:"reactions"`
	MessageReference *struct {
		MessageID string `json:"message_id"`
	} `json:"message_reference"`
}

// ChannelMessages fetches up to limit messages from the channel, newest
// first. A non-zero after time is converted to a snowflake cursor.
func (c *Client) ChannelMessages(ctx context.Context, channelID string, limit int, after time.Time) ([]model.DiscordMessage, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit))
	if !after.IsZero() {
		req.SetQueryParam("after", strconv.FormatUint(snowflakeAt(after), 10))
	}

	var payload []messagePayload
	resp, err := req.SetResult(&payload).Get("/channels/" + channelID + "/messages")
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	if err := checkStatus(resp, "channel "+channelID); err != nil {
		return nil, err
	}

	msgs := make([]model.DiscordMessage, 0, len(payload))
	for _, m := range payload {
		reactions := 0
		for _, r := range m.Reactions {
			reactions += r.Count
		}
		msg := model.DiscordMessage{
			MessageID: m.ID,
			ChannelID: m.ChannelID,
			Content:   m.Content,
			CreatedAt: m.Timestamp.UTC(),
			Reactions: reactions,
			Mentions:  len(m.Mentions),
		}
		if m.MessageReference != nil {
			msg.ReferencedID = m.MessageReference.MessageID
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// snowflakeAt returns the smallest snowflake for messages created after t.
func snowflakeAt(t time.Time) uint64 {
	ms := t.UnixMilli() - discordEpoch
	if ms < 0 {
		ms = 0
	}
	return uint64(ms) << 22
}

// checkStatus maps Discord error responses to the source error taxonomy.
func checkStatus(resp *resty.Response, resource string) error {
	switch resp.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusForbidden:
		return &source.AccessDeniedError{Resource: resource}
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", resource, source.ErrNotFound)
	case http.StatusTooManyRequests:
		return &source.ThrottledError{RetryAfter: retryAfter(resp)}
	default:
		return fmt.Errorf("%s: unexpected status %d", resource, resp.StatusCode())
	}
}

// retryAfter reads Discord's reset hint, preferring the rate-limit header
// over the generic Retry-After.
func retryAfter(resp *resty.Response) time.Duration {
	if v := resp.Header().Get("X-RateLimit-Reset-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	if v := resp.Header().Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
