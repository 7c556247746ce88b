// Package source defines the upstream platform interfaces consumed by the
// scan orchestrators, together with the error signals every upstream may
// emit: throttling, access denial on a sub-resource, and not-found.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aytch4k/socialz/internal/model"
)

// ErrNotFound is returned when an account, channel, or server cannot be
// resolved. It aborts the enclosing scan.
var ErrNotFound = errors.New("not found")

// ErrUnsupported is returned by adapters for operations their platform
// surface does not expose.
var ErrUnsupported = errors.New("not supported")

// ThrottledError signals that the upstream rejected a call for exceeding its
// allowed rate. ResetAt or RetryAfter carries the upstream's hint; both may
// be zero when the upstream gave none.
type ThrottledError struct {
	ResetAt    time.Time
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	switch {
	case !e.ResetAt.IsZero():
		return fmt.Sprintf("throttled until %s", e.ResetAt.UTC().Format(time.RFC3339))
	case e.RetryAfter > 0:
		return fmt.Sprintf("throttled, retry after %s", e.RetryAfter)
	default:
		return "throttled"
	}
}

// AccessDeniedError signals that a specific sub-resource refused access.
// Collectors skip the sub-resource and continue.
type AccessDeniedError struct {
	Resource string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Resource)
}

// AsThrottled reports whether err carries a throttling signal.
func AsThrottled(err error) (*ThrottledError, bool) {
	var te *ThrottledError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsAccessDenied reports whether err carries an access-denied signal.
func IsAccessDenied(err error) bool {
	var ae *AccessDeniedError
	return errors.As(err, &ae)
}

// TelegramChannel is a resolved Telegram channel.
type TelegramChannel struct {
	Username    string
	Title       string
	Subscribers int
}

// TelegramSource is the upstream surface needed to scan a Telegram channel.
type TelegramSource interface {
	ResolveChannel(ctx context.Context, username string) (*TelegramChannel, error)
	RecentPosts(ctx context.Context, ch *TelegramChannel, limit int) ([]model.TelegramPost, error)
	// SearchMentions counts messages mentioning the channel, authored by
	// others, since the given time, capped at limit results.
	SearchMentions(ctx context.Context, username string, since time.Time, limit int) (int, error)
}

// DiscordGuild is a resolved Discord server with its member counts.
type DiscordGuild struct {
	ID          string
	Name        string
	MemberCount int
	OnlineCount int
}

// DiscordChannel is one text channel within a guild.
type DiscordChannel struct {
	ID   string
	Name string
}

// DiscordSource is the upstream surface needed to scan a Discord server.
type DiscordSource interface {
	ResolveGuild(ctx context.Context, guildID string) (*DiscordGuild, error)
	TextChannels(ctx context.Context, guildID string) ([]DiscordChannel, error)
	// ChannelMessages returns up to limit messages from the channel,
	// newest first, restricted to messages after the given time when it
	// is non-zero.
	ChannelMessages(ctx context.Context, channelID string, limit int, after time.Time) ([]model.DiscordMessage, error)
}

// TwitterUser is a resolved Twitter account.
type TwitterUser struct {
	ID        string
	Username  string
	Name      string
	Followers int
}

// TwitterSource is the upstream surface needed to scan a Twitter account.
type TwitterSource interface {
	ResolveUser(ctx context.Context, username string) (*TwitterUser, error)
	RecentTweets(ctx context.Context, userID string, limit int) ([]model.Tweet, error)
	// SearchRecent returns the number of recent tweets matching the query,
	// capped at limit results.
	SearchRecent(ctx context.Context, query string, limit int) (int, error)
}
