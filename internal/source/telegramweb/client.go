// Package telegramweb implements source.TelegramSource by combining the
// Telegram Bot API (channel resolution, subscriber counts) with the public
// t.me/s web preview (recent post history with view counts).
package telegramweb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/go-resty/resty/v2"

	"github.com/aytch4k/socialz/internal/model"
	"github.com/aytch4k/socialz/internal/source"
)

const previewBaseURL = "https://t.me"

type botAPI interface {
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMembersCount(config tgbotapi.ChatMemberCountConfig) (int, error)
}

// Client talks to Telegram through the Bot API and the t.me web preview.
type Client struct {
	bot  botAPI
	http *resty.Client
}

// New creates a Client authenticated with the given bot token.
func New(token string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Client{bot: bot, http: newPreviewHTTP()}, nil
}

func newPreviewHTTP() *resty.Client {
	return resty.New().
		SetBaseURL(previewBaseURL).
		SetHeader("User-Agent", "socialz/1.0")
}

// HTTPClient exposes the underlying preview HTTP client for test
// interception.
func (c *Client) HTTPClient() *http.Client {
	return c.http.GetClient()
}

// ResolveChannel looks the channel up through the Bot API.
func (c *Client) ResolveChannel(_ context.Context, username string) (*source.TelegramChannel, error) {
	username = strings.TrimPrefix(username, "@")
	chatCfg := tgbotapi.ChatConfig{SuperGroupUsername: "@" + username}

	chat, err := c.bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: chatCfg})
	if err != nil {
		return nil, mapBotError(err, username)
	}
	count, err := c.bot.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{ChatConfig: chatCfg})
	if err != nil {
		return nil, mapBotError(err, username)
	}

	return &source.TelegramChannel{
		Username:    username,
		Title:       chat.Title,
		Subscribers: count,
	}, nil
}

// RecentPosts fetches the channel's public preview page and extracts its
// recent posts, newest first. Forward and reply counters are not exposed by
// the preview and stay zero.
func (c *Client) RecentPosts(ctx context.Context, ch *source.TelegramChannel, limit int) ([]model.TelegramPost, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/s/" + ch.Username)
	if err != nil {
		return nil, fmt.Errorf("fetch channel preview: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, &source.ThrottledError{RetryAfter: previewRetryAfter(resp)}
	case http.StatusNotFound:
		return nil, fmt.Errorf("channel %s: %w", ch.Username, source.ErrNotFound)
	default:
		return nil, fmt.Errorf("channel preview: unexpected status %d", resp.StatusCode())
	}

	return parsePreview(strings.NewReader(resp.String()), limit)
}

// SearchMentions is unsupported: neither the Bot API nor the web preview
// exposes a global search primitive. Callers treat the failure as zero
// mentions.
func (c *Client) SearchMentions(context.Context, string, time.Time, int) (int, error) {
	return 0, fmt.Errorf("mention search: %w", source.ErrUnsupported)
}

// previewRetryAfter reads the Retry-After header, zero if absent.
func previewRetryAfter(resp *resty.Response) time.Duration {
	v := resp.Header().Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// parsePreview extracts posts from a t.me/s page. The page lists oldest
// first; the result is reversed to newest first to match the API
// collectors.
func parsePreview(r io.Reader, limit int) ([]model.TelegramPost, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse preview: %w", err)
	}

	var posts []model.TelegramPost
	doc.Find("div.tgme_widget_message").Each(func(_ int, sel *goquery.Selection) {
		dataPost, ok := sel.Attr("data-post") // "<channel>/<id>"
		if !ok {
			return
		}
		id := dataPost
		if i := strings.LastIndex(dataPost, "/"); i >= 0 {
			id = dataPost[i+1:]
		}

		post := model.TelegramPost{
			MessageID: id,
			Content:   strings.TrimSpace(sel.Find(".tgme_widget_message_text").First().Text()),
			Views:     approxCount(sel.Find(".tgme_widget_message_views").First().Text()),
		}
		if dt, ok := sel.Find(".tgme_widget_message_date time").First().Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, dt); err == nil {
				post.CreatedAt = t.UTC()
			}
		}
		posts = append(posts, post)
	})

	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// approxCount parses Telegram's abbreviated counters ("4.7K", "1.2M").
func approxCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	mult := 1.0
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1e3
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1e6
		s = s[:len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(v * mult)
}

// mapBotError translates Bot API failures to the source taxonomy.
func mapBotError(err error, username string) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.RetryAfter > 0 {
			return &source.ThrottledError{RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second}
		}
		if strings.Contains(apiErr.Message, "not found") {
			return fmt.Errorf("channel %s: %w", username, source.ErrNotFound)
		}
	}
	return fmt.Errorf("channel %s: %w", username, err)
}
