package telegramweb

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/h2non/gock"

	"github.com/aytch4k/socialz/internal/model"
	"github.com/aytch4k/socialz/internal/source"
)

type botAPIMock struct {
	chat      tgbotapi.Chat
	chatErr   error
	count     int
	countErr  error
	seenChats []string
}

func (m *botAPIMock) GetChat(cfg tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	m.seenChats = append(m.seenChats, cfg.SuperGroupUsername)
	if m.chatErr != nil {
		return tgbotapi.Chat{}, m.chatErr
	}
	return m.chat, nil
}

func (m *botAPIMock) GetChatMembersCount(tgbotapi.ChatMemberCountConfig) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.count, nil
}

func loadPreview(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile("testdata/preview.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(raw)
}

func TestResolveChannel(t *testing.T) {
	bot := &botAPIMock{
		chat:  tgbotapi.Chat{Title: "Example Channel"},
		count: 1500,
	}
	c := &Client{bot: bot}

	got, err := c.ResolveChannel(context.Background(), "@examplechannel")
	if err != nil {
		t.Fatalf("resolve channel: %v", err)
	}

	want := &source.TelegramChannel{Username: "examplechannel", Title: "Example Channel", Subscribers: 1500}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolveChannel mismatch (-want +got):\n%s", diff)
	}
	if len(bot.seenChats) != 1 || bot.seenChats[0] != "@examplechannel" {
		t.Errorf("queried chats %v, want [@examplechannel]", bot.seenChats)
	}
}

func TestResolveChannelThrottled(t *testing.T) {
	bot := &botAPIMock{
		chatErr: &tgbotapi.Error{
			Code:               429,
			Message:            "Too Many Requests: retry after 30",
			ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 30},
		},
	}
	c := &Client{bot: bot}

	_, err := c.ResolveChannel(context.Background(), "chan")
	te, ok := source.AsThrottled(err)
	if !ok {
		t.Fatalf("ResolveChannel = %v, want throttled", err)
	}
	if want := 30 * time.Second; te.RetryAfter != want {
		t.Errorf("RetryAfter = %s, want %s", te.RetryAfter, want)
	}
}

func TestResolveChannelNotFound(t *testing.T) {
	bot := &botAPIMock{
		chatErr: &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"},
	}
	c := &Client{bot: bot}

	_, err := c.ResolveChannel(context.Background(), "ghost")
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("ResolveChannel = %v, want ErrNotFound", err)
	}
}

func TestRecentPosts(t *testing.T) {
	// Build the client around a stubbed bot so only the preview fetch runs.
	c := &Client{bot: &botAPIMock{}, http: newPreviewHTTP()}
	gock.InterceptClient(c.HTTPClient())
	t.Cleanup(gock.Off)

	gock.New("https://t.me").
		Get("/s/examplechannel").
		Reply(200).
		BodyString(loadPreview(t))

	ch := &source.TelegramChannel{Username: "examplechannel", Subscribers: 1500}
	got, err := c.RecentPosts(context.Background(), ch, 10)
	if err != nil {
		t.Fatalf("recent posts: %v", err)
	}

	want := []model.TelegramPost{
		{
			MessageID: "102",
			Content:   "Release notes are out",
			CreatedAt: time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC),
			Views:     12100,
		},
		{
			MessageID: "101",
			Content:   "First announcement of the week",
			CreatedAt: time.Date(2026, 8, 29, 9, 15, 0, 0, time.UTC),
			Views:     4700,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RecentPosts mismatch (-want +got):\n%s", diff)
	}
}

func TestRecentPostsThrottled(t *testing.T) {
	c := &Client{bot: &botAPIMock{}, http: newPreviewHTTP()}
	gock.InterceptClient(c.HTTPClient())
	t.Cleanup(gock.Off)

	gock.New("https://t.me").
		Get("/s/examplechannel").
		Reply(429).
		SetHeader("Retry-After", "60")

	ch := &source.TelegramChannel{Username: "examplechannel"}
	_, err := c.RecentPosts(context.Background(), ch, 10)
	te, ok := source.AsThrottled(err)
	if !ok {
		t.Fatalf("RecentPosts = %v, want throttled", err)
	}
	if want := time.Minute; te.RetryAfter != want {
		t.Errorf("RetryAfter = %s, want %s", te.RetryAfter, want)
	}
}

func TestParsePreview(t *testing.T) {
	posts, err := parsePreview(strings.NewReader(loadPreview(t)), 10)
	if err != nil {
		t.Fatalf("parse preview: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("parsed %d posts, want 2 (service rows skipped)", len(posts))
	}
	if posts[0].MessageID != "102" {
		t.Errorf("first post %s, want the newest (102)", posts[0].MessageID)
	}

	limited, err := parsePreview(strings.NewReader(loadPreview(t)), 1)
	if err != nil {
		t.Fatalf("parse preview: %v", err)
	}
	if len(limited) != 1 || limited[0].MessageID != "102" {
		t.Errorf("limited parse = %+v, want only post 102", limited)
	}
}

func TestSearchMentionsUnsupported(t *testing.T) {
	c := &Client{bot: &botAPIMock{}}
	n, err := c.SearchMentions(context.Background(), "chan", time.Time{}, 100)
	if !errors.Is(err, source.ErrUnsupported) {
		t.Fatalf("SearchMentions = %v, want ErrUnsupported", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestApproxCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "", want: 0},
		{in: "42", want: 42},
		{in: "4.7K", want: 4700},
		{in: "12.1K", want: 12100},
		{in: "1.2M", want: 1200000},
		{in: "3k", want: 3000},
		{in: "1,024", want: 1024},
		{in: "garbage", want: 0},
	}
	for _, tt := range tests {
		if got := approxCount(tt.in); got != tt.want {
			t.Errorf("approxCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
