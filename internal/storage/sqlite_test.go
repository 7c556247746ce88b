package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/aytch4k/socialz/internal/model"
)

var ignoreAccountTS = cmpopts.IgnoreFields(model.Account{}, "CreatedAt")

func newTelegramDB(t *testing.T) *TelegramSQLite {
	t.Helper()
	s, err := NewTelegramSQLite(":memory:")
	if err != nil {
		t.Fatalf("new telegram sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newDiscordDB(t *testing.T) *DiscordSQLite {
	t.Helper()
	s, err := NewDiscordSQLite(":memory:")
	if err != nil {
		t.Fatalf("new discord sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTwitterDB(t *testing.T) *TwitterSQLite {
	t.Helper()
	s, err := NewTwitterSQLite(":memory:")
	if err != nil {
		t.Fatalf("new twitter sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTelegramUpsertAccountIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTelegramDB(t)

	first, err := s.UpsertAccount(ctx, "channel_one")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected non-zero account ID")
	}
	if first.NaturalKey != "channel_one" {
		t.Errorf("NaturalKey = %q, want channel_one", first.NaturalKey)
	}

	second, err := s.UpsertAccount(ctx, "channel_one")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if diff := cmp.Diff(first, second, ignoreAccountTS); diff != "" {
		t.Errorf("repeated upsert mismatch (-first +second):\n%s", diff)
	}

	other, err := s.UpsertAccount(ctx, "channel_two")
	if err != nil {
		t.Fatalf("other upsert: %v", err)
	}
	if other.ID == first.ID {
		t.Error("distinct accounts share an ID")
	}
}

func TestTelegramMetricsRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := newTelegramDB(t)

	acct, err := s.UpsertAccount(ctx, "chan")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if got, err := s.LatestMetrics(ctx, acct.ID); err != nil || got != nil {
		t.Fatalf("LatestMetrics before save = (%v, %v), want (nil, nil)", got, err)
	}

	m := model.TelegramMetrics{
		AccountID:        acct.ID,
		Timestamp:        time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		TotalSubscribers: 1000,
		TotalViews:       300,
		EngagementRate:   15,
		Forwards:         4,
		Mentions:         2,
		PostReach:        150,
	}
	if err := s.SaveMetrics(ctx, &m); err != nil {
		t.Fatalf("save metrics: %v", err)
	}
	if m.ID == 0 {
		t.Fatal("expected non-zero metrics ID")
	}

	got, err := s.LatestMetrics(ctx, acct.ID)
	if err != nil {
		t.Fatalf("latest metrics: %v", err)
	}
	if diff := cmp.Diff(&m, got); diff != "" {
		t.Errorf("LatestMetrics mismatch (-want +got):\n%s", diff)
	}
}

func TestTelegramLatestMetricsPicksNewest(t *testing.T) {
	ctx := context.Background()
	s := newTelegramDB(t)

	acct, err := s.UpsertAccount(ctx, "chan")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	older := model.TelegramMetrics{AccountID: acct.ID, Timestamp: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), TotalSubscribers: 900}
	newer := model.TelegramMetrics{AccountID: acct.ID, Timestamp: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), TotalSubscribers: 1000}
	for _, m := range []*model.TelegramMetrics{&older, &newer} {
		if err := s.SaveMetrics(ctx, m); err != nil {
			t.Fatalf("save metrics: %v", err)
		}
	}

	got, err := s.LatestMetrics(ctx, acct.ID)
	if err != nil {
		t.Fatalf("latest metrics: %v", err)
	}
	if got.TotalSubscribers != 1000 {
		t.Errorf("TotalSubscribers = %d, want 1000", got.TotalSubscribers)
	}
}

func TestTelegramSavePostReplacesByMessageID(t *testing.T) {
	ctx := context.Background()
	s := newTelegramDB(t)

	acct, err := s.UpsertAccount(ctx, "chan")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	post := model.TelegramPost{MessageID: "42", Content: "hello", CreatedAt: created, Views: 100}
	if err := s.SavePost(ctx, acct.ID, &post); err != nil {
		t.Fatalf("save post: %v", err)
	}

	post.Views = 250
	if err := s.SavePost(ctx, acct.ID, &post); err != nil {
		t.Fatalf("re-save post: %v", err)
	}

	got, err := s.GetPost(ctx, "42")
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	want := model.TelegramPost{MessageID: "42", Content: "hello", CreatedAt: created, Views: 250}
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("GetPost mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscordUpsertAccountKeepsName(t *testing.T) {
	ctx := context.Background()
	s := newDiscordDB(t)

	first, err := s.UpsertAccount(ctx, "555", "My Server")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.NaturalKey != "555" || first.DisplayName != "My Server" {
		t.Errorf("account = %+v, want server 555 named My Server", first)
	}

	// The stored name is not rewritten on later scans.
	second, err := s.UpsertAccount(ctx, "555", "Renamed")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("ID changed across upserts: %d then %d", first.ID, second.ID)
	}
	if second.DisplayName != "My Server" {
		t.Errorf("DisplayName = %q, want My Server", second.DisplayName)
	}
}

func TestDiscordMetricsRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := newDiscordDB(t)

	acct, err := s.UpsertAccount(ctx, "555", "srv")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if got, err := s.LatestMetrics(ctx, acct.ID); err != nil || got != nil {
		t.Fatalf("LatestMetrics before save = (%v, %v), want (nil, nil)", got, err)
	}

	m := model.DiscordMetrics{
		AccountID:      acct.ID,
		Timestamp:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		TotalMembers:   200,
		OnlineMembers:  40,
		TotalMessages:  4,
		EngagementRate: 2,
		ActiveChannels: 2,
		Reactions:      3,
		Mentions:       5,
	}
	if err := s.SaveMetrics(ctx, &m); err != nil {
		t.Fatalf("save metrics: %v", err)
	}

	got, err := s.LatestMetrics(ctx, acct.ID)
	if err != nil {
		t.Fatalf("latest metrics: %v", err)
	}
	if diff := cmp.Diff(&m, got); diff != "" {
		t.Errorf("LatestMetrics mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscordSaveMessageReplacesByMessageID(t *testing.T) {
	ctx := context.Background()
	s := newDiscordDB(t)

	acct, err := s.UpsertAccount(ctx, "555", "srv")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	msg := model.DiscordMessage{MessageID: "m1", ChannelID: "general", Content: "hi", CreatedAt: created, Reactions: 1}
	if err := s.SaveMessage(ctx, acct.ID, &msg); err != nil {
		t.Fatalf("save message: %v", err)
	}

	msg.Reactions = 7
	msg.Replies = 2
	if err := s.SaveMessage(ctx, acct.ID, &msg); err != nil {
		t.Fatalf("re-save message: %v", err)
	}

	got, err := s.GetMessage(ctx, "m1")
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	want := model.DiscordMessage{MessageID: "m1", ChannelID: "general", Content: "hi", CreatedAt: created, Reactions: 7, Replies: 2}
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("GetMessage mismatch (-want +got):\n%s", diff)
	}
}

func TestTwitterMetricsRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := newTwitterDB(t)

	acct, err := s.UpsertAccount(ctx, "acct")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if got, err := s.LatestMetrics(ctx, acct.ID); err != nil || got != nil {
		t.Fatalf("LatestMetrics before save = (%v, %v), want (nil, nil)", got, err)
	}

	m := model.TwitterMetrics{
		AccountID:      acct.ID,
		Timestamp:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		TotalFollowers: 1000,
		Impressions:    2000,
		EngagementRate: 3.5,
		Reposts:        20,
		Mentions:       9,
	}
	if err := s.SaveMetrics(ctx, &m); err != nil {
		t.Fatalf("save metrics: %v", err)
	}

	got, err := s.LatestMetrics(ctx, acct.ID)
	if err != nil {
		t.Fatalf("latest metrics: %v", err)
	}
	if diff := cmp.Diff(&m, got); diff != "" {
		t.Errorf("LatestMetrics mismatch (-want +got):\n%s", diff)
	}
}

func TestTwitterSaveTweetReplacesByTweetID(t *testing.T) {
	ctx := context.Background()
	s := newTwitterDB(t)

	acct, err := s.UpsertAccount(ctx, "acct")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	tw := model.Tweet{TweetID: "t1", Content: "gm", CreatedAt: created, Likes: 10, Retweets: 2, Replies: 1}
	if err := s.SaveTweet(ctx, acct.ID, &tw); err != nil {
		t.Fatalf("save tweet: %v", err)
	}

	tw.Likes = 50
	if err := s.SaveTweet(ctx, acct.ID, &tw); err != nil {
		t.Fatalf("re-save tweet: %v", err)
	}

	got, err := s.GetTweet(ctx, "t1")
	if err != nil {
		t.Fatalf("get tweet: %v", err)
	}
	want := model.Tweet{TweetID: "t1", Content: "gm", CreatedAt: created, Likes: 50, Retweets: 2, Replies: 1}
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("GetTweet mismatch (-want +got):\n%s", diff)
	}
}
