// Package scraper implements the per-platform scan orchestrators: resolve
// the account, collect recent items, aggregate engagement metrics, count
// mentions, and persist the snapshot with its items.
package scraper

import (
	"errors"
	"fmt"
	"time"
)

// Platform identifies one of the supported platforms.
type Platform string

// Supported platforms.
const (
	Telegram Platform = "telegram"
	Discord  Platform = "discord"
	Twitter  Platform = "twitter"
)

// ErrScanInProgress reports that a scan was suppressed because another scan
// on the same orchestrator was already running. It is a distinct outcome,
// not a hard failure: no snapshot was computed or stored.
var ErrScanInProgress = errors.New("scan already in progress")

// ParsePlatform maps a CLI selector to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case Telegram, Discord, Twitter:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unsupported platform: %q", s)
}

// Options tune collection behavior shared by all scrapers.
type Options struct {
	MessageLimit  int           // items requested per sub-resource
	MaxRetries    uint64        // throttle retries per upstream call
	MentionWindow time.Duration // trailing window for mention counting
}

func (o Options) withDefaults() Options {
	if o.MessageLimit <= 0 {
		o.MessageLimit = 100
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 5
	}
	if o.MentionWindow <= 0 {
		o.MentionWindow = 7 * 24 * time.Hour
	}
	return o
}
