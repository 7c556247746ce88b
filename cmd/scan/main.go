package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aytch4k/socialz/internal/config"
	"github.com/aytch4k/socialz/internal/ratelimit"
	"github.com/aytch4k/socialz/internal/scheduler"
	"github.com/aytch4k/socialz/internal/scraper"
	"github.com/aytch4k/socialz/internal/source/discordapi"
	"github.com/aytch4k/socialz/internal/source/telegramweb"
	"github.com/aytch4k/socialz/internal/source/twitterapi"
	"github.com/aytch4k/socialz/internal/storage"
)

func main() {
	platformFlag := flag.String("platform", "", "platform to scan: telegram, discord, twitter, or all")
	telegramID := flag.String("telegram", "", "telegram channel username")
	discordID := flag.String("discord", "", "discord server id")
	twitterID := flag.String("twitter", "", "twitter username")
	every := flag.Duration("every", 0, "rescan period (0 runs once and exits)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	jobs, err := buildJobs(cfg, log, *platformFlag, *telegramID, *discordID, *twitterID)
	if err != nil {
		log.Error("configure scan", "error", err)
		os.Exit(1)
	}
	defer func() {
		for _, j := range jobs {
			_ = j.close()
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runAll := func() error {
		start := time.Now()
		log.Info("starting metrics collection")

		var g errgroup.Group
		for _, j := range jobs {
			j := j
			g.Go(func() error {
				if err := j.run(ctx); err != nil {
					log.Error("scan failed", "platform", j.platform, "account", j.id, "error", err)
					return err
				}
				return nil
			})
		}
		err := g.Wait()

		log.Info("scan completed", "duration", time.Since(start).Round(time.Millisecond).String())
		return err
	}

	err = runAll()

	if *every > 0 {
		sched := scheduler.New(log)
		sched.Every(*every, "rescan", func() { _ = runAll() })
		log.Info("scheduler running", "period", every.String())
		sched.Run(ctx)
		return
	}

	if err != nil {
		os.Exit(1)
	}
}

// job binds one platform scan to its identifier and store lifecycle.
type job struct {
	platform scraper.Platform
	id       string
	run      func(context.Context) error
	close    func() error
}

func buildJobs(cfg *config.Config, log *slog.Logger, platformFlag, telegramID, discordID, twitterID string) ([]job, error) {
	var platforms []scraper.Platform
	switch platformFlag {
	case "all":
		platforms = []scraper.Platform{scraper.Telegram, scraper.Discord, scraper.Twitter}
	case "":
		return nil, fmt.Errorf("-platform is required")
	default:
		p, err := scraper.ParsePlatform(platformFlag)
		if err != nil {
			return nil, err
		}
		platforms = []scraper.Platform{p}
	}

	ids := map[scraper.Platform]string{
		scraper.Telegram: strings.TrimPrefix(strings.TrimSpace(telegramID), "@"),
		scraper.Discord:  strings.TrimSpace(discordID),
		scraper.Twitter:  strings.TrimPrefix(strings.TrimSpace(twitterID), "@"),
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	var jobs []job
	for _, p := range platforms {
		id := ids[p]
		if id == "" {
			if platformFlag == "all" {
				continue
			}
			return nil, fmt.Errorf("no identifier provided for platform %s", p)
		}
		j, err := buildJob(cfg, log, p, id)
		if err != nil {
			for _, prev := range jobs {
				_ = prev.close()
			}
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no platform identifiers provided")
	}
	return jobs, nil
}

func buildJob(cfg *config.Config, log *slog.Logger, p scraper.Platform, id string) (job, error) {
	opts := cfg.ScanOptions()
	gov := ratelimit.New(log)

	switch p {
	case scraper.Telegram:
		src, err := telegramweb.New(cfg.TelegramBotToken)
		if err != nil {
			return job{}, err
		}
		store, err := storage.NewTelegramSQLite(filepath.Join(cfg.DataDir, "telegram_metrics.db"))
		if err != nil {
			return job{}, err
		}
		sc := scraper.NewTelegram(src, store, gov, log, opts)
		return job{
			platform: p,
			id:       id,
			run: func(ctx context.Context) error {
				_, err := sc.Scan(ctx, id)
				return err
			},
			close: store.Close,
		}, nil

	case scraper.Discord:
		src, err := discordapi.New(cfg.DiscordBotToken)
		if err != nil {
			return job{}, err
		}
		store, err := storage.NewDiscordSQLite(filepath.Join(cfg.DataDir, "discord_metrics.db"))
		if err != nil {
			return job{}, err
		}
		sc := scraper.NewDiscord(src, store, gov, log, opts)
		return job{
			platform: p,
			id:       id,
			run: func(ctx context.Context) error {
				_, err := sc.Scan(ctx, id)
				return err
			},
			close: store.Close,
		}, nil

	case scraper.Twitter:
		src, err := twitterapi.New(cfg.TwitterBearerToken, gov)
		if err != nil {
			return job{}, err
		}
		store, err := storage.NewTwitterSQLite(filepath.Join(cfg.DataDir, "twitter_metrics.db"))
		if err != nil {
			return job{}, err
		}
		sc := scraper.NewTwitter(src, store, gov, log, opts)
		return job{
			platform: p,
			id:       id,
			run: func(ctx context.Context) error {
				_, err := sc.Scan(ctx, id)
				return err
			},
			close: store.Close,
		}, nil
	}
	return job{}, fmt.Errorf("unsupported platform: %s", p)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
