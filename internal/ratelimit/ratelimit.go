// Package ratelimit tracks rate-limit signals from upstream platforms and
// drives the bounded retry loop around throttled calls.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/aytch4k/socialz/internal/source"
)

// guardMargin is added to every computed wait so a retry never lands just
// before the upstream's reset tick.
const guardMargin = time.Second

// ErrRetriesExhausted is returned by Do when an operation stayed throttled
// through every permitted attempt.
var ErrRetriesExhausted = errors.New("rate limit retries exhausted")

// Governor remembers the most recent rate-limit signal from an upstream and
// computes how long a caller must stand down before retrying. A Governor
// with no recorded signal imposes no wait.
type Governor struct {
	log    *slog.Logger
	margin time.Duration
	now    func() time.Time

	mu        sync.Mutex
	resetAt   time.Time
	remaining int
}

// New creates a Governor with no recorded rate-limit state.
func New(log *slog.Logger) *Governor {
	return &Governor{
		log:       log,
		margin:    guardMargin,
		now:       time.Now,
		remaining: -1,
	}
}

// Observe records the reset deadline and remaining-call budget reported by a
// successful upstream response.
func (g *Governor) Observe(resetAt time.Time, remaining int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !resetAt.IsZero() {
		g.resetAt = resetAt
	}
	g.remaining = remaining
}

// ObserveThrottle records the hint carried by a throttling error. A nil or
// hint-less signal leaves the recorded state unchanged.
func (g *Governor) ObserveThrottle(te *source.ThrottledError) {
	if te == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case !te.ResetAt.IsZero():
		g.resetAt = te.ResetAt
	case te.RetryAfter > 0:
		g.resetAt = g.now().Add(te.RetryAfter)
	}
}

// Remaining returns the last observed remaining-call budget, -1 if unknown.
func (g *Governor) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining
}

// Delay returns how long to stand down before the next attempt: the time
// until the recorded reset deadline plus a guard margin, or zero when no
// deadline is known or it has already passed.
func (g *Governor) Delay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resetAt.IsZero() {
		return 0
	}
	d := g.resetAt.Sub(g.now())
	if d < 0 {
		return 0
	}
	return d + g.margin
}

// Wait suspends the caller until the recorded reset deadline has passed.
// A no-op when no deadline is known. Never fails except on context
// cancellation.
func (g *Governor) Wait(ctx context.Context) error {
	d := g.Delay()
	if d == 0 {
		return nil
	}
	g.mu.Lock()
	resetAt := g.resetAt
	g.mu.Unlock()
	g.log.Warn("rate limit reached, waiting",
		"wait", d.Round(time.Second),
		"reset_at", resetAt.UTC().Format(time.RFC3339))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff feeds governor delays to the retry loop.
type backoff struct {
	g *Governor
}

func (b backoff) Next() (time.Duration, bool) {
	d := b.g.Delay()
	b.g.log.Warn("rate limit reached, standing down", "wait", d.Round(time.Second))
	return d, false
}

// Do runs fn, retrying up to maxRetries additional times when it reports
// throttling. Waits between attempts come from the governor. Non-throttle
// errors are returned as-is without retrying; sustained throttling past the
// budget is reported as ErrRetriesExhausted wrapping the last signal.
func Do(ctx context.Context, g *Governor, maxRetries uint64, fn func(context.Context) error) error {
	err := retry.Do(ctx, retry.WithMaxRetries(maxRetries, backoff{g: g}), func(ctx context.Context) error {
		err := fn(ctx)
		if te, ok := source.AsThrottled(err); ok {
			g.ObserveThrottle(te)
			return retry.RetryableError(err)
		}
		return err
	})
	if _, ok := source.AsThrottled(err); ok {
		return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
	}
	return err
}
