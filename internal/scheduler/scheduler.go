// Package scheduler drives periodic rescans.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs registered scan jobs on a fixed period.
type Scheduler struct {
	c   *cron.Cron
	log *slog.Logger
}

// New creates an empty Scheduler.
func New(log *slog.Logger) *Scheduler {
	return &Scheduler{c: cron.New(), log: log}
}

// Every registers job to run once per period.
func (s *Scheduler) Every(period time.Duration, name string, job func()) {
	s.c.Schedule(cron.Every(period), cron.FuncJob(func() {
		s.log.Info("running scheduled job", "job", name)
		job()
	}))
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.c.Entries())
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// any running job to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.c.Start()
	<-ctx.Done()
	<-s.c.Stop().Done()
}
