// Package tasks runs periodic maintenance jobs.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// sweepTimeout bounds one sweep run.
const sweepTimeout = 30 * time.Second

// ExpiredLinkSweeper deletes expired share links.
type ExpiredLinkSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler owns the cron runner.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// NewScheduler registers the share link sweep on schedule, which accepts
// standard cron expressions and descriptors such as "@every 15m". An empty
// schedule disables the sweep.
func NewScheduler(schedule string, sweeper ExpiredLinkSweeper, log *slog.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s := &Scheduler{cron: c, log: log}
	if schedule == "" {
		return s, nil
	}
	if _, err := c.AddFunc(schedule, func() { s.sweep(sweeper) }); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) sweep(sweeper ExpiredLinkSweeper) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	start := time.Now()
	n, err := sweeper.SweepExpired(ctx)
	if err != nil {
		s.log.Warn("share link sweep failed", "error", err)
		return
	}
	s.log.Debug("share link sweep done", "removed", n, "took", time.Since(start))
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int { return len(s.cron.Entries()) }

// Run starts the scheduler and blocks until ctx is done, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
