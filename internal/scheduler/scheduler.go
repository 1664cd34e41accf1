// Package scheduler repeats ingestion runs on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"localnews/internal/fetcher"
	"localnews/internal/pipeline"
)

// Runner performs one ingestion pass.
type Runner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

// Scheduler runs ingestion now and then on every tick.
type Scheduler struct {
	runner Runner
	log    *slog.Logger
	tick   time.Duration
}

// New creates a Scheduler that runs every interval.
func New(runner Runner, log *slog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		runner: runner,
		log:    log,
		tick:   interval,
	}
}

// SetTickInterval overrides the run interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	sum, err := s.runner.Run(ctx)
	if err != nil {
		s.log.Error("ingestion run", "error", err)
		return
	}

	retry := 0
	for _, r := range sum.Reports {
		if r.Err != nil && fetcher.IsTransient(r.Err) {
			retry++
		}
	}
	if retry > 0 {
		s.log.Info("transient source failures will be retried next run", "count", retry, "next_run", s.tick)
	}
}
