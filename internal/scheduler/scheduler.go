// Package scheduler runs periodic background refreshes on a cron spec.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"marketlens/internal/ingest"
)

// refreshTimeout bounds one scheduled run so a stalled provider cannot pile
// up overlapping refreshes.
const refreshTimeout = 5 * time.Minute

// Refresher is the ingestion entrypoint the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context, symbols []string) (ingest.Result, error)
}

// Scheduler manages the periodic refresh task.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	log       zerolog.Logger
}

// New creates a scheduler. Nothing runs until Register and Start are called.
func New(refresher Refresher, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the refresh task on the given cron spec. An empty spec
// disables scheduling entirely.
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		s.log.Info().Msg("no refresh cron configured, scheduler disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	s.log.Info().Str("cron", spec).Msg("refresh task registered")
	return nil
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron loop and waits for a running task to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) refreshTask() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	res, err := s.refresher.Refresh(ctx, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled refresh failed")
		return
	}
	s.log.Info().
		Int("prices", res.PricesUpserted).
		Int("fundamentals", res.FundamentalsUpserted).
		Int("news", res.NewsUpserted).
		Msg("scheduled refresh complete")
}
