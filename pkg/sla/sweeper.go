// Package sla runs the periodic sweep that flags workflow steps whose SLA
// deadline has passed.
package sla

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep every five minutes.
const DefaultSchedule = "*/5 * * * *"

var ErrAlreadyStarted = errors.New("sweeper already started")

// BreachMarker flags overdue steps and reports how many were flagged.
type BreachMarker interface {
	MarkBreachedSteps(ctx context.Context) (int, error)
}

// Sweeper calls a BreachMarker on a cron schedule. Runs never overlap.
type Sweeper struct {
	marker   BreachMarker
	schedule string
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewSweeper validates schedule, a standard five-field cron expression.
func NewSweeper(marker BreachMarker, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid SLA schedule '%s': %w", schedule, err)
	}

	return &Sweeper{
		marker:   marker,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   logger.With("module", "sla_sweeper"),
	}, nil
}

// Start schedules the sweep. It stops when ctx is done or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn))
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.Sweep(runCtx) })
	if err != nil {
		s.cron = nil
		cancel()

		return fmt.Errorf("failed to add SLA sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("SLA sweeper started", "schedule", s.schedule, "entry_id", entryID)

	go func(c *cron.Cron) {
		<-runCtx.Done()
		s.stop(c)
	}(s.cron)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()

	s.stop(c)
}

func (s *Sweeper) stop(c *cron.Cron) {
	s.mu.Lock()
	if c == nil || s.cron != c {
		s.mu.Unlock()

		return
	}

	s.cron = nil
	cancel := s.cancel
	s.mu.Unlock()

	<-c.Stop().Done()
	cancel()

	s.logger.Info("SLA sweeper stopped")
}

// Sweep runs one pass and returns the number of newly breached steps.
func (s *Sweeper) Sweep(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	count, err := s.marker.MarkBreachedSteps(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "SLA sweep failed", "error", err)

		return 0
	}

	if count > 0 {
		s.logger.InfoContext(ctx, "SLA sweep flagged breached steps", "count", count)
	} else {
		s.logger.DebugContext(ctx, "SLA sweep found no breached steps")
	}

	return count
}
