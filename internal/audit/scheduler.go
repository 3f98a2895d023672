package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron"
)

// DefaultSweepTimeout bounds one scheduled repair sweep.
const DefaultSweepTimeout = 10 * time.Minute

// Scheduler runs repair sweeps on a cron schedule such as "@every 1h".
type Scheduler struct {
	auditor *Auditor
	cron    *cron.Cron
	log     *slog.Logger
	timeout time.Duration
}

// NewScheduler parses the cron expression and returns a stopped Scheduler.
func NewScheduler(a *Auditor, spec string, log *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		auditor: a,
		cron:    cron.New(),
		log:     log,
		timeout: DefaultSweepTimeout,
	}
	if err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return nil, fmt.Errorf("audit schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running sweeps in the background.
func (s *Scheduler) Start() {
	s.log.Info("audit scheduler started", slog.String("root", s.auditor.Root()))
	s.cron.Start()
}

// Stop halts future sweeps. A sweep already running finishes on its own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("audit scheduler stopped")
}

// Sweep runs one repair sweep. A sweep that finds another one in progress is
// skipped.
func (s *Scheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rep, err := s.auditor.Repair(ctx)
	if errors.Is(err, ErrSweepInProgress) {
		s.log.Info("scheduled audit skipped, sweep in progress")
		return
	}
	if err != nil {
		s.log.Error("scheduled audit failed", slog.String("error", err.Error()))
		return
	}
	if !rep.Clean() {
		s.log.Warn("scheduled audit found drift", slog.Any("counts", rep.Counts()))
	}
}
