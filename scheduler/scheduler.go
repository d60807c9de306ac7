// Package scheduler re-runs the installer at fixed times of day and keeps
// the run store up to date.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/geometax/refdata/installer"
	"github.com/geometax/refdata/interfaces"
	"github.com/geometax/refdata/logging"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler runs installs via gocron using injected dependencies
type Scheduler struct {
	runner    interfaces.Runner
	store     interfaces.RunStore
	scheduler *gocron.Scheduler
	at        string
	onRun     func(installer.Report)
}

// NewScheduler creates a scheduler that runs every day at the given
// ';' separated HH:MM times. onRun, if set, is called after each run.
func NewScheduler(runner interfaces.Runner, store interfaces.RunStore, at string, onRun func(installer.Report)) *Scheduler {
	return &Scheduler{
		runner:    runner,
		store:     store,
		scheduler: gocron.NewScheduler(time.Local),
		at:        at,
		onRun:     onRun,
	}
}

// Start performs an initial install and then schedules the daily runs
func (s *Scheduler) Start(ctx context.Context) error {
	s.RunOnce(ctx)

	_, err := s.scheduler.Every(1).Days().At(s.at).Do(func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		logging.Error("Failed to schedule installs", "error", err)
		return fmt.Errorf("failed to schedule installs at %q: %w", s.at, err)
	}

	s.scheduler.StartAsync()
	logging.Info("Install schedule started", "at", s.at, "next_run", s.NextRun().Format(time.RFC3339))
	return nil
}

// Stop stops the scheduler; a run in progress is not interrupted
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// NextRun returns the next scheduled install, zero if none is scheduled
func (s *Scheduler) NextRun() time.Time {
	_, next := s.scheduler.NextRun()
	return next
}

// RunOnce performs one install unless another is already running. It
// returns false when the run was skipped.
func (s *Scheduler) RunOnce(ctx context.Context) (installer.Report, bool) {
	if !s.store.BeginRun() {
		logging.Info("Install already in progress, skipping...")
		return installer.Report{}, false
	}
	defer s.store.EndRun()

	logging.Info(fmt.Sprintf("Starting install at: %s", time.Now().Format(time.RFC3339)))

	report := s.runner.Run(ctx)
	s.store.Record(report)

	if s.onRun != nil {
		s.onRun(report)
	}

	return report, true
}
