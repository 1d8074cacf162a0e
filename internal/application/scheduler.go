package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

// SyncRunner is the subset of SyncService the scheduler drives.
type SyncRunner interface {
	Run(ctx context.Context, trigger model.RunTrigger) (model.Run, error)
}

// Scheduler triggers sync runs on a cron schedule. Ticks that arrive while a
// run is still active are skipped.
type Scheduler struct {
	runner SyncRunner
	spec   string
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler validates spec (six fields, seconds first, or a descriptor
// such as "@every 1h") and returns a Scheduler that is not yet started.
func NewScheduler(runner SyncRunner, spec string, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.NewParser(
		cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	).Parse(spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}
	return &Scheduler{
		runner: runner,
		spec:   spec,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(
				cron.SkipIfStillRunning(cl),
				cron.Recover(cl),
			),
		),
		logger: logger,
	}, nil
}

// Start schedules runs and blocks until ctx is canceled, then waits for any
// active run to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule sync run: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.spec)

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// tick performs one scheduled run.
func (s *Scheduler) tick(ctx context.Context) {
	run, err := s.runner.Run(ctx, model.TriggerSchedule)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("scheduled run skipped, another run is active")
	case err != nil:
		s.logger.Error("scheduled run failed", "run_id", run.ID, "error", err)
	default:
		s.logger.Info("scheduled run completed", "run_id", run.ID, "status", string(run.Status))
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
