// Package scheduler runs periodic maintenance jobs, currently the sweep of
// expired refresh tokens.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/logging"
	"github.com/robfig/cron/v3"
)

// DefaultJobTimeout bounds a single sweep.
const DefaultJobTimeout = 5 * time.Minute

// Cleaner is satisfied by *services.SessionService.
type Cleaner interface {
	CleanupAll(ctx context.Context) (int, error)
}

// cronLogger routes cron's own messages into the service logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(context.Background(), "scheduler.cron."+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(context.Background(), "scheduler.job."+msg, append(keysAndValues, "error", err)...)
}

type Scheduler struct {
	cron     *cron.Cron
	wrappers []cron.JobWrapper
	schedule cron.Schedule
	spec     string
	cleaner  Cleaner
	log      logging.Logger
	timeout  time.Duration
}

// New parses spec (standard five-field cron or a descriptor such as
// "@hourly"). Overlapping runs are skipped and a panicking sweep is logged
// instead of taking the process down.
func New(spec string, cleaner Cleaner, log logging.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("cleanup schedule %q: %w", spec, err)
	}
	log = log.With("module", "scheduler")
	wrappers := []cron.JobWrapper{
		cron.Recover(cronLogger{log: log}),
		cron.SkipIfStillRunning(cronLogger{log: log}),
	}
	return &Scheduler{
		cron:     cron.New(cron.WithChain(wrappers...)),
		wrappers: wrappers,
		schedule: schedule,
		spec:     spec,
		cleaner:  cleaner,
		log:      log,
		timeout:  DefaultJobTimeout,
	}, nil
}

// RunOnce performs one sweep and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	removed, err := s.cleaner.CleanupAll(ctx)
	if err != nil {
		s.log.Error(ctx, "scheduler.cleanup.fail", "removed", removed, "error", err)
		return
	}
	s.log.Info(ctx, "scheduler.cleanup.ok", "removed", removed, "duration_ms", time.Since(start).Milliseconds())
}

// Run blocks until ctx is done, then waits for a running sweep to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.RunOnce(ctx) }))
	s.cron.Start()
	s.log.Info(ctx, "scheduler.started", "schedule", s.spec)

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.log.Info(context.Background(), "scheduler.stopped")
	return nil
}
