// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Job interface {
	Run()
}

type SchedulerParams struct {
	Logger zerolog.Logger
}

func NewScheduler(params SchedulerParams) *Scheduler {
	logger := cronLogger{params.Logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		logger: params.Logger,
		jobs:   make(map[cron.EntryID]string),
	}
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   map[cron.EntryID]string
	logger zerolog.Logger
}

// Start the scheduler in its own routine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) AddJob(name string, schedule string, job Job) error {
	entry, err := s.cron.AddJob(schedule, job)
	if err != nil {
		return fmt.Errorf("could not add job %s: %w", name, err)
	}
	s.jobs[entry] = name
	s.logger.Debug().Str("job", name).Str("schedule", schedule).Msg("job scheduled")
	return nil
}

func (s *Scheduler) RemoveJobs() {
	for entry, name := range s.jobs {
		s.cron.Remove(entry)
		delete(s.jobs, entry)
		s.logger.Debug().Str("job", name).Msg("job removed")
	}
}

func (s *Scheduler) Len() int {
	return len(s.jobs)
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Trace().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
