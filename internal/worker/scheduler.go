package worker

import (
	"context"
	"sync"
	"time"

	"ingestion-portal/internal/logger"

	"github.com/rs/zerolog"
)

// Task is a job run at a fixed interval. Failures are logged and the task waits for its
// next tick; nothing is retried.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	tasks      []Task
	runOnStart bool
	log        zerolog.Logger
}

func NewScheduler(runOnStart bool, tasks ...Task) *Scheduler {
	return &Scheduler{
		tasks:      tasks,
		runOnStart: runOnStart,
		log:        logger.Component("scheduler"),
	}
}

// Start runs every task on its own timer until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info().Int("tasks", len(s.tasks)).Msg("Starting scheduler")

	var wg sync.WaitGroup
	for _, task := range s.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			s.loop(ctx, t)
		}(task)
	}
	wg.Wait()

	s.log.Info().Msg("Scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	log := s.log.With().Str("task", t.Name).Logger()

	if s.runOnStart {
		log.Info().Msg("Running task on startup")
		s.RunOnce(ctx, t)
	}

	timer := time.NewTimer(t.Interval)
	defer timer.Stop()
	log.Info().Time("next_run", time.Now().Add(t.Interval)).Msg("Scheduled next run")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Task loop cancelled")
			return
		case <-timer.C:
			s.RunOnce(ctx, t)
			timer.Reset(t.Interval)
			log.Debug().Time("next_run", time.Now().Add(t.Interval)).Msg("Scheduled next run")
		}
	}
}

// RunOnce runs t a single time and reports whether it succeeded.
func (s *Scheduler) RunOnce(ctx context.Context, t Task) bool {
	start := time.Now()
	err := t.Run(ctx)
	event := s.log.Info()
	if err != nil {
		event = s.log.Error().Err(err)
	}
	event.Str("task", t.Name).Dur("duration", time.Since(start)).Msg("Task finished")
	return err == nil
}
