// Package scheduler drives runs from cron and from chat commands in daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"DCAPilot/internal/model"
	"DCAPilot/internal/notifier"
	"DCAPilot/internal/runner"
)

// Job is what the scheduler triggers.
type Job interface {
	Run(ctx context.Context, trigger model.TriggerType) runner.ExitCode
	Report(ctx context.Context) string
	Status() string
}

// Scheduler manages the daily cron entry and operator commands.
type Scheduler struct {
	Cron     *cron.Cron
	Job      Job
	Notifier notifier.Notifier
	Ctx      context.Context

	log zerolog.Logger
	wg  sync.WaitGroup
}

// NewScheduler creates a new Scheduler. Cron specs include a seconds field.
func NewScheduler(ctx context.Context, job Job, n notifier.Notifier, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Job:      job,
		Notifier: n,
		Ctx:      ctx,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterDaily registers the daily DCA run.
func (s *Scheduler) RegisterDaily(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, func() { s.run(model.TriggerScheduled) }); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	s.log.Info().Str("cron", dailyCron).Msg("daily run registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for runs in flight, including triggered ones.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes a run immediately and waits for it.
func (s *Scheduler) RunNow(trigger model.TriggerType) runner.ExitCode {
	s.wg.Add(1)
	defer s.wg.Done()
	return s.run(trigger)
}

// Trigger starts a run in the background. Stop waits for it.
func (s *Scheduler) Trigger(trigger model.TriggerType) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(trigger)
	}()
}

func (s *Scheduler) run(trigger model.TriggerType) runner.ExitCode {
	s.log.Info().Str("trigger", string(trigger)).Msg("running daily DCA")
	return s.Job.Run(s.Ctx, trigger)
}

// HandleCommand processes a chat command and returns a reply.
// /run starts a run in the background; its progress arrives as notifications.
func (s *Scheduler) HandleCommand(command string) string {
	cmd := strings.TrimSpace(command)
	if i := strings.IndexAny(cmd, "@ "); i > 0 {
		cmd = cmd[:i]
	}
	switch strings.ToLower(cmd) {
	case "/run":
		s.Trigger(model.TriggerManual)
		return "🚀 DCA run started."
	case "/pnl":
		return s.Job.Report(s.Ctx)
	case "/status":
		return s.Job.Status()
	default:
		return "Available commands:\n• /run - buy today's basket now\n• /pnl - profit and loss per asset\n• /status - last run outcome"
	}
}
