// Package scheduler runs recurring maintenance tasks on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// Task is a unit of recurring work.
type Task func(ctx context.Context) error

type entry struct {
	name     string
	expr     string
	schedule cron.Schedule
	fn       Task
}

// Scheduler runs registered tasks whenever their cron schedule fires.
// Runs of one task never overlap; a run that overlaps its next fire time
// delays it.
type Scheduler struct {
	mu sync.Mutex

	logger *slog.Logger
	clock  clockwork.Clock

	// cron parser for validating/parsing cron expressions
	parser cron.Parser

	entries []*entry

	// Running state
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler. Expressions use six fields with
// seconds first; descriptors such as "@daily" and "@every 1h" are accepted.
func NewScheduler() *Scheduler {
	return &Scheduler{
		logger: slog.Default(),
		clock:  clockwork.NewRealClock(),
		parser: cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// WithLogger sets a custom logger.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// WithClock replaces the wall clock, for tests.
func (s *Scheduler) WithClock(clock clockwork.Clock) *Scheduler {
	s.clock = clock
	return s
}

// Add registers fn under name. Tasks added after Start run from the next Start.
func (s *Scheduler) Add(name, expr string, fn Task) error {
	normalized, err := NormalizeCronExpression(expr)
	if err != nil {
		return fmt.Errorf("task %s: %w", name, err)
	}
	schedule, err := s.parser.Parse(normalized)
	if err != nil {
		return fmt.Errorf("task %s: invalid cron expression: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &entry{name: name, expr: normalized, schedule: schedule, fn: fn})
	return nil
}

// Start begins running registered tasks.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(s.ctx, e)
	}

	s.logger.Info("scheduler started", slog.Int("tasks", len(s.entries)))
	return nil
}

// Stop stops the scheduler and waits for running tasks to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	for {
		now := s.clock.Now()
		next := e.schedule.Next(now)
		s.logger.Debug("task scheduled",
			slog.String("task", e.name),
			slog.Time("next_run", next))

		timer := s.clock.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
			s.run(ctx, e)
		}
	}
}

// run executes one task, isolating panics so the loop keeps going.
func (s *Scheduler) run(ctx context.Context, e *entry) {
	start := s.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked",
				slog.String("task", e.name),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()

	if err := e.fn(ctx); err != nil {
		s.logger.Error("scheduled task failed",
			slog.String("task", e.name),
			slog.Duration("duration", s.clock.Since(start)),
			slog.String("error", err.Error()))
		return
	}
	s.logger.Info("scheduled task completed",
		slog.String("task", e.name),
		slog.Duration("duration", s.clock.Since(start)))
}

// ParseCron validates a cron expression and returns the next run time.
func (s *Scheduler) ParseCron(expr string) (time.Time, error) {
	normalized, err := NormalizeCronExpression(expr)
	if err != nil {
		return time.Time{}, err
	}
	schedule, err := s.parser.Parse(normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule.Next(s.clock.Now()), nil
}

// ValidateCron validates a cron expression.
func (s *Scheduler) ValidateCron(expr string) error {
	_, err := s.ParseCron(expr)
	return err
}

// NormalizeCronExpression accepts six-field expressions unchanged, drops the
// trailing year of seven-field expressions and passes descriptors through.
// The year field is checked for shape only.
func NormalizeCronExpression(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", fmt.Errorf("empty cron expression")
	}
	if strings.HasPrefix(expr, "@") {
		return expr, nil
	}

	fields := strings.Fields(expr)
	switch len(fields) {
	case 6:
		return strings.Join(fields, " "), nil
	case 7:
		if !validYearField(fields[6]) {
			return "", fmt.Errorf("invalid year field %q", fields[6])
		}
		return strings.Join(fields[:6], " "), nil
	default:
		return "", fmt.Errorf("expected 6 or 7 fields, got %d", len(fields))
	}
}

func validYearField(field string) bool {
	if field == "*" || field == "?" {
		return true
	}
	for _, r := range field {
		if (r < '0' || r > '9') && r != '-' && r != ',' && r != '/' && r != '*' {
			return false
		}
	}
	return true
}
