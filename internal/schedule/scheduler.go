// Package schedule fires the daily ingestion trigger: every day at a
// configured local wall-clock time it starts a background run for
// yesterday's gazette date.
package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/registralia/borme-engine/internal/ingest"
	"github.com/registralia/borme-engine/internal/observability"
)

// DateTrigger starts a background ingestion run for one gazette date.
// *ingest.Orchestrator satisfies it.
type DateTrigger interface {
	TriggerDate(date string) ingest.TriggerResult
}

// Config holds the daily schedule: a wall-clock time in a location. A nil
// Location means UTC.
type Config struct {
	Hour     int
	Minute   int
	Location *time.Location
	// Now returns the current time; tests substitute a fixed clock.
	Now func() time.Time
}

// Scheduler runs the daily trigger loop. Start launches it, Stop halts it
// and waits for the loop goroutine to exit; both are idempotent.
type Scheduler struct {
	trigger DateTrigger
	cfg     Config
	logger  *observability.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates a scheduler. A nil logger disables logging.
func New(trigger DateTrigger, cfg Config, logger *observability.Logger) *Scheduler {
	if logger == nil {
		logger = observability.Nop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		trigger: trigger,
		cfg:     cfg,
		logger:  logger.WithComponent("schedule"),
	}
}

// Start launches the daily loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)

	s.logger.Info().
		Str("at", fmt.Sprintf("%02d:%02d", s.cfg.Hour, s.cfg.Minute)).
		Str("timezone", s.cfg.Location.String()).
		Msg("daily ingestion scheduled")
}

// Stop halts the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		now := s.cfg.Now()
		timer := time.NewTimer(s.NextRun(now).Sub(now))
		select {
		case <-timer.C:
			s.runOnce()
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// NextRun returns the first scheduled instant strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.cfg.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.cfg.Hour, s.cfg.Minute, 0, 0, s.cfg.Location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// runOnce triggers yesterday's date: at the scheduled time today's edition
// may not be published yet. An active run refuses the trigger; the date is
// picked up again the next day, or by a manual backfill.
func (s *Scheduler) runOnce() {
	yesterday := s.cfg.Now().In(s.cfg.Location).AddDate(0, 0, -1).Format("2006-01-02")
	res := s.trigger.TriggerDate(yesterday)
	if res.Started {
		s.logger.Info().Str("gazette_date", yesterday).Msg("daily ingestion started")
		return
	}
	s.logger.Warn().Str("gazette_date", yesterday).Str("reason", res.Reason).Msg("daily ingestion not started")
}
