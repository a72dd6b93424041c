/*
scheduler.go - Automated request status scheduler

PURPOSE:
  Periodically moves requests along their lifecycle as dates pass:

    approved ──▶ active      when start <= today <= end
    approved/active ──▶ completed   when end < today (AutoComplete only)

  Completion releases the reserved days like any exit from a
  balance-affecting status.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Each run is one service mutation: all moves are saved together or not at all

CONFIGURATION:
  - CheckInterval: how often to check (default: 1 hour)
  - Enabled:       whether the scheduler runs (default: false)
  - AutoComplete:  whether ended requests are completed (default: false)

USAGE:
  scheduler := NewStatusScheduler(svc, log)
  scheduler.Enabled = true
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Advance endpoint (manual run)
  - tracker/engine.go: AdvanceStatuses
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/leave-tracker/logger"
	"github.com/warp/leave-tracker/tracker"
)

// StatusScheduler advances request statuses in the background.
type StatusScheduler struct {
	Service       *tracker.Service
	CheckInterval time.Duration
	Enabled       bool
	AutoComplete  bool

	log    *logger.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex // guards ticker and stop

	runMu   sync.Mutex // guards lastRun
	lastRun time.Time
}

// NewStatusScheduler creates a disabled scheduler with a one hour interval.
func NewStatusScheduler(svc *tracker.Service, log *logger.Logger) *StatusScheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &StatusScheduler{
		Service:       svc,
		CheckInterval: time.Hour,
		log:           log.WithComponent("scheduler"),
	}
}

// Start begins the scheduler. Calling Start on a running scheduler is a no-op.
func (s *StatusScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info().Msg("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.log.Info().
		Dur("interval", s.CheckInterval).
		Bool("auto_complete", s.AutoComplete).
		Msg("scheduler started")
}

// Stop stops the scheduler and waits for a run in progress to finish.
func (s *StatusScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.log.Info().Msg("scheduler stopped")
}

func (s *StatusScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.checkAndProcess()

	for {
		select {
		case <-ticker.C:
			s.checkAndProcess()
		case <-stop:
			return
		}
	}
}

func (s *StatusScheduler) checkAndProcess() {
	if _, err := s.RunNow(context.Background()); err != nil {
		s.log.WithError(err).Error().Msg("status check failed")
	}
}

// RunNow applies status moves immediately (for testing/admin).
func (s *StatusScheduler) RunNow(ctx context.Context) ([]tracker.StatusChange, error) {
	changes, err := s.Service.AdvanceStatuses(ctx, s.AutoComplete)
	if err != nil {
		return nil, err
	}
	s.runMu.Lock()
	s.lastRun = time.Now()
	s.runMu.Unlock()

	if len(changes) > 0 {
		s.log.Info().Int("changes", len(changes)).Msg("request statuses advanced")
	}
	return changes, nil
}

// LastRun returns when the last successful check finished.
func (s *StatusScheduler) LastRun() time.Time {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.lastRun
}
