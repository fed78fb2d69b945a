package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
)

const (
	DefaultDelay    = 10 * time.Second
	DefaultInterval = 120 * time.Second
)

// Runner is a single refresh cycle.
type Runner interface {
	Run(ctx context.Context) Outcome
}

// Scheduler runs a Runner on one worker goroutine: once after the initial
// delay, then every interval, plus once per Trigger. Runs never overlap and
// triggers are not coalesced.
type Scheduler struct {
	runner   Runner
	delay    time.Duration
	interval time.Duration

	mu      sync.Mutex
	pending int
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	wake    chan struct{}

	last atomic.Pointer[Outcome]
}

func NewScheduler(runner Runner, delay, interval time.Duration) *Scheduler {
	if delay < 0 {
		delay = DefaultDelay
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		runner:   runner,
		delay:    delay,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Start launches the worker. Calling it again while running has no effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop cancels the worker and waits for an in-flight run to return. The
// scheduler can be started again afterwards; queued triggers are kept.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mu.Lock()
	if s.done == done {
		s.started = false
		s.cancel = nil
		s.done = nil
	}
	s.mu.Unlock()
}

// Trigger queues one extra run. It does not block, and triggers issued
// before Start run once the worker is up.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// LastOutcome returns the outcome of the most recent run.
func (s *Scheduler) LastOutcome() (Outcome, bool) {
	last := s.last.Load()
	if last == nil {
		return Outcome{}, false
	}
	return *last, true
}

func (s *Scheduler) takePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == 0 {
		return false
	}
	s.pending--
	return true
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	initial := time.NewTimer(s.delay)
	defer initial.Stop()

	var ticker *time.Ticker
	var ticks <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-initial.C:
			s.run(ctx, "scheduled")
			ticker = time.NewTicker(s.interval)
			ticks = ticker.C
		case <-ticks:
			s.run(ctx, "scheduled")
		case <-s.wake:
			for s.takePending() {
				if ctx.Err() != nil {
					return
				}
				s.run(ctx, "invalidation")
			}
		}
	}
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	outcome := s.runner.Run(ctx)
	s.last.Store(&outcome)

	switch outcome.Status {
	case StatusSucceeded:
		logger.Info("Policy cache refreshed",
			zap.String("trigger", trigger),
			zap.Int("policies", outcome.Policies),
			zap.Int("pages", outcome.Pages),
			zap.Duration("duration", outcome.Duration))
	case StatusFetchFailed:
		logger.Error("Failed to retrieve policy set from the store, keeping previous policy cache until next refresh",
			zap.String("trigger", trigger),
			zap.Error(outcome.Err))
	case StatusIntegrityFailed:
		logger.Error("Policy store holds a record without policy info, keeping previous policy cache until next refresh",
			zap.String("trigger", trigger),
			zap.Error(outcome.Err))
	default:
		logger.Error("Unexpected error while refreshing policy cache, will retry on next attempt",
			zap.String("trigger", trigger),
			zap.Error(outcome.Err))
	}
}
