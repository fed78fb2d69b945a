package refresh

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	runs      atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	hold      time.Duration
}

func (r *countingRunner) Run(ctx context.Context) Outcome {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		cur := r.maxActive.Load()
		if n <= cur || r.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	if r.hold > 0 {
		time.Sleep(r.hold)
	}
	r.runs.Add(1)
	return Outcome{Status: StatusSucceeded}
}

func TestScheduler_InitialDelayThenInterval(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 0, 10*time.Millisecond)
	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool { return runner.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_WaitsForInitialDelay(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, time.Hour, time.Hour)
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), runner.runs.Load())
}

func TestScheduler_EveryTriggerRuns(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, time.Hour, time.Hour)

	// Queued before the worker exists.
	for i := 0; i < 5; i++ {
		s.Trigger()
	}
	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool { return runner.runs.Load() == 5 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(5), runner.runs.Load())
}

func TestScheduler_RunsNeverOverlap(t *testing.T) {
	runner := &countingRunner{hold: 2 * time.Millisecond}
	s := NewScheduler(runner, 0, time.Millisecond)
	s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 10; i++ {
		s.Trigger()
	}

	assert.Eventually(t, func() bool { return runner.runs.Load() >= 11 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), runner.maxActive.Load())
}

type blockingRunner struct {
	started chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context) Outcome {
	close(r.started)
	<-ctx.Done()
	return Outcome{Status: StatusFetchFailed, Err: ctx.Err()}
}

func TestScheduler_StopCancelsInFlightRun(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{})}
	s := NewScheduler(runner, time.Hour, time.Hour)
	s.Start(context.Background())
	s.Trigger()

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("run never started")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	last, ok := s.LastOutcome()
	require.True(t, ok)
	assert.Equal(t, StatusFetchFailed, last.Status)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := NewScheduler(&countingRunner{}, 0, time.Second)
	assert.NotPanics(t, s.Stop)
	_, ok := s.LastOutcome()
	assert.False(t, ok)
}

func TestScheduler_RestartAfterStop(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, time.Hour, time.Hour)

	s.Start(context.Background())
	s.Trigger()
	require.Eventually(t, func() bool { return runner.runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	s.Trigger()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runner.runs.Load(), "stopped scheduler must not run")

	s.Start(context.Background())
	defer s.Stop()
	assert.Eventually(t, func() bool { return runner.runs.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}
