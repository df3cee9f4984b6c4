package mioco

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSleepBlocksApproximateDuration is scenario S2: Sleep suspends the
// calling coroutine for at least the requested duration, and returns
// control to the Runtime once it does (the Runtime's Start call itself
// unblocks once the entry coroutine's Sleep wakes it and it returns).
func TestSleepBlocksApproximateDuration(t *testing.T) {
	const delay = 30 * time.Millisecond
	start := time.Now()

	StartThreads(1, func() error {
		Sleep(delay)
		return nil
	})

	elapsed := time.Since(start)
	require.GreaterOrEqual(t, elapsed, delay)
	require.Less(t, elapsed, delay+500*time.Millisecond)
}

// TestPanicContainedByDefault is scenario S6: a coroutine entry that
// panics is recovered into ExitStatus{Kind: ExitPanic} when CatchPanics is
// true (the default), rather than crashing the process, and its sibling
// coroutines and the Runtime itself keep running normally.
func TestPanicContainedByDefault(t *testing.T) {
	cfg := NewConfig()
	cfg.ThreadNum = 1
	rt, err := NewRuntime(cfg)
	require.NoError(t, err)

	results := make(chan ExitStatus, 1)

	rt.Start(func() error {
		box := NewMailbox()
		h := SpawnExt(func() error {
			panic("boom")
		})
		h.co.AddExitNotifier(box)

		co := mustCurrent()
		srcID, err := co.Attach(box, DirRead)
		if err != nil {
			return err
		}
		defer co.Detach(srcID)
		for {
			if msg, ok := box.TryRecv(); ok {
				results <- msg.(ExitStatus)
				break
			}
			if _, err := co.Select(srcID); err != nil {
				return err
			}
		}
		return nil
	})

	status := <-results
	require.Equal(t, ExitPanic, status.Kind)
	require.Equal(t, "boom", status.Panic)
}

// killSecondScheduler resumes the first Coroutine handed to it (the entry
// coroutine, which drives the test's own assertions) and abandons every
// other one without Resume, Migrate, or Retain - exercising the
// settle-or-kill path.
type killSecondScheduler struct{ resumed *bool }

func (s killSecondScheduler) SpawnThread() SchedulerThread { return s }
func (s killSecondScheduler) Spawned(ctrl CoroutineControl) {
	if !*s.resumed {
		*s.resumed = true
		ctrl.Resume()
	}
	// Every later Spawned call is abandoned: the handler kills it once
	// this call returns.
}
func (s killSecondScheduler) Ready(ctrl CoroutineControl) { ctrl.Resume() }
func (s killSecondScheduler) Tick()                       {}

// TestAbandonedCoroutineIsKilled checks §8 invariant 4 (exit delivery) for
// the abandonment path: a CoroutineControl that a SchedulerThread neither
// Resumes, Migrates, nor Retains is killed by the owning ThreadHandler, and
// that kill is reported through exit notifiers exactly as any other
// terminal state would be.
func TestAbandonedCoroutineIsKilled(t *testing.T) {
	resumed := false
	cfg := NewConfig()
	cfg.ThreadNum = 1
	cfg.Scheduler = killSecondScheduler{resumed: &resumed}
	rt, err := NewRuntime(cfg)
	require.NoError(t, err)

	results := make(chan ExitStatus, 1)
	rt.Start(func() error {
		box := NewMailbox()
		h := SpawnExt(func() error {
			return nil
		})
		h.co.AddExitNotifier(box)

		co := mustCurrent()
		srcID, err := co.Attach(box, DirRead)
		if err != nil {
			return err
		}
		defer co.Detach(srcID)
		for {
			if msg, ok := box.TryRecv(); ok {
				results <- msg.(ExitStatus)
				break
			}
			if _, err := co.Select(srcID); err != nil {
				return err
			}
		}
		return nil
	})

	status := <-results
	require.Equal(t, ExitKilled, status.Kind)
}

func TestErrNotInCoroutinePanicsOutsideRuntime(t *testing.T) {
	require.False(t, InCoroutine())
	require.PanicsWithValue(t, ErrNotInCoroutine.Error()+"; set GOTRACEBACK=all for a full stack trace", func() {
		YieldNow()
	})
}

func TestNewRuntimeDefaultsNonPositiveThreadNum(t *testing.T) {
	cfg := NewConfig()
	cfg.ThreadNum = -3
	rt, err := NewRuntime(cfg)
	require.NoError(t, err)
	require.Positive(t, rt.threadCount())
}
