package mioco

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// migrateOnceScheduler is a minimal Scheduler: it runs every freshly spawned
// coroutine where it was spawned, migrates a coroutine that becomes Ready on
// any thread other than thread 1 to thread 1, and on thread 1 runs
// everything FIFO.
type migrateOnceScheduler struct{ delegate *FifoScheduler }

func newMigrateOnceScheduler() *migrateOnceScheduler {
	return &migrateOnceScheduler{delegate: NewFifoScheduler()}
}

func (s *migrateOnceScheduler) SpawnThread() SchedulerThread {
	return &migrateOnceSchedulerThread{inner: s.delegate.SpawnThread().(*fifoSchedulerThread)}
}

type migrateOnceSchedulerThread struct {
	inner *fifoSchedulerThread
}

func (t *migrateOnceSchedulerThread) Spawned(ctrl CoroutineControl) { ctrl.Resume() }

func (t *migrateOnceSchedulerThread) Ready(ctrl CoroutineControl) {
	if ctrl.handler.id != 1 {
		ctrl.Migrate(1)
		return
	}
	t.inner.Ready(ctrl)
}

func (t *migrateOnceSchedulerThread) Tick() { t.inner.Tick() }

// TestMigrationPreservesAttachedMailbox checks §8's migration-preservation
// invariant: a coroutine migrated to another thread while suspended (here,
// after a YieldNow on thread 0) keeps its attached EventSource (here, a
// Mailbox) fully functional - a message sent after migration still wakes
// it, on the new thread.
func TestMigrationPreservesAttachedMailbox(t *testing.T) {
	cfg := NewConfig()
	cfg.ThreadNum = 2
	cfg.Scheduler = newMigrateOnceScheduler()
	rt, err := NewRuntime(cfg)
	require.NoError(t, err)

	box := NewMailbox()
	type result struct {
		threadID int
		msg      any
		ok       bool
	}
	results := make(chan result, 1)

	rt.Start(func() error {
		co := mustCurrent()

		srcID, err := co.Attach(box, DirRead)
		if err != nil {
			return err
		}
		defer co.Detach(srcID)

		co.YieldNow()

		box.Send("hello")
		if _, err := co.Select(srcID); err != nil {
			return err
		}

		msg, ok := box.TryRecv()
		results <- result{threadID: co.handler.id, msg: msg, ok: ok}
		return nil
	})

	res := <-results
	require.Equal(t, 1, res.threadID)
	require.True(t, res.ok)
	require.Equal(t, "hello", res.msg)
}
