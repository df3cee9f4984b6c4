package mioco

import "sync/atomic"

// Scheduler decides, across the whole Runtime, how Coroutines are placed
// onto threads; SchedulerThread does the same job per-thread, once a
// Coroutine is already there. This mirrors the Scheduler/SchedulerThread
// split from the original design verbatim: Scheduler.SpawnThread is called
// once per ThreadHandler at startup, and the returned SchedulerThread then
// owns every placement decision for coroutines running on that thread.
type Scheduler interface {
	// SpawnThread returns a new per-thread scheduler instance. Called once
	// for every ThreadHandler as the Runtime starts.
	SpawnThread() SchedulerThread
}

// SchedulerThread receives every CoroutineControl a ThreadHandler produces
// and decides its fate: run it now (Resume), move it elsewhere (Migrate),
// or hold onto it and hand it back later (Retain, followed eventually by a
// Resume or Migrate from within a later Tick or Ready call). Abandoning a
// CoroutineControl - letting it fall out of scope without calling Resume,
// Migrate or Retain - kills the coroutine; see CoroutineControl's doc for why Go
// needs this spelled out explicitly where Rust could rely on Drop.
type SchedulerThread interface {
	// Spawned is called exactly once for every newly created Coroutine, on
	// the thread it was created on, before it has ever run.
	Spawned(ctrl CoroutineControl)

	// Ready is called whenever a previously Blocked or Yielding Coroutine
	// becomes runnable again.
	Ready(ctrl CoroutineControl)

	// Tick is called once the ThreadHandler has finished delivering every
	// readiness event from the current notifier batch. The default
	// FifoSchedulerThread uses this to resume every coroutine it deferred
	// via YieldNow during the batch, in FIFO order (§8, yield fairness).
	Tick()
}

// FifoScheduler is the default Scheduler: newly spawned coroutines are
// spread round-robin across threads, and within a thread, coroutines run
// first-in-first-out with yielded coroutines deferred to the end of the
// current tick. Grounded directly on the original source's FifoScheduler /
// FifoSchedulerThread.
type FifoScheduler struct {
	nextThread *counter
}

// NewFifoScheduler returns the default round-robin Scheduler.
func NewFifoScheduler() *FifoScheduler {
	return &FifoScheduler{nextThread: &counter{}}
}

// counter is a tiny shared rotation counter: SchedulerThread instances
// spawned from the same FifoScheduler share one, the same way the
// original's FifoScheduler shares a thread_num Arc<AtomicUsize> between
// every FifoSchedulerThread it spawns. Spawned (scheduler.go) runs on each
// ThreadHandler's own OS thread, so concurrent spawns on different threads
// bump this from multiple threads at once: n is an atomic.Uint64, not a
// plain int, to match the original's Arc<AtomicUsize> for real.
type counter struct{ n atomic.Uint64 }

func (c *counter) next(mod int) int {
	if mod <= 0 {
		return 0
	}
	n := c.n.Add(1)
	return int(n % uint64(mod))
}

func (s *FifoScheduler) SpawnThread() SchedulerThread {
	return &fifoSchedulerThread{shared: s}
}

type fifoSchedulerThread struct {
	shared  *FifoScheduler
	delayed []CoroutineControl
}

func (t *fifoSchedulerThread) Spawned(ctrl CoroutineControl) {
	n := ctrl.handler.runtime.threadCount()
	dest := t.shared.nextThread.next(n)
	ctrl.Migrate(dest)
}

func (t *fifoSchedulerThread) Ready(ctrl CoroutineControl) {
	if ctrl.IsYielding() {
		ctrl.Retain()
		t.delayed = append(t.delayed, ctrl)
	} else {
		ctrl.Resume()
	}
}

func (t *fifoSchedulerThread) Tick() {
	delayed := t.delayed
	t.delayed = nil
	for _, ctrl := range delayed {
		ctrl.Resume()
	}
}

// CoroutineControl is the move-only handle a ThreadHandler passes to the
// SchedulerThread for every placement decision. Rust's version relies on
// Drop to kill an abandoned coroutine; Go has no destructors, so instead
// the ThreadHandler checks, immediately after the SchedulerThread callback
// that received a CoroutineControl returns, whether Resume, Migrate or
// Retain was actually called (settled == true) - and kills the coroutine
// itself if not. A SchedulerThread that stores a CoroutineControl past the
// call that received it (e.g. FifoSchedulerThread.delayed) must call Retain
// before that call returns and Resume or Migrate on it eventually; until
// then, the coroutine is alive, just unresumed.
type CoroutineControl struct {
	handler  *ThreadHandler
	co       *Coroutine
	settled  *bool
	yielding bool
}

// newCoroutineControl wraps co for a Spawned callback, or a Ready callback
// triggered by matched readiness or a fresh migration: co.state must
// already be StateReady by the time the SchedulerThread can see it, since
// Resume panics on anything else (§7).
func newCoroutineControl(h *ThreadHandler, co *Coroutine) CoroutineControl {
	settled := false
	return CoroutineControl{handler: h, co: co, settled: &settled}
}

// newYieldingCoroutineControl wraps co for a Ready callback triggered by
// YieldNow (or a migration that arrived while the coroutine was Yielding).
// Callers set co.state back to StateReady before calling it, as for
// newCoroutineControl - Resume must still work if the SchedulerThread
// chooses not to defer it - but IsYielding reports the
// original reason via the control itself, since co.state no longer carries
// that information once it is Ready again.
func newYieldingCoroutineControl(h *ThreadHandler, co *Coroutine) CoroutineControl {
	settled := false
	return CoroutineControl{handler: h, co: co, settled: &settled, yielding: true}
}

// Resume runs the coroutine now, on the thread that currently owns it.
// Panics if the coroutine is not in the Ready state (§7).
func (c CoroutineControl) Resume() {
	if c.co.state != StateReady {
		panicInvariant(ErrCoroutineNotReady)
	}
	*c.settled = true
	c.handler.resumeCoroutine(c.co)
}

// Migrate hands the coroutine off to the ThreadHandler running on
// threadID. The coroutine's state, attached sources, and pending data are
// preserved exactly; only its local CoroutineID changes (§8, migration
// preservation).
func (c CoroutineControl) Migrate(threadID int) {
	*c.settled = true
	c.handler.migrateCoroutine(c.co, threadID)
}

// Retain marks this CoroutineControl as handled without resuming or
// migrating it yet: it tells the owning ThreadHandler "I am deliberately
// holding onto this coroutine (e.g. FifoSchedulerThread.delayed) and will
// call Resume or Migrate on it later", so the handler must not treat it
// as abandoned. A SchedulerThread that calls neither Retain, Resume, nor
// Migrate before returning is judged to have dropped the coroutine, which
// kills it - the Go stand-in for Rust's Drop-triggered kill (§4.4).
func (c CoroutineControl) Retain() {
	*c.settled = true
}

// IsYielding reports whether the underlying coroutine became Ready by
// calling YieldNow (as opposed to e.g. a fresh Spawned handoff or a
// readiness match on a Blocked coroutine). co.state itself is already back
// to StateReady by the time a SchedulerThread observes this control, so the
// reason is tracked on the control, not re-derived from co.state.
func (c CoroutineControl) IsYielding() bool {
	return c.yielding
}

// ID returns the coroutine's id on the thread that currently owns it.
func (c CoroutineControl) ID() CoroutineID { return c.co.id }
