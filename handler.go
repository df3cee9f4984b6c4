package mioco

import "sync"

// ThreadHandler is the per-thread driver (§4.5, "C5"): it owns one OS
// thread, one notifier, and the dense table of Coroutines currently
// living on that thread. It is grounded directly on the teacher's thread
// model of one goroutine per worker paired with a shared mutable struct
// (HandlerShared in the original source), adapted so that "shared" state
// actually only needs synchronization across the one channel that really
// does cross threads: inbound migrations.
type ThreadHandler struct {
	id       int
	runtime  *Runtime
	notifier *notifier
	table    *coroutineTable
	scheduler SchedulerThread

	// spawned and ready are populated only by this handler's own loop
	// goroutine (directly, or indirectly via a Coroutine's own goroutine
	// while the loop goroutine is blocked inside jumpIn): no locking
	// needed, by the single-thread-ownership invariant.
	spawned []CoroutineControl
	ready   []CoroutineControl

	// migrateMu guards migrateIn, the only piece of state another
	// thread's goroutine legitimately writes concurrently with this
	// handler's own loop.
	migrateMu sync.Mutex
	migrateIn []*Coroutine
}

func newThreadHandler(rt *Runtime, id int, sched SchedulerThread) (*ThreadHandler, error) {
	n, err := newNotifier()
	if err != nil {
		return nil, err
	}
	h := &ThreadHandler{
		id:        id,
		runtime:   rt,
		notifier:  n,
		table:     newCoroutineTable(),
		scheduler: sched,
	}
	n.setDispatch(h.dispatchReadiness)
	return h, nil
}

// spawn creates a new Coroutine on this thread and routes it through the
// SchedulerThread's Spawned callback. It is called only for the Runtime's
// entry coroutine, at Runtime start, on thread 0's goroutine; coroutines
// spawned from inside a Coroutine go through enqueueSpawned instead.
func (h *ThreadHandler) spawn(entry func() error, userData any) *Coroutine {
	co := newCoroutine(h, entry, h.runtime.config.CatchPanics, userData)
	co.id = h.table.Insert(co)
	h.runtime.incLive()

	ctrl := newCoroutineControl(h, co)
	h.scheduler.Spawned(ctrl)
	h.settleOrKill(ctrl)
	return co
}

// enqueueSpawned registers a freshly SpawnChild-ed Coroutine on this
// thread and queues it for the Scheduler, to be delivered the next time
// deliverToScheduler runs. Unlike spawn (used only for the Runtime's
// entry coroutine), this never calls the Scheduler inline: it is called
// from the parent Coroutine's own goroutine, via flushChildren, which
// must not recurse into Scheduler callbacks directly.
func (h *ThreadHandler) enqueueSpawned(co *Coroutine) {
	co.id = h.table.Insert(co)
	h.runtime.incLive()
	h.spawned = append(h.spawned, newCoroutineControl(h, co))
}

func (h *ThreadHandler) settleOrKill(ctrl CoroutineControl) {
	if !*ctrl.settled {
		h.killCoroutine(ctrl.co)
	}
}

// killCoroutine forcibly finalizes co with ExitKilled. If co's own
// goroutine was never started (the common case: abandoned right after
// Spawned, before any Resume), nothing further is needed. If it had
// already started and is currently parked waiting on a jumpIn that will
// now never come, that goroutine is left parked: its entry function runs
// no further, and deferred calls inside it do not run.
func (h *ThreadHandler) killCoroutine(co *Coroutine) {
	if co.state == StateFinished {
		return
	}
	h.table.Remove(co.id)
	co.deregisterAll()
	co.state = StateFinished
	co.exitStatus = ExitStatus{Kind: ExitKilled}
	co.notifyExit()
	h.runtime.decLive()
}

// resumeCoroutine hands control to co's goroutine (launching it on first
// use) and processes the outcome once it pauses again.
func (h *ThreadHandler) resumeCoroutine(co *Coroutine) {
	if !co.started {
		co.started = true
		co.start()
	}
	co.state = StateRunning
	sig := co.sw.jumpIn()

	switch sig.reason {
	case pauseBlocked:
		// co.state is already StateBlocked, set by Select before it
		// called jumpOutBlocked. Nothing further to do: the next
		// readiness event on one of the sources its Select is waiting on
		// will re-ready it via dispatchReadiness.

	case pauseYielding:
		co.state = StateReady
		h.ready = append(h.ready, newYieldingCoroutineControl(h, co))

	case pauseFinished:
		co.state = StateFinished
		co.exitStatus = sig.exitStat
		h.table.Remove(co.id)
		co.notifyExit()
		h.runtime.decLive()
	}
}

// migrateCoroutine detaches co from this thread and hands it to the
// ThreadHandler running threadID, preserving its state, attached sources,
// and any buffered data exactly (§8, migration preservation) - only its
// local CoroutineID changes, assigned by the destination's table on
// reattachment.
func (h *ThreadHandler) migrateCoroutine(co *Coroutine, threadID int) {
	dest := h.runtime.threadAt(threadID)
	if dest == nil {
		panicInvariant(ErrInvalidThread)
	}
	h.table.Remove(co.id)
	if dest == h {
		h.attachMigrated(co)
		return
	}
	dest.migrateMu.Lock()
	dest.migrateIn = append(dest.migrateIn, co)
	dest.migrateMu.Unlock()
	dest.notifier.signalWake()
}

// attachMigrated reattaches a just-arrived Coroutine to this handler: a
// fresh local id, its handler pointer updated, every attached EventSource
// re-registered under the new token, and finally handed to the Scheduler
// as freshly Ready.
func (h *ThreadHandler) attachMigrated(co *Coroutine) {
	wasYielding := co.state == StateYielding
	co.handler = h
	co.id = h.table.Insert(co)
	if err := co.reregisterAllSources(); err != nil {
		h.runtime.logger().Errorf("mioco: failed to reregister migrated coroutine %d: %v", co.id, err)
	}
	co.state = StateReady
	if wasYielding {
		h.ready = append(h.ready, newYieldingCoroutineControl(h, co))
	} else {
		h.ready = append(h.ready, newCoroutineControl(h, co))
	}
}

func (h *ThreadHandler) drainMigrations() {
	h.migrateMu.Lock()
	in := h.migrateIn
	h.migrateIn = nil
	h.migrateMu.Unlock()
	for _, co := range in {
		h.attachMigrated(co)
	}
}

// dispatchReadiness routes a decoded readiness event (real or synthetic)
// to the Coroutine and EventSource it names, per the token round-trip
// invariant. Unknown coroutine ids (a readiness event racing a migration
// or a death), inactive sources, and sources the coroutine is not
// currently Select-ing on (latched readiness on an attached-but-unselected
// source, §4.2) are silently ignored, per §7.
func (h *ThreadHandler) dispatchReadiness(ev readinessEvent) {
	coID, srcID := ev.tok.decode()
	co := h.table.Get(coID)
	if co == nil || co.state != StateBlocked || !co.isBlockedOn(srcID) {
		return
	}
	as := co.sourceAt(srcID)
	if as == nil || !as.active {
		return
	}
	if _, resume := as.src.shouldResume(ev); !resume {
		return
	}
	co.selectWake(srcID)
	co.state = StateReady
	h.ready = append(h.ready, newCoroutineControl(h, co))
}

// deliverToScheduler drains the spawned/ready queues, handing each to the
// SchedulerThread, until both are empty - looping, since servicing one
// entry (e.g. Resume-ing a coroutine that itself spawns more) can enqueue
// more. Mirrors Handler::deliver_to_scheduler from the original source,
// which exists for exactly the same reason: keep Resume from recursing
// through the Scheduler on its own call stack.
func (h *ThreadHandler) deliverToScheduler() {
	for len(h.spawned) > 0 || len(h.ready) > 0 {
		spawned := h.spawned
		h.spawned = nil
		ready := h.ready
		h.ready = nil

		for _, ctrl := range spawned {
			h.scheduler.Spawned(ctrl)
			h.settleOrKill(ctrl)
		}
		for _, ctrl := range ready {
			h.scheduler.Ready(ctrl)
			h.settleOrKill(ctrl)
		}
	}
}

// pollTimeoutMs returns how long this handler may block in Poll: always
// 1000 ms. Timers post synthetic readiness through time.AfterFunc
// regardless of what Poll is doing, so in practice this is a coarse bound,
// not the precise "time until next deadline" a single-threaded reactor
// would compute; a Poll parked while a Timer's AfterFunc fires is woken
// immediately via the Timer's postSynthetic -> signalWake path, so the
// only thing this timeout has to do is bound how long the thread sleeps
// when it genuinely has nothing else going on.
func (h *ThreadHandler) pollTimeoutMs() int {
	return 1000
}

// isDone reports whether this thread's loop should stop: the runtime-wide
// liveness count has reached zero.
func (h *ThreadHandler) isDone() bool {
	return h.runtime.liveCount() == 0
}

// run is the body of the OS thread this ThreadHandler owns.
func (h *ThreadHandler) run() {
	h.runtime.waitForStart()

	// Pre-pump (§4.6): the entry coroutine, if the Scheduler left it on
	// thread 0, is sitting in spawned/ready right now; deliver it before
	// the first Poll, so it doesn't wait out a full poll timeout before
	// ever running. A coroutine migrated here from another thread sits in
	// migrateIn instead and is picked up by drainMigrations after the
	// first Poll, which that migration's signalWake interrupts.
	h.deliverToScheduler()

	for {
		if err := h.notifier.Poll(h.pollTimeoutMs()); err != nil {
			h.runtime.logger().Errorf("mioco: poll error on thread %d: %v", h.id, err)
		}
		h.drainMigrations()
		h.scheduler.Tick()
		h.deliverToScheduler()
		if h.isDone() {
			break
		}
	}

	_ = h.notifier.Close()
}
