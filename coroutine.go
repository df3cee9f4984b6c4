package mioco

import "fmt"

// maxBlockedSources equals the per-coroutine event-source limit. No code
// refers to it: Select does not check how many ids it is given.
const maxBlockedSources = maxEventSourcesPerCoroutine

// Coroutine is one green thread: a goroutine paired with a contextSwitch,
// owned at any instant by exactly one ThreadHandler (§8 invariant 2,
// "single-thread ownership"). All of its fields below are touched only by
// the goroutine that currently owns it - the handler's loop goroutine
// while State is anything but Running, the coroutine's own goroutine while
// Running - so, like coroutineTable, it needs no locking of its own.
type Coroutine struct {
	id      CoroutineID
	handler *ThreadHandler
	sw      *contextSwitch

	state      CoroutineState
	exitStatus ExitStatus

	entry       func() error
	catchPanics bool
	userData    any

	// inheritedUserData is copied into every child spawned from this
	// Coroutine (SpawnChild), and is itself inherited from this
	// Coroutine's own inheritedUserData at spawn time. SetChildrenUserData
	// rebinds it without touching userData.
	inheritedUserData any

	// children holds Coroutines spawned while this one was Running, not
	// yet handed to the scheduler. Non-empty only between a resume and
	// the next suspension of this Coroutine (§3 invariant); flushChildren
	// drains it into the owning handler's spawned buffer at every
	// suspension point.
	children []*Coroutine

	// syncMailbox is lazily allocated and cached across Sync calls from
	// this Coroutine, mirroring the original source's coroutine.sync_mailbox.
	syncMailbox *Mailbox

	sources    []*attachedSource // dense, indexed by EventSourceID; nil slots are free
	freeSrcIDs []EventSourceID

	// blockedOn is the set of EventSourceIDs passed to the current Select
	// call, non-nil and non-empty for exactly the duration State ==
	// StateBlocked (§3's blocked_on, §8 invariant 3). dispatchReadiness
	// ignores readiness for any attached source not in this set: a
	// coroutine Select-ing on one of several attached sources must not be
	// woken by one of the others (§4.2's event(), "otherwise return false").
	blockedOn map[EventSourceID]struct{}

	exitNotifiers []*Mailbox

	// wokenBy records which EventSourceID the most recent Select call
	// returned; set by selectWake before the handler resumes this
	// coroutine's goroutine.
	wokenBy EventSourceID

	// started is false until the coroutine's own goroutine has actually
	// been launched. Kept lazy (launched on first Resume, not at Spawn) so
	// that a Coroutine killed before ever running - the common case for a
	// Scheduler that never calls Resume or Migrate on it - never leaks a
	// goroutine parked waiting for a jumpIn that will never arrive.
	started bool
}

// newCoroutine constructs a Coroutine bound to handler, not yet started.
func newCoroutine(handler *ThreadHandler, entry func() error, catchPanics bool, userData any) *Coroutine {
	return &Coroutine{
		handler:           handler,
		sw:                newContextSwitch(),
		entry:             entry,
		catchPanics:       catchPanics,
		userData:          userData,
		inheritedUserData: userData,
		state:             StateReady,
	}
}

// SpawnChild allocates a new Coroutine on the same thread, inheriting
// inheritedUserData and catchPanics, and appends it to this Coroutine's
// children (§4.2, spawn_child). It is not yet handed to the Scheduler:
// that happens the next time this Coroutine suspends, via flushChildren.
func (co *Coroutine) SpawnChild(entry func() error) *Coroutine {
	child := newCoroutine(co.handler, entry, co.catchPanics, co.inheritedUserData)
	co.children = append(co.children, child)
	return child
}

// flushChildren drains children spawned since the last suspension into the
// owning handler's spawned buffer (§4.2, start_children). Called from
// within this Coroutine's own goroutine, immediately before every
// suspension point (Select, YieldNow, and finishing): the
// write to handler.spawned below happens-before the corresponding jumpOut
// channel send, so it is visible to the handler loop goroutine without
// any lock of its own.
func (co *Coroutine) flushChildren() {
	if len(co.children) == 0 {
		return
	}
	children := co.children
	co.children = nil
	for _, child := range children {
		co.handler.enqueueSpawned(child)
	}
}

// UserData returns the value supplied at Spawn time, or nil.
func (co *Coroutine) UserData() any { return co.userData }

// SetUserData replaces this Coroutine's UserData.
func (co *Coroutine) SetUserData(data any) { co.userData = data }

// SetChildrenUserData rebinds inheritedUserData, the value future
// SpawnChild calls propagate to new children; it does not affect this
// Coroutine's own UserData. Passing nil clears it.
func (co *Coroutine) SetChildrenUserData(data any) { co.inheritedUserData = data }

// State returns the Coroutine's current CoroutineState. Safe to call only
// from the goroutine that currently owns it.
func (co *Coroutine) State() CoroutineState { return co.state }

// start launches the coroutine's own goroutine. It immediately blocks
// waiting for the first jumpIn; the caller (the handler loop, via
// CoroutineControl) is responsible for resuming it when ready.
func (co *Coroutine) start() {
	go co.run()
}

// run is the body of the coroutine's own goroutine. It waits for the
// initial jumpIn, executes entry to completion (recovering a panic if
// catchPanics is set), and finally reports its ExitStatus.
func (co *Coroutine) run() {
	<-co.sw.resume

	setCurrent(co)
	status := co.invokeEntry()
	clearCurrent()

	co.flushChildren()
	co.deregisterAll()
	co.sw.jumpOutFinished(status)
}

func (co *Coroutine) invokeEntry() (status ExitStatus) {
	if co.catchPanics {
		defer func() {
			if r := recover(); r != nil {
				status = ExitStatus{Kind: ExitPanic, Panic: r}
			}
		}()
	}
	if err := co.entry(); err != nil {
		return ExitStatus{Kind: ExitErr, Err: err}
	}
	return ExitStatus{Kind: ExitOk}
}

// Attach registers src against this coroutine with the given initial
// Direction, returning the EventSourceID to pass to Select/Detach. It must
// be called from within the coroutine's own goroutine.
func (co *Coroutine) Attach(src EventSource, dir Direction) (EventSourceID, error) {
	id := co.allocSourceID()
	tok := encodeToken(co.id, id)
	as := &attachedSource{id: id, src: src, dir: dir}
	co.sources[id] = as
	if err := src.register(co.handler.notifier, tok, dir); err != nil {
		co.sources[id] = nil
		co.freeSrcIDs = append(co.freeSrcIDs, id)
		return 0, err
	}
	as.active = true
	return id, nil
}

// Detach deregisters a previously attached EventSource.
func (co *Coroutine) Detach(id EventSourceID) error {
	as := co.sourceAt(id)
	if as == nil {
		return nil
	}
	tok := encodeToken(co.id, id)
	err := as.src.deregister(co.handler.notifier, tok)
	co.sources[id] = nil
	co.freeSrcIDs = append(co.freeSrcIDs, id)
	return err
}

func (co *Coroutine) allocSourceID() EventSourceID {
	if n := len(co.freeSrcIDs); n > 0 {
		id := co.freeSrcIDs[n-1]
		co.freeSrcIDs = co.freeSrcIDs[:n-1]
		return id
	}
	id := EventSourceID(len(co.sources))
	if uint64(id) > eventSourceTokenMask {
		panicInvariant(ErrEventSourceOverflow)
	}
	co.sources = append(co.sources, nil)
	return id
}

func (co *Coroutine) sourceAt(id EventSourceID) *attachedSource {
	if int(id) >= len(co.sources) {
		return nil
	}
	return co.sources[id]
}

// reregisterAllSources re-registers every attached EventSource against
// this coroutine's current handler and (new) id, recomputing tokens. It is
// called exactly once, right after a migrated Coroutine is reattached to
// its destination ThreadHandler: the attached sources themselves (timers
// armed, mailboxes with pending messages) are preserved bit-for-bit, only
// the token each is keyed under changes, since the token encodes the
// coroutine's (now different) local id.
func (co *Coroutine) reregisterAllSources() error {
	for id, as := range co.sources {
		if as == nil {
			continue
		}
		tok := encodeToken(co.id, EventSourceID(id))
		if err := as.src.reregister(co.handler.notifier, tok, as.dir); err != nil {
			return err
		}
	}
	return nil
}

func (co *Coroutine) deregisterAll() {
	for id, as := range co.sources {
		if as == nil {
			continue
		}
		tok := encodeToken(co.id, EventSourceID(id))
		_ = as.src.deregister(co.handler.notifier, tok)
		co.sources[id] = nil
	}
	co.freeSrcIDs = nil
}

// Select blocks the coroutine until one of the given EventSourceIDs
// becomes ready (an empty ids means "block on every currently attached
// source"), returning the id that woke it. It is invariant 3 ("suspension
// exclusivity") from §8: blockedOn is non-empty for exactly the duration
// State == StateBlocked.
func (co *Coroutine) Select(ids ...EventSourceID) (EventSourceID, error) {
	if len(ids) == 0 {
		for id, as := range co.sources {
			if as != nil {
				ids = append(ids, EventSourceID(id))
			}
		}
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("mioco: Select called with no attached event sources")
	}

	co.state = StateBlocked
	co.blockedOn = make(map[EventSourceID]struct{}, len(ids))
	for _, id := range ids {
		co.blockedOn[id] = struct{}{}
	}

	co.flushChildren()
	co.sw.jumpOutBlocked()

	co.state = StateRunning
	co.blockedOn = nil
	return co.wokenBy, nil
}

// isBlockedOn reports whether id is one of the sources the coroutine's
// current Select call is waiting on. Readiness on an attached-but-not-
// selected source is latched on the source itself but must not wake the
// coroutine (§4.2).
func (co *Coroutine) isBlockedOn(id EventSourceID) bool {
	_, ok := co.blockedOn[id]
	return ok
}

// selectWake is called by the owning handler when it delivers a readiness
// event that satisfies this coroutine's Select, just before resuming it.
func (co *Coroutine) selectWake(id EventSourceID) {
	co.wokenBy = id
}

// YieldNow hands control back to the scheduler without blocking on
// anything; the coroutine is marked Yielding (the handler sets it back to
// Ready before handing it to the Scheduler) and the default Scheduler
// defers it to the end of the current tick (§4.4, FIFO yield fairness).
func (co *Coroutine) YieldNow() {
	co.state = StateYielding
	co.flushChildren()
	co.sw.jumpOutYielding()
	co.state = StateRunning
}

// AddExitNotifier registers box to receive this coroutine's ExitStatus,
// exactly once, as soon as it is available (possibly immediately, if the
// coroutine has already finished).
func (co *Coroutine) AddExitNotifier(box *Mailbox) {
	if co.state == StateFinished {
		box.deliverExit(co.exitStatus)
		return
	}
	co.exitNotifiers = append(co.exitNotifiers, box)
}

func (co *Coroutine) notifyExit() {
	for _, box := range co.exitNotifiers {
		box.deliverExit(co.exitStatus)
	}
	co.exitNotifiers = nil
}
