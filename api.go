package mioco

import "time"

// This file is the free-function API from §4.7/§6 (C7): the thin surface
// application code actually calls from inside a running coroutine. Every
// function here resolves "which coroutine am I" through mustCurrent/
// currentCoroutine (the goroutine-local TLS emulation in current.go) and
// is meaningless - and aborts, per §7 - outside of one.

// CoroutineHandle is returned by SpawnExt: a reference to a just-spawned
// child coroutine, usable to observe its exit.
type CoroutineHandle struct {
	co *Coroutine
}

// ExitNotificator returns a Mailbox that receives exactly one ExitStatus,
// delivered when the handle's coroutine reaches Finished - immediately, if
// it already has. Mirrors CoroutineHandle::exit_notificator.
func (h CoroutineHandle) ExitNotificator() *Mailbox {
	box := NewMailbox()
	h.co.AddExitNotifier(box)
	return box
}

// Spawn starts f as a new coroutine.
//
// Called from inside a running coroutine, it is SpawnChild: f becomes a
// child of the current coroutine, inheriting its inheritedUserData and
// catchPanics, and is handed to the Scheduler the next time the current
// coroutine suspends.
//
// Called from outside any coroutine, it launches an ad-hoc Runtime with the
// default Config (one thread per CPU, see Start) on a background goroutine
// to run f, the same fallback the
// original source's top-level spawn() uses: the call does not block, and
// f runs somewhere in a mioco instance, but the exact instance is
// unspecified.
func Spawn(f func() error) {
	if co := currentCoroutine(); co != nil {
		co.SpawnChild(f)
		return
	}
	go Start(f)
}

// SpawnExt is Spawn, usable only from inside a running coroutine, that
// returns a CoroutineHandle for the new child.
func SpawnExt(f func() error) CoroutineHandle {
	co := mustCurrent()
	return CoroutineHandle{co: co.SpawnChild(f)}
}

// InCoroutine reports whether the calling goroutine is currently running
// as a mioco coroutine.
func InCoroutine() bool {
	return currentCoroutine() != nil
}

// GetUserData returns the current coroutine's UserData, type-asserted to
// T; ok is false if no data was set or it doesn't match T.
func GetUserData[T any]() (data T, ok bool) {
	co := mustCurrent()
	v, matched := co.UserData().(T)
	return v, matched
}

// SetUserData replaces the current coroutine's UserData.
func SetUserData(data any) {
	mustCurrent().SetUserData(data)
}

// SetChildrenUserData rebinds the UserData that will be inherited by
// coroutines the current coroutine spawns from now on, without touching
// its own UserData. Pass nil to clear it.
func SetChildrenUserData(data any) {
	mustCurrent().SetChildrenUserData(data)
}

// ThreadNum returns the number of worker threads in the Runtime the
// current coroutine is running in - useful for load-balancing spawns by
// hand against Spawn's automatic round robin.
func ThreadNum() int {
	return mustCurrent().handler.runtime.threadCount()
}

// Sleep blocks the current coroutine for at least d, without blocking its
// owning thread: internally, it's a Timer attached and Select-ed on.
//
// Precision is that of the Timer's time.AfterFunc plus the owning thread's
// wake-up latency; the coroutine never resumes before d has elapsed.
func Sleep(d time.Duration) {
	co := mustCurrent()
	t := NewTimer()
	t.SetTimeout(d)
	id, err := co.Attach(t, DirRead)
	if err != nil {
		panicInvariant(err)
	}
	defer co.Detach(id)
	if _, err := co.Select(id); err != nil {
		panicInvariant(err)
	}
}

// YieldNow hands control back to the scheduler without blocking on
// anything in particular, letting other runnable coroutines on the same
// thread make progress before this one resumes. Only effective with a
// Scheduler that honors it - see FifoScheduler's tick-deferred resume.
func YieldNow() {
	mustCurrent().YieldNow()
}

// SelectWait blocks until one of the EventSourceIDs the current coroutine
// has attached (via Coroutine.Attach) becomes ready, returning the id of
// the one that woke it. An empty ids argument waits on every currently
// attached source - the form used by the select! convenience wrapper.
//
// As in the original design: readiness does not guarantee a subsequent
// non-blocking read/write will not return would-block. Always retry
// through a non-blocking call.
func SelectWait(ids ...EventSourceID) (EventSourceID, error) {
	return mustCurrent().Select(ids...)
}

// Sync runs fn on a dedicated scoped goroutine, blocking the current
// coroutine (without blocking its OS thread) until fn returns, then
// returns fn's result. It is the escape hatch for calling into blocking,
// non-mioco-aware code from a coroutine (§4.7, §9): every call spawns its
// own goroutine rather than drawing from a pool, matching the original
// source's sync(), which carries the same open question (a bounded pool
// to cap parasitic thread creation) unresolved; see DESIGN.md.
func Sync[R any](fn func() R) R {
	co := mustCurrent()
	if co.syncMailbox == nil {
		co.syncMailbox = NewMailbox()
	}
	box := co.syncMailbox

	var result R
	go func() {
		result = fn()
		box.Send(struct{}{})
	}()

	id, err := co.Attach(box, DirRead)
	if err != nil {
		panicInvariant(err)
	}
	defer co.Detach(id)
	for {
		if _, ok := box.TryRecv(); ok {
			return result
		}
		if _, err := co.Select(id); err != nil {
			panicInvariant(err)
		}
	}
}
