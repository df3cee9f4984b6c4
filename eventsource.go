package mioco

// EventSource is anything a Coroutine can block on: a timer, a mailbox, or
// (outside the scope of this package, see the package doc) a socket wired
// up by application code against the same Notifier. It mirrors the
// EventSource contract from §4.1: attach it to a running coroutine with
// Coroutine.Attach, then block on it (alone or alongside others) with
// Coroutine.Select.
//
// Concrete wire types for TCP/UDP/Unix sockets are intentionally not part
// of this package: only the contract is specified. Timer, Mailbox and the
// raw-file-descriptor adapter FDSource are the concrete EventSources
// shipped here.
type EventSource interface {
	// register is called once, when the coroutine first attaches the
	// source, with the token to use for all of this source's readiness
	// notifications and the direction(s) of interest.
	register(n *notifier, tok token, dir Direction) error

	// reregister is called after the owning coroutine migrates to another
	// thread, to register the source again against the destination
	// notifier, under the coroutine's new token, with the direction it was
	// attached with.
	reregister(n *notifier, tok token, dir Direction) error

	// deregister removes the source's registration. Called when the
	// coroutine detaches the source or exits.
	deregister(n *notifier, tok token) error

	// shouldResume is consulted after a readiness event with a matching
	// token arrives: it gives the source a chance to say "not yet" (e.g. a
	// timer that fired early due to a spurious wakeup) or "yes". The first
	// return value is the direction(s) the source reports as ready; the
	// second reports whether the coroutine should be woken, and if it is
	// false, the event is dropped.
	shouldResume(ev readinessEvent) (Direction, bool)
}

// readinessEvent is the low-level notification the OS-level Notifier
// produces; EventSource.shouldResume inspects it to decide whether a
// blocked coroutine should be woken.
type readinessEvent struct {
	tok token
	dir Direction
}

// attachedSource is the bookkeeping a Coroutine keeps per attached
// EventSource: the source itself, its local id (for token encoding), and
// the direction the coroutine is currently interested in.
type attachedSource struct {
	id     EventSourceID
	src    EventSource
	dir    Direction
	active bool // true once register has been called without a matching deregister
}
