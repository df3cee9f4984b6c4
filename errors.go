package mioco

import "errors"

// Standard errors returned by the runtime's invariant checks.
//
// Per the error-handling design, failures local to a coroutine never reach
// these paths: they are delivered through ExitStatus and exit notifiers
// instead. Errors here indicate a violated scheduler/runtime invariant, and
// the documented response to most of them is to abort the process (see
// panicInvariant).
var (
	// ErrNotInCoroutine is panicked (via mustCurrent and panicInvariant)
	// when a free function that requires a current coroutine is called from
	// a goroutine that isn't running one.
	ErrNotInCoroutine = errors.New("mioco: API function called outside of a coroutine")

	// ErrCoroutineNotReady is panicked (via panicInvariant) when
	// CoroutineControl.Resume is called on a Coroutine that is not in the
	// Ready state.
	ErrCoroutineNotReady = errors.New("mioco: tried to resume a coroutine that is not ready")

	// ErrQueueFull names an inter-thread queue that stays full. No code path
	// in this package raises it: migrations are handed between threads
	// through a mutex-guarded slice (ThreadHandler.migrateIn), which has no
	// full state, and nothing retries a send.
	ErrQueueFull = errors.New("mioco: inter-thread queue full; increase notify capacity")

	// ErrThreadClosed names an inter-thread message channel closed out from
	// under a sender. No code path in this package raises it: there is no
	// such channel, only the mutex-guarded migrateIn slice.
	ErrThreadClosed = errors.New("mioco: inter-thread channel closed")

	// ErrInvalidThread is panicked (via panicInvariant) by Migrate when the
	// destination thread id is out of range.
	ErrInvalidThread = errors.New("mioco: invalid destination thread id")

	// ErrEventSourceOverflow is panicked (via panicInvariant) when a
	// Coroutine attempts to attach more than maxEventSourcesPerCoroutine
	// event sources, or a token is built for an out-of-range EventSourceID.
	ErrEventSourceOverflow = errors.New("mioco: too many event sources attached to coroutine")
)

// panicInvariant aborts the calling goroutine (and, for the invariants that
// matter, the process) with a message that includes a hint on how to get a
// backtrace. It is used where the runtime treats a condition as fatal:
// resuming a non-Ready coroutine, calling the free-function API outside of
// a coroutine, migrating to an out-of-range thread, overflowing a
// coroutine's event-source ids, and an Attach or Select failing inside
// Sleep or Sync.
func panicInvariant(err error) {
	panic(err.Error() + "; set GOTRACEBACK=all for a full stack trace")
}
