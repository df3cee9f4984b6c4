package mioco

// contextSwitch is the rendezvous point between a Coroutine's own goroutine
// and the ThreadHandler goroutine that schedules it. The original design
// (§1, C1/C2) swaps a stackful fiber's stack pointer in and out of the OS
// thread; Go gives every coroutine a native lightweight thread already, so
// that swap collapses to a pair of unbuffered, unidirectional channels that
// hand control back and forth one at a time - the same rendezvous
// tcard-coro's coro.go builds its yieldCh handoff on.
//
// Exactly one side holds the baton at a time: the handler blocks on
// <-pause after every resume<-, and the coroutine blocks on <-resume after
// every pause<-. Neither channel is ever closed; the coroutine's own
// goroutine terminates (falls out of its function) immediately after
// sending the final pauseFinished signal.
type contextSwitch struct {
	resume chan struct{}
	pause  chan pauseSignal
}

func newContextSwitch() *contextSwitch {
	return &contextSwitch{
		resume: make(chan struct{}),
		pause:  make(chan pauseSignal),
	}
}

// pauseReason discriminates why a Coroutine's goroutine handed control back
// to its ThreadHandler.
type pauseReason int

const (
	pauseBlocked pauseReason = iota
	pauseYielding
	pauseFinished
)

// pauseSignal is sent from the coroutine's goroutine to the handler
// goroutine every time the coroutine stops running.
type pauseSignal struct {
	reason   pauseReason
	exitStat ExitStatus // valid when reason == pauseFinished
}

// jumpIn hands control to the coroutine's goroutine and blocks until it
// hands control back (by blocking, yielding, or finishing). It is called
// only from the owning ThreadHandler's loop goroutine, exactly when the
// Coroutine is Ready and about to transition to Running.
func (c *contextSwitch) jumpIn() pauseSignal {
	c.resume <- struct{}{}
	return <-c.pause
}

// jumpOutBlocked is called from within the coroutine's own goroutine to
// hand control back because it is now waiting on one or more EventSources.
// It blocks until the handler resumes it again on readiness. Killing the
// coroutine (ThreadHandler.killCoroutine) does not resume it: the goroutine
// stays parked here.
func (c *contextSwitch) jumpOutBlocked() {
	c.pause <- pauseSignal{reason: pauseBlocked}
	<-c.resume
}

// jumpOutYielding is the YieldNow counterpart of jumpOutBlocked: the
// coroutine is still runnable, just deferring to the rest of the tick.
func (c *contextSwitch) jumpOutYielding() {
	c.pause <- pauseSignal{reason: pauseYielding}
	<-c.resume
}

// jumpOutFinished is called exactly once, as the coroutine's goroutine is
// about to return. It does not wait for a resume: there is nothing further
// to run.
func (c *contextSwitch) jumpOutFinished(status ExitStatus) {
	c.pause <- pauseSignal{reason: pauseFinished, exitStat: status}
}
