package mioco

import "time"

// Timer is an EventSource that becomes ready once, at or after a deadline.
// Grounded directly on original_source/src/timer.rs's TimerCore: register
// computes max(0, timeout-now) and arranges a one-shot wakeup after that
// long; should_resume is true iff the deadline has passed.
//
// Unlike a socket, a Timer's readiness does not originate from the OS
// poller: it is synthesized by a time.AfterFunc callback that posts a
// readiness event directly to the owning notifier, the same path a real
// epoll/kqueue/IOCP event takes once decoded.
type Timer struct {
	deadline time.Time
	timer    *time.Timer
	fired    bool
}

// NewTimer returns a Timer armed with a zero deadline (already expired);
// call SetTimeout or SetTimeoutAbsolute before attaching it.
func NewTimer() *Timer {
	return &Timer{}
}

// SetTimeout arms the timer to fire delay from now.
func (t *Timer) SetTimeout(delay time.Duration) {
	t.deadline = time.Now().Add(delay)
}

// SetTimeoutAbsolute arms the timer to fire at the given absolute time.
func (t *Timer) SetTimeoutAbsolute(when time.Time) {
	t.deadline = when
}

// Deadline returns the timer's currently configured absolute deadline.
func (t *Timer) Deadline() time.Time { return t.deadline }

func (t *Timer) register(n *notifier, tok token, _ Direction) error {
	delay := time.Until(t.deadline)
	if delay < 0 {
		delay = 0
	}
	t.fired = false
	t.timer = time.AfterFunc(delay, func() {
		n.postSynthetic(readinessEvent{tok: tok, dir: DirRead})
	})
	return nil
}

func (t *Timer) reregister(n *notifier, tok token, dir Direction) error {
	if t.timer != nil {
		t.timer.Stop()
	}
	return t.register(n, tok, dir)
}

func (t *Timer) deregister(_ *notifier, _ token) error {
	if t.timer != nil {
		t.timer.Stop()
	}
	return nil
}

func (t *Timer) shouldResume(ev readinessEvent) (Direction, bool) {
	if !time.Now().Before(t.deadline) {
		t.fired = true
		return DirRead, true
	}
	return 0, false
}
