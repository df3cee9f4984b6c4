package mioco

// FDSource is a generic raw-file-descriptor EventSource: the minimal
// adapter between a Coroutine and the notifier's RegisterFD/ModifyFD/
// UnregisterFD contract. It is deliberately the only concrete "socket"
// EventSource this package ships: TCP/UDP/Unix listeners and connections
// are explicitly out of scope (§1) - application code wraps its own
// net.Conn (via SyscallConn.Control, to get the raw fd) in an FDSource the
// same way it would wrap any other readiness-backed resource.
//
// Unlike Timer and Mailbox, FDSource's readiness originates on the
// poller's own goroutine, inline during notifier.Poll's PollIO call, so
// it feeds the handler's dispatch directly rather than through
// postSynthetic's cross-goroutine path.
type FDSource struct {
	fd  int
	n   *notifier
	tok token
}

// NewFDSource wraps fd, a raw OS file descriptor, as an EventSource.
func NewFDSource(fd int) *FDSource {
	return &FDSource{fd: fd}
}

// FD returns the wrapped file descriptor.
func (s *FDSource) FD() int { return s.fd }

func (s *FDSource) onEvent(ev IOEvents) {
	if s.n == nil || s.n.dispatch == nil {
		return
	}
	s.n.dispatch(readinessEvent{tok: s.tok, dir: eventsToDirection(ev)})
}

func (s *FDSource) register(n *notifier, tok token, dir Direction) error {
	s.n, s.tok = n, tok
	return n.RegisterFD(s.fd, dir, s.onEvent)
}

func (s *FDSource) reregister(n *notifier, tok token, dir Direction) error {
	if s.n != nil && s.n != n {
		// Migrated: move the fd from the previous thread's notifier to n.
		_ = s.n.UnregisterFD(s.fd)
		return s.register(n, tok, dir)
	}
	s.n, s.tok = n, tok
	return n.ModifyFD(s.fd, dir)
}

func (s *FDSource) deregister(n *notifier, _ token) error {
	return n.UnregisterFD(s.fd)
}

// shouldResume reports the readiness event's direction as a match
// whenever it is non-empty, without comparing it to the direction the
// source was attached with; the routing already happened (register picked
// the right token), so there is nothing further to filter.
func (s *FDSource) shouldResume(ev readinessEvent) (Direction, bool) {
	if ev.dir == 0 {
		return 0, false
	}
	return ev.dir, true
}
