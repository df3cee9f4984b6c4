package mioco

import "sync"

// notifier is the OS-level readiness-notifier collaborator described in
// §5: epoll on Linux, kqueue on Darwin/BSD, IOCP on Windows, behind the
// platform FastPoller implementations (poller_linux.go, poller_darwin.go,
// poller_windows.go - kept from the teacher's own epoll/kqueue/IOCP
// multiplexer, since that is exactly the "external notifier service" the
// design assumes). A notifier is owned by exactly one ThreadHandler; its
// readiness stream feeds that handler's deliverToScheduler loop.
//
// Two kinds of readiness reach a coroutine through the same path:
//   - real I/O readiness, decoded off the platform poller;
//   - synthetic readiness, posted by a Timer firing or a Mailbox receiving
//     a message, which may happen on any goroutine, including one that
//     isn't the notifier's own loop goroutine.
//
// A synthetic post always interrupts a blocked Poll call via the
// platform-specific wake mechanism (signalWake), so a handler sleeping in
// Poll reacts immediately to a mailbox send from another thread.
type notifier struct {
	poller FastPoller

	wakeReadFd  int
	wakeWriteFd int

	mu        sync.Mutex
	synthetic []readinessEvent

	fdMu  sync.Mutex
	fdCBs map[int]func(IOEvents)

	// dispatch is set once, by the owning ThreadHandler, before the loop
	// starts; it is how synthetic (Timer/Mailbox) readiness reaches the
	// same per-token routing real I/O readiness does.
	dispatch func(readinessEvent)
}

// setDispatch installs the handler's routing function. Must be called
// before the notifier's loop goroutine starts polling.
func (n *notifier) setDispatch(fn func(readinessEvent)) {
	n.dispatch = fn
}

// newNotifier creates and initializes the platform poller and its wake
// mechanism.
func newNotifier() (*notifier, error) {
	n := &notifier{
		wakeReadFd:  -1,
		wakeWriteFd: -1,
		fdCBs:       make(map[int]func(IOEvents)),
	}
	if err := n.poller.Init(); err != nil {
		return nil, err
	}
	if err := n.initWake(); err != nil {
		_ = n.poller.Close()
		return nil, err
	}
	return n, nil
}

// Close tears down the wake mechanism and the platform poller.
func (n *notifier) Close() error {
	n.closeWake()
	return n.poller.Close()
}

// RegisterFD attaches a raw file descriptor to this notifier, translating
// between the package's Direction and the platform poller's IOEvents. It
// backs the raw-fd EventSource adapter FDSource and its end-to-end test
// (sockets themselves are out of scope for this package, see the
// package doc); it is equally how a production caller would wire up their
// own transport if they chose to.
func (n *notifier) RegisterFD(fd int, dir Direction, cb func(IOEvents)) error {
	n.fdMu.Lock()
	n.fdCBs[fd] = cb
	n.fdMu.Unlock()
	return n.poller.RegisterFD(fd, directionToEvents(dir), func(ev IOEvents) {
		n.fdMu.Lock()
		c := n.fdCBs[fd]
		n.fdMu.Unlock()
		if c != nil {
			c(ev)
		}
	})
}

// ModifyFD updates the monitored direction for a registered fd.
func (n *notifier) ModifyFD(fd int, dir Direction) error {
	return n.poller.ModifyFD(fd, directionToEvents(dir))
}

// UnregisterFD detaches fd from this notifier.
func (n *notifier) UnregisterFD(fd int) error {
	n.fdMu.Lock()
	delete(n.fdCBs, fd)
	n.fdMu.Unlock()
	return n.poller.UnregisterFD(fd)
}

func directionToEvents(dir Direction) IOEvents {
	var ev IOEvents
	if dir.HasRead() {
		ev |= EventRead
	}
	if dir.HasWrite() {
		ev |= EventWrite
	}
	return ev
}

func eventsToDirection(ev IOEvents) Direction {
	var dir Direction
	if ev&EventRead != 0 || ev&EventHangup != 0 || ev&EventError != 0 {
		dir |= DirRead
	}
	if ev&EventWrite != 0 {
		dir |= DirWrite
	}
	return dir
}

// postSynthetic queues a non-OS readiness event and wakes a blocked Poll.
// Safe to call from any goroutine.
func (n *notifier) postSynthetic(ev readinessEvent) {
	n.mu.Lock()
	n.synthetic = append(n.synthetic, ev)
	n.mu.Unlock()
	n.signalWake()
}

func (n *notifier) drainSynthetic() []readinessEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.synthetic) == 0 {
		return nil
	}
	out := n.synthetic
	n.synthetic = nil
	return out
}

// Poll blocks up to timeoutMs for I/O readiness (or a wake-up). Real fd
// readiness is delivered inline, through the callbacks passed to
// RegisterFD, during the PollIO call itself; synthetic readiness queued
// since the last Poll is delivered through dispatch once PollIO returns. A
// negative timeoutMs means block indefinitely.
func (n *notifier) Poll(timeoutMs int) error {
	_, err := n.poller.PollIO(timeoutMs)
	if err != nil {
		return err
	}
	for _, ev := range n.drainSynthetic() {
		if n.dispatch != nil {
			n.dispatch(ev)
		}
	}
	return nil
}
