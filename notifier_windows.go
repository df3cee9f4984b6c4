//go:build windows

package mioco

// Windows needs no separate wake fd: PostQueuedCompletionStatus wakes a
// blocked GetQueuedCompletionStatus directly, which the teacher's
// FastPoller already exposes as Wakeup.
func (n *notifier) initWake() error {
	return nil
}

func (n *notifier) signalWake() {
	_ = n.poller.Wakeup()
}

func (n *notifier) closeWake() {}
