//go:build darwin

package mioco

func (n *notifier) initWake() error {
	r, w, err := createWakeFd()
	if err != nil {
		return err
	}
	n.wakeReadFd, n.wakeWriteFd = r, w
	return n.poller.RegisterFD(r, EventRead, func(IOEvents) {
		drainWake(r)
	})
}

func (n *notifier) signalWake() {
	writeWake(n.wakeWriteFd)
}

func (n *notifier) closeWake() {
	if n.wakeReadFd >= 0 {
		_ = n.poller.UnregisterFD(n.wakeReadFd)
	}
	closeWakeFd(n.wakeReadFd, n.wakeWriteFd)
}
