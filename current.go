package mioco

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// The original source keeps a thread-local "current coroutine" pointer
// (thread::TL_CURRENT_COROUTINE) that every free function in api.go
// consults. Go has no stackful fibers pinned to an OS thread - a Coroutine
// here is a goroutine (see doc.go) - so the TLS slot has to be keyed by
// goroutine, not OS thread. Go deliberately exposes no public goroutine
// id, so this borrows the same runtime.Stack-parsing trick every
// goroutine-local-storage shim in the wild uses (there is no such package
// in the dependency pack to reuse instead, hence stdlib only; see
// DESIGN.md).
var (
	currentMu sync.RWMutex
	current   = map[uint64]*Coroutine{}
)

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// setCurrent installs co as the calling goroutine's current coroutine. It
// is called exactly once, right before a Coroutine's entry runs, and must
// be paired with clearCurrent once that entry returns.
func setCurrent(co *Coroutine) {
	gid := goroutineID()
	currentMu.Lock()
	current[gid] = co
	currentMu.Unlock()
}

func clearCurrent() {
	gid := goroutineID()
	currentMu.Lock()
	delete(current, gid)
	currentMu.Unlock()
}

// currentCoroutine returns the Coroutine owning the calling goroutine, or
// nil if none (the goroutine isn't a coroutine's own goroutine).
func currentCoroutine() *Coroutine {
	gid := goroutineID()
	currentMu.RLock()
	co := current[gid]
	currentMu.RUnlock()
	return co
}

// mustCurrent is tl_coroutine_current: every free function in api.go that
// requires a running coroutine calls this first, aborting per §7 ("API
// call outside any coroutine") if there isn't one.
func mustCurrent() *Coroutine {
	co := currentCoroutine()
	if co == nil {
		panicInvariant(ErrNotInCoroutine)
	}
	return co
}
