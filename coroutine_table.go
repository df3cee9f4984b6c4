package mioco

import "sync"

// coroutineTable is the dense, reusable-id slab of Coroutines owned by a
// single ThreadHandler (the "indexed table of CoroutineSlabHandle" from
// §3). Unlike the upstream Loop's promise registry (registry.go), entries
// here are strong references: a Coroutine is only ever removed by an
// explicit detach (migration) or by reaching Finished, never by garbage
// collection racing a weak pointer. The free-list reuses low ids the same
// way the registry reuses ring slots, keeping the table dense so it can
// back a plain slice instead of a map in the common case.
//
// coroutineTable is only ever touched by the goroutine running the owning
// ThreadHandler's loop (spawn, attach, detach, lookup, and Insert for an
// arriving migration in drainMigrations/attachMigrated), or by a Coroutine's
// own goroutine while that loop is parked in jumpIn (enqueueSpawned). No
// locking is required; the mutex exists only to make that single-writer
// invariant safe to assert from tests that peek at the table concurrently.
type coroutineTable struct {
	mu      sync.Mutex
	slots   []*Coroutine
	free    []CoroutineID
	liveNum int
}

func newCoroutineTable() *coroutineTable {
	return &coroutineTable{}
}

// Insert assigns a fresh (or reused) CoroutineID to co and stores it.
func (t *coroutineTable) Insert(co *Coroutine) CoroutineID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var id CoroutineID
	if n := len(t.free); n > 0 {
		id = t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[id] = co
	} else {
		id = CoroutineID(len(t.slots))
		t.slots = append(t.slots, co)
	}
	t.liveNum++
	return id
}

// Get returns the Coroutine for id, or nil if it is unknown (already
// removed, or never inserted). A nil result on a readiness callback means
// the event raced a migration or death and must be silently ignored, per
// §7 ("Readiness on an unknown coroutine id").
func (t *coroutineTable) Get(id CoroutineID) *Coroutine {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) >= len(t.slots) {
		return nil
	}
	return t.slots[id]
}

// Remove deletes id from the table (used on death and on migration-out),
// returning the removed Coroutine, or nil if it wasn't present.
func (t *coroutineTable) Remove(id CoroutineID) *Coroutine {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) >= len(t.slots) || t.slots[id] == nil {
		return nil
	}
	co := t.slots[id]
	t.slots[id] = nil
	t.free = append(t.free, id)
	t.liveNum--
	return co
}

// Len returns the number of live coroutines currently owned by this table.
func (t *coroutineTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.liveNum
}
