package mioco

import "sync"

// mailboxChunkSize mirrors the teacher's ChunkedIngress chunking: batching
// pushes/pops into fixed-size array nodes keeps the queue cache-friendly
// and amortizes allocation, recycled through a sync.Pool instead of being
// freed on every pop.
const mailboxChunkSize = 128

var mailboxChunkPool = sync.Pool{
	New: func() any { return &mailboxChunk{} },
}

type mailboxChunk struct {
	msgs    [mailboxChunkSize]any
	next    *mailboxChunk
	readPos int
	pos     int
}

func newMailboxChunk() *mailboxChunk {
	c := mailboxChunkPool.Get().(*mailboxChunk)
	c.pos = 0
	c.readPos = 0
	c.next = nil
	return c
}

func releaseMailboxChunk(c *mailboxChunk) {
	for i := range c.msgs {
		c.msgs[i] = nil
	}
	mailboxChunkPool.Put(c)
}

// Mailbox is an in-process, multi-producer single-consumer EventSource:
// any goroutine (coroutine or not) may Send to it, but it is meant to be
// attached to and Select-ed on by a single coroutine at a time. It is the
// concrete "in-process inter-coroutine mailbox" EventSource named in §4.3,
// and is also what Coroutine.AddExitNotifier delivers ExitStatus through.
//
// The underlying queue is grounded on the teacher's ChunkedIngress
// (ingress.go): a chunked linked list of fixed-size arrays, recycled
// through a sync.Pool. Unlike ChunkedIngress, Mailbox guards its queue with
// a mutex, since sends may legitimately race from multiple OS threads.
type Mailbox struct {
	mu     sync.Mutex
	head   *mailboxChunk
	tail   *mailboxChunk
	length int

	// wake is called after the mutex is released, once whenever the
	// mailbox transitions from empty to non-empty, and once on register if
	// messages are already queued; it is how an attached Mailbox
	// tells its owning notifier "post a synthetic readiness event".
	wake func()
}

// NewMailbox returns an empty Mailbox ready to Send to or Attach.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Send enqueues msg. Safe to call from any goroutine, coroutine or not.
func (b *Mailbox) Send(msg any) {
	b.mu.Lock()
	wasEmpty := b.length == 0
	if b.tail == nil || b.tail.pos == mailboxChunkSize {
		c := newMailboxChunk()
		if b.tail == nil {
			b.head = c
		} else {
			b.tail.next = c
		}
		b.tail = c
	}
	b.tail.msgs[b.tail.pos] = msg
	b.tail.pos++
	b.length++
	wake := b.wake
	b.mu.Unlock()

	if wasEmpty && wake != nil {
		wake()
	}
}

// TryRecv pops the oldest message, if any, returning ok == false if empty.
func (b *Mailbox) TryRecv() (msg any, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.head == nil || b.head.readPos == b.head.pos {
		return nil, false
	}
	msg = b.head.msgs[b.head.readPos]
	b.head.msgs[b.head.readPos] = nil
	b.head.readPos++
	b.length--
	if b.head.readPos == mailboxChunkSize {
		drained := b.head
		b.head = drained.next
		if b.head == nil {
			b.tail = nil
		}
		releaseMailboxChunk(drained)
	}
	return msg, true
}

// Len returns the number of currently queued, unread messages.
func (b *Mailbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

// deliverExit is the Send path used by Coroutine.notifyExit: an ExitStatus
// is just another message, distinguishable by its type in a type switch
// over what TryRecv returns.
func (b *Mailbox) deliverExit(status ExitStatus) {
	b.Send(status)
}

func (b *Mailbox) register(n *notifier, tok token, _ Direction) error {
	b.mu.Lock()
	nonEmpty := b.length > 0
	b.wake = func() { n.postSynthetic(readinessEvent{tok: tok, dir: DirRead}) }
	b.mu.Unlock()
	if nonEmpty {
		b.wake()
	}
	return nil
}

func (b *Mailbox) reregister(n *notifier, tok token, dir Direction) error {
	return b.register(n, tok, dir)
}

func (b *Mailbox) deregister(_ *notifier, _ token) error {
	b.mu.Lock()
	b.wake = nil
	b.mu.Unlock()
	return nil
}

func (b *Mailbox) shouldResume(_ readinessEvent) (Direction, bool) {
	if b.Len() > 0 {
		return DirRead, true
	}
	return 0, false
}
