package mioco

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMailboxSendTryRecvFIFO(t *testing.T) {
	box := NewMailbox()
	require.Equal(t, 0, box.Len())

	_, ok := box.TryRecv()
	require.False(t, ok)

	box.Send("first")
	box.Send("second")
	require.Equal(t, 2, box.Len())

	msg, ok := box.TryRecv()
	require.True(t, ok)
	require.Equal(t, "first", msg)

	msg, ok = box.TryRecv()
	require.True(t, ok)
	require.Equal(t, "second", msg)

	_, ok = box.TryRecv()
	require.False(t, ok)
}

func TestMailboxManyMessagesAcrossChunkBoundary(t *testing.T) {
	box := NewMailbox()
	const n = mailboxChunkSize*2 + 7
	for i := 0; i < n; i++ {
		box.Send(i)
	}
	require.Equal(t, n, box.Len())
	for i := 0; i < n; i++ {
		msg, ok := box.TryRecv()
		require.True(t, ok)
		require.Equal(t, i, msg)
	}
	_, ok := box.TryRecv()
	require.False(t, ok)
}

// TestSelectMailboxWinsOverSlowTimer is scenario S4: a coroutine blocked on
// both a Timer and a Mailbox wakes via whichever becomes ready first. Here
// the mailbox receives a message well before the timer's (much longer)
// deadline, so Select must return the mailbox's id, not the timer's.
func TestSelectMailboxWinsOverSlowTimer(t *testing.T) {
	done := make(chan EventSourceID, 1)

	StartThreads(1, func() error {
		co := mustCurrent()

		timer := NewTimer()
		timer.SetTimeout(time.Hour)
		timerID, err := co.Attach(timer, DirRead)
		if err != nil {
			return err
		}
		defer co.Detach(timerID)

		box := NewMailbox()
		boxID, err := co.Attach(box, DirRead)
		if err != nil {
			return err
		}
		defer co.Detach(boxID)

		go func() {
			time.Sleep(5 * time.Millisecond)
			box.Send("wake")
		}()

		woken, err := co.Select(timerID, boxID)
		if err != nil {
			return err
		}
		done <- woken
		return nil
	})

	woken := <-done
	require.Equal(t, EventSourceID(1), woken)
}

// TestSelectIgnoresUnselectedSource checks §4.2's event(): readiness on an
// attached EventSource the coroutine is not currently passing to Select
// must not wake it, even though the source is active and would otherwise
// satisfy shouldResume. Here boxB receives a message well before boxA, but
// the coroutine only ever Selects on boxA's id, so it must keep waiting
// until boxA fires, leaving boxB's message unconsumed in the meantime.
func TestSelectIgnoresUnselectedSource(t *testing.T) {
	done := make(chan EventSourceID, 1)
	boxBLenAtWake := make(chan int, 1)

	StartThreads(1, func() error {
		co := mustCurrent()

		boxA := NewMailbox()
		idA, err := co.Attach(boxA, DirRead)
		if err != nil {
			return err
		}
		defer co.Detach(idA)

		boxB := NewMailbox()
		idB, err := co.Attach(boxB, DirRead)
		if err != nil {
			return err
		}
		defer co.Detach(idB)

		go func() {
			boxB.Send("not selected")
			time.Sleep(10 * time.Millisecond)
			boxA.Send("selected")
		}()

		woken, err := co.Select(idA)
		if err != nil {
			return err
		}
		boxBLenAtWake <- boxB.Len()
		done <- woken
		return nil
	})

	woken := <-done
	require.Equal(t, EventSourceID(0), woken)
	require.Equal(t, 1, <-boxBLenAtWake)
}
