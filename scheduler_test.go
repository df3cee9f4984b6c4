package mioco

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFIFOYieldFairness is scenario S3: two coroutines on a single thread
// interleave via YieldNow in strict alternation.
func TestFIFOYieldFairness(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	cfg := NewConfig()
	cfg.ThreadNum = 1
	rt, err := NewRuntime(cfg)
	require.NoError(t, err)

	rt.Start(func() error {
		Spawn(func() error {
			record("A")
			YieldNow()
			record("A")
			return nil
		})
		Spawn(func() error {
			record("B")
			YieldNow()
			record("B")
			return nil
		})
		return nil
	})

	require.Equal(t, []string{"A", "B", "A", "B"}, order)
}

// TestFIFOSpawnRoundRobin is scenario S5: with 4 threads, 8 spawned
// coroutines land on threads {0,1,2,3,0,1,2,3} (up to rotation), under
// the default FifoScheduler's round-robin placement.
func TestFIFOSpawnRoundRobin(t *testing.T) {
	cfg := NewConfig()
	cfg.ThreadNum = 4
	rt, err := NewRuntime(cfg)
	require.NoError(t, err)

	var mu sync.Mutex
	var threadIDs []int
	done := make(chan struct{})

	rt.Start(func() error {
		box := NewMailbox()
		for i := 0; i < 8; i++ {
			Spawn(func() error {
				mu.Lock()
				threadIDs = append(threadIDs, currentCoroutine().handler.id)
				mu.Unlock()
				box.Send(struct{}{})
				return nil
			})
		}

		co := mustCurrent()
		srcID, err := co.Attach(box, DirRead)
		if err != nil {
			return err
		}
		defer co.Detach(srcID)
		for received := 0; received < 8; {
			if _, ok := box.TryRecv(); ok {
				received++
				continue
			}
			if _, err := co.Select(srcID); err != nil {
				return err
			}
		}
		close(done)
		return nil
	})

	<-done
	require.Len(t, threadIDs, 8)

	counts := map[int]int{}
	for _, id := range threadIDs {
		counts[id]++
	}
	require.Len(t, counts, 4)
	for _, c := range counts {
		require.Equal(t, 2, c)
	}
}
