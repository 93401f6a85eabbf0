package message

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageIDAllocatorIncrements(t *testing.T) {
	a := NewMessageIDAllocatorWithSeed(65533)
	require.Equal(t, uint16(65534), a.Next())
	require.Equal(t, uint16(65535), a.Next())
	require.Equal(t, uint16(0), a.Next())
	require.Equal(t, uint16(1), a.Next())
}

func TestMessageIDAllocatorConcurrent(t *testing.T) {
	a := NewMessageIDAllocator()
	const workers = 8
	const perWorker = 1000
	var lock sync.Mutex
	seen := make(map[uint16]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]uint16, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				ids = append(ids, a.Next())
			}
			lock.Lock()
			defer lock.Unlock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, workers*perWorker)
}

func TestMessageIDAllocatorSeeds(t *testing.T) {
	// two allocators collide with probability 1/65536 per attempt
	for i := 0; i < 3; i++ {
		if NewMessageIDAllocator().Next() != NewMessageIDAllocator().Next() {
			return
		}
	}
	t.Fatal("allocators share the same seed")
}
