package rand_test

import (
	"sync"
	"testing"

	"github.com/plgd-dev/coapnet/pkg/rand"
	"github.com/stretchr/testify/require"
)

func TestRandIsDeterministicForSeed(t *testing.T) {
	a := rand.NewRand(42)
	b := rand.NewRand(42)
	for i := 0; i < 10; i++ {
		require.Equal(t, a.Uint32(), b.Uint32())
		require.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestMultiThreadedRand(*testing.T) {
	r := rand.NewRand(0)
	var done sync.WaitGroup
	for i := 0; i < 100; i++ {
		done.Add(1)
		go func(index int) {
			defer done.Done()
			if index%2 == 0 {
				_ = r.Uint64()
			} else {
				_ = r.Uint32()
			}
		}(i)
	}
	done.Wait()
}
