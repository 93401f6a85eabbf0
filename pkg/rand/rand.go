package rand

import (
	"math/rand"
	"sync"
)

// Rand is a math/rand source guarded by a mutex, so it can be shared by goroutines.
// It is only used as a fallback when crypto/rand is not available.
type Rand struct {
	src  *rand.Rand
	lock sync.Mutex
}

func NewRand(seed int64) *Rand {
	return &Rand{
		src: rand.New(rand.NewSource(seed)), //nolint:gosec
	}
}

func (l *Rand) Uint32() uint32 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.src.Uint32()
}

func (l *Rand) Uint64() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.src.Uint64()
}
