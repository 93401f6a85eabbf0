package message

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	pkgRand "github.com/plgd-dev/coapnet/pkg/rand"
	"go.uber.org/atomic"
)

var weakRng = pkgRand.NewRand(time.Now().UnixNano())

// RandMID returns a random message id, used to seed allocators.
func RandMID() uint16 {
	b := make([]byte, 2)
	_, err := rand.Read(b)
	if err != nil {
		// fallback to cryptographically insecure pseudo-random generator
		return uint16(weakRng.Uint32() >> 16)
	}
	return binary.BigEndian.Uint16(b)
}

// MessageIDAllocator issues 16-bit message ids. It is safe for concurrent use.
type MessageIDAllocator struct {
	next atomic.Uint32
}

// NewMessageIDAllocator creates an allocator seeded with a random id so that ids
// are hard to predict off-path.
func NewMessageIDAllocator() *MessageIDAllocator {
	return NewMessageIDAllocatorWithSeed(RandMID())
}

func NewMessageIDAllocatorWithSeed(seed uint16) *MessageIDAllocator {
	a := &MessageIDAllocator{}
	a.next.Store(uint32(seed))
	return a
}

// Next returns the seed incremented by the number of calls so far, modulo 65536.
func (a *MessageIDAllocator) Next() uint16 {
	return uint16(a.next.Inc())
}
