package message

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"hash/crc64"

	"go.uber.org/atomic"
)

// DefaultTokenLength is the token length used by clients unless configured otherwise.
const DefaultTokenLength = 4

type Token []byte

func (t Token) String() string {
	return base64.StdEncoding.EncodeToString(t)
}

var crc64Table = crc64.MakeTable(crc64.ISO)

// Hash returns a map key for the token.
func (t Token) Hash() uint64 {
	return crc64.Checksum(t, crc64Table)
}

// GetToken generates a random token of MaxTokenSize bytes.
func GetToken() (Token, error) {
	b := make(Token, MaxTokenSize)
	_, err := rand.Read(b)
	// Note that err == nil only if we read len(b) bytes.
	if err != nil {
		return nil, err
	}
	return b, nil
}

// TokenAllocator issues tokens of a fixed length from a random seed. A token repeats
// only after the counter wraps the 8*length bit space.
type TokenAllocator struct {
	length  int
	counter atomic.Uint64
}

// NewTokenAllocator creates an allocator of tokens of the given length (1..8 bytes).
func NewTokenAllocator(length int) (*TokenAllocator, error) {
	if length < 1 || length > MaxTokenSize {
		return nil, ErrInvalidTokenLen
	}
	seed, err := GetToken()
	if err != nil {
		seed = make(Token, MaxTokenSize)
		binary.BigEndian.PutUint64(seed, weakRng.Uint64())
	}
	a := &TokenAllocator{length: length}
	a.counter.Store(binary.BigEndian.Uint64(seed))
	return a, nil
}

func (a *TokenAllocator) Next() Token {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, a.counter.Inc())
	return Token(buf[8-a.length:])
}
