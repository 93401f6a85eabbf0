package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetToken(t *testing.T) {
	token, err := GetToken()
	require.NoError(t, err)
	require.Len(t, token, MaxTokenSize)
	require.NotEmpty(t, token.String())
}

func TestTokenAllocator(t *testing.T) {
	_, err := NewTokenAllocator(0)
	require.ErrorIs(t, err, ErrInvalidTokenLen)
	_, err = NewTokenAllocator(MaxTokenSize + 1)
	require.ErrorIs(t, err, ErrInvalidTokenLen)

	for _, length := range []int{1, DefaultTokenLength, MaxTokenSize} {
		a, err := NewTokenAllocator(length)
		require.NoError(t, err)
		seen := make(map[uint64]struct{})
		for i := 0; i < 256; i++ {
			token := a.Next()
			require.Len(t, token, length)
			seen[token.Hash()] = struct{}{}
		}
		require.Len(t, seen, 256)
	}
}
