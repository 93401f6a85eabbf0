// Helper package for tests, must not be used in production code.
package net

import (
	"time"

	pkgRand "github.com/plgd-dev/coapnet/pkg/rand"
)

var weakRng = pkgRand.NewRand(time.Now().UnixNano())

const (
	// 71 allowed letters in URL path segment
	urlLetterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ-._~!$&'()*+,;=:@"

	urlLetterIdxBits = 7                       // we need 7 bits to represent a letter index (0..70)
	urlLetterIdxMask = 1<<urlLetterIdxBits - 1 // All 1-bits, as many as letterIdxBits
)

// RandomURLString generates a random one segment URL path of length n, including the leading slash.
func RandomURLString(n int) string {
	b := make([]byte, n)
	if n > 0 {
		b[0] = '/'
	}
	for i := 1; i < n; {
		if idx := int(weakRng.Uint32() & urlLetterIdxMask); idx < len(urlLetterBytes) {
			b[i] = urlLetterBytes[idx]
			i++
		}
	}
	return string(b)
}
