package net

import (
	"errors"
	"net"
	"os"
	"strings"
	"time"
)

// https://github.com/golang/go/blob/958e212db799e609b2a8df51cdd85c9341e7a404/src/internal/poll/fd.go#L43
const ioTimeout = "i/o timeout"

// isTemporary reports whether err is the expiry of our own heartbeat deadline.
func isTemporary(err error, deadline time.Time) bool {
	if deadline.After(time.Now()) {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), ioTimeout)
}
