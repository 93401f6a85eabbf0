// Package exchange correlates outgoing confirmable requests with the
// acknowledgement or reset that answers them, keyed by message id.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/plgd-dev/coapnet/message"
	"github.com/plgd-dev/coapnet/pkg/errors"
	coapSync "github.com/plgd-dev/coapnet/pkg/sync"
)

type result struct {
	msg *message.Message
	err error
}

// Awaiter is the one-shot result slot of a single exchange.
type Awaiter struct {
	id    uint16
	clock clock.Clock
	resp  chan result
}

func (a *Awaiter) deliver(r result) {
	select {
	case a.resp <- r:
	default:
		// already resolved, first delivery wins
	}
}

// ID returns the message id of the exchange.
func (a *Awaiter) ID() uint16 {
	return a.id
}

// Wait blocks until the exchange is resolved, timeout elapses or ctx is done.
// A timeout <= 0 disables the timer.
func (a *Awaiter) Wait(ctx context.Context, timeout time.Duration) (*message.Message, error) {
	var timeoutC <-chan time.Time
	if timeout > 0 {
		t := a.clock.Timer(timeout)
		defer t.Stop()
		timeoutC = t.C
	}
	select {
	case r := <-a.resp:
		return r.msg, r.err
	case <-timeoutC:
		return nil, fmt.Errorf("message id %v: %w", a.id, errors.ErrRequestTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type options struct {
	clock clock.Clock
}

type Option func(*options)

// WithClock sets the clock used for timeouts.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// Dispatcher is the table of live exchanges.
type Dispatcher struct {
	clock    clock.Clock
	awaiters *coapSync.Map[uint16, *Awaiter]
}

func New(opts ...Option) *Dispatcher {
	cfg := options{
		clock: clock.New(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Dispatcher{
		clock:    cfg.clock,
		awaiters: coapSync.NewMap[uint16, *Awaiter](),
	}
}

// AddAwaiter registers an exchange for id. Every successful call must be paired
// with RemoveAwaiter.
func (d *Dispatcher) AddAwaiter(id uint16) (*Awaiter, error) {
	a := &Awaiter{
		id:    id,
		clock: d.clock,
		resp:  make(chan result, 1),
	}
	if _, loaded := d.awaiters.LoadOrStore(id, a); loaded {
		return nil, fmt.Errorf("cannot add awaiter for message id %v: %w", id, errors.ErrKeyAlreadyExists)
	}
	return a, nil
}

// RemoveAwaiter deletes the exchange for id. It is safe to call when absent.
func (d *Dispatcher) RemoveAwaiter(id uint16) {
	d.awaiters.Delete(id)
}

// TryHandleReceivedMessage resolves the exchange matching msg.MessageID. Only
// acknowledgements and resets are matched: confirmable and non-confirmable
// messages carry ids chosen by the peer.
func (d *Dispatcher) TryHandleReceivedMessage(msg *message.Message) bool {
	if msg.Type != message.Acknowledgement && msg.Type != message.Reset {
		return false
	}
	a, ok := d.awaiters.Load(msg.MessageID)
	if !ok {
		return false
	}
	a.deliver(result{msg: msg})
	return true
}

// Dispatch fails every live exchange with err.
func (d *Dispatcher) Dispatch(err error) {
	d.awaiters.Range(func(_ uint16, a *Awaiter) bool {
		a.deliver(result{err: err})
		return true
	})
}

// Len returns the number of live exchanges.
func (d *Dispatcher) Len() int {
	return d.awaiters.Length()
}
