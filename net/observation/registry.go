// Package observation keeps the subscriptions of observed resources and
// delivers their notifications, filtered by freshness, in arrival order.
package observation

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/plgd-dev/coapnet/message"
	"github.com/plgd-dev/coapnet/pkg/errors"
	coapSync "github.com/plgd-dev/coapnet/pkg/sync"
	"go.uber.org/zap"
)

// DefaultQueueSize is the number of notifications buffered per subscription.
const DefaultQueueSize = 16

// HandlerFunc receives the notifications of a subscription.
type HandlerFunc = func(msg *message.Message)

type options struct {
	logger    *zap.Logger
	clock     clock.Clock
	queueSize int
}

type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the clock used to timestamp accepted notifications.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithQueueSize sets how many notifications may wait for the handler. When
// the queue is full further notifications are dropped.
func WithQueueSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.queueSize = size
		}
	}
}

type registerOptions struct {
	sequence    uint32
	hasSequence bool
}

type RegisterOption func(*registerOptions)

// WithSequence seeds the last seen sequence number, usually from the Observe
// option of the response that established the subscription.
func WithSequence(seq uint32) RegisterOption {
	return func(o *registerOptions) {
		o.sequence = seq
		o.hasSequence = true
	}
}

// Registry maps tokens to subscriptions.
type Registry struct {
	logger        *zap.Logger
	clock         clock.Clock
	queueSize     int
	key           func(message.Token) uint64
	subscriptions *coapSync.Map[uint64, *Subscription]

	// mutex orders Register against Close
	mutex  sync.Mutex
	closed bool
}

func NewRegistry(opts ...Option) *Registry {
	cfg := options{
		logger:    zap.NewNop(),
		clock:     clock.New(),
		queueSize: DefaultQueueSize,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Registry{
		logger:        cfg.logger,
		clock:         cfg.clock,
		queueSize:     cfg.queueSize,
		key:           message.Token.Hash,
		subscriptions: coapSync.NewMap[uint64, *Subscription](),
	}
}

// Register starts a subscription for token. Notifications are passed to handler
// from a goroutine owned by the subscription. It fails with errors.ErrClosed after Close.
func (r *Registry) Register(token message.Token, handler HandlerFunc, opts ...RegisterOption) (*Subscription, error) {
	if len(token) == 0 {
		return nil, fmt.Errorf("cannot register observation: empty token")
	}
	var cfg registerOptions
	for _, o := range opts {
		o(&cfg)
	}
	s := &Subscription{
		token:   append(message.Token(nil), token...),
		handler: handler,
		logger:  r.logger,
		queue:   make(chan *message.Message, r.queueSize),
		final:   make(chan *message.Message, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if cfg.hasSequence {
		s.private.sequence = cfg.sequence
		s.private.hasSequence = true
		s.private.lastEvent = r.clock.Now()
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return nil, fmt.Errorf("cannot register observation %v: %w", token, errors.ErrClosed)
	}
	if _, loaded := r.subscriptions.LoadOrStore(r.key(token), s); loaded {
		return nil, fmt.Errorf("cannot register observation %v: %w", token, errors.ErrKeyAlreadyExists)
	}
	go s.run()
	return s, nil
}

// Deregister removes the subscription of token and stops its worker. Notifications
// still queued are dropped. It returns false when token was not registered.
func (r *Registry) Deregister(token message.Token) bool {
	s := r.remove(token)
	if s == nil {
		return false
	}
	s.cancel()
	return true
}

// remove deletes the subscription of token without stopping it.
func (r *Registry) remove(token message.Token) *Subscription {
	var s *Subscription
	r.subscriptions.ReplaceWithFunc(r.key(token), func(oldValue *Subscription, oldLoaded bool) (*Subscription, bool) {
		if !oldLoaded || !bytes.Equal(oldValue.token, token) {
			return oldValue, !oldLoaded
		}
		s = oldValue
		return nil, true
	})
	return s
}

// load returns the subscription of token, nil when token is not registered.
func (r *Registry) load(token message.Token) *Subscription {
	s, ok := r.subscriptions.Load(r.key(token))
	if !ok || !bytes.Equal(s.token, token) {
		return nil
	}
	return s
}

// TryHandleReceivedMessage offers msg to the subscription of its token. It
// returns true when the token is registered, even if the notification was stale.
// It never blocks on the handler.
func (r *Registry) TryHandleReceivedMessage(msg *message.Message) bool {
	if len(msg.Token) == 0 {
		return false
	}
	s := r.load(msg.Token)
	if s == nil {
		return false
	}
	if !msg.Options.HasOption(message.Observe) {
		// the server ended the observation
		if removed := r.remove(msg.Token); removed != nil {
			removed.final <- msg
		}
		return true
	}
	seq, err := msg.Options.Observe()
	if err != nil {
		r.logger.Debug("invalid observe option", zap.Stringer("token", msg.Token), zap.Error(err))
		return true
	}
	if !s.isFresh(seq, r.clock.Now()) {
		r.logger.Debug("stale notification", zap.Stringer("token", msg.Token), zap.Uint32("sequence", seq))
		return true
	}
	select {
	case s.queue <- msg:
	default:
		r.logger.Warn("observation queue is full, notification dropped", zap.Stringer("token", msg.Token), zap.Uint32("sequence", seq))
	}
	return true
}

// Close deregisters every subscription and waits until their workers exit.
// It must not be called from a handler.
func (r *Registry) Close() {
	r.mutex.Lock()
	r.closed = true
	r.mutex.Unlock()
	for _, s := range r.subscriptions.PullOutAll() {
		s.cancel()
		<-s.done
	}
}

// Len returns the number of registered subscriptions.
func (r *Registry) Len() int {
	return r.subscriptions.Length()
}

// Subscription is a registered observation.
type Subscription struct {
	token   message.Token
	handler HandlerFunc
	logger  *zap.Logger

	queue    chan *message.Message
	final    chan *message.Message
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	private struct {
		mutex       sync.Mutex
		sequence    uint32
		hasSequence bool
		lastEvent   time.Time
	}
}

func (s *Subscription) Token() message.Token {
	return s.token
}

// Done is closed when the worker of the subscription exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) cancel() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Subscription) isFresh(seq uint32, now time.Time) bool {
	s.private.mutex.Lock()
	defer s.private.mutex.Unlock()
	if s.private.hasSequence && !ValidSequenceNumber(s.private.sequence, seq, s.private.lastEvent, now) {
		return false
	}
	s.private.sequence = seq
	s.private.hasSequence = true
	s.private.lastEvent = now
	return true
}

func (s *Subscription) run() {
	defer close(s.done)
	for {
		select {
		case msg := <-s.queue:
			s.deliver(msg)
		case msg := <-s.final:
			s.drain()
			s.deliver(msg)
			return
		case <-s.stop:
			return
		}
	}
}

func (s *Subscription) drain() {
	for {
		select {
		case msg := <-s.queue:
			s.deliver(msg)
		default:
			return
		}
	}
}

func (s *Subscription) deliver(msg *message.Message) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("observation handler panicked", zap.Stringer("token", s.token), zap.Any("panic", r))
		}
	}()
	s.handler(msg)
}
