package client

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/plgd-dev/coapnet/message"
	"github.com/plgd-dev/coapnet/message/codes"
	coapNet "github.com/plgd-dev/coapnet/net"
	"github.com/plgd-dev/coapnet/net/blockwise"
	limitparallelrequests "github.com/plgd-dev/coapnet/net/client/limitParallelRequests"
	"github.com/plgd-dev/coapnet/net/exchange"
	"github.com/plgd-dev/coapnet/net/observation"
	"github.com/plgd-dev/coapnet/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type State uint32

const (
	Disconnected State = iota
	Connecting
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Client is a CoAP client talking to a single server over a datagram transport.
// Its methods are safe for concurrent use.
type Client struct {
	cfg         Config
	logger      *zap.Logger
	state       atomic.Uint32
	ids         *message.MessageIDAllocator
	tokens      *message.TokenAllocator
	dispatcher  *exchange.Dispatcher
	registry    *observation.Registry
	reassembler *blockwise.Reassembler
	limit       *limitparallelrequests.LimitParallelRequests

	// ctx is canceled by Close, it stops the receive loop and the requests issued on behalf of notifications.
	ctx    context.Context
	cancel context.CancelFunc

	mutex     sync.Mutex
	transport coapNet.Transport
	done      chan struct{}
}

// New creates a disconnected client. Zero fields of cfg take the values of DefaultConfig.
func New(cfg Config) (*Client, error) {
	tokens, err := message.NewTokenAllocator(cfg.TokenLength)
	if err != nil {
		return nil, fmt.Errorf("cannot create token allocator: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = DefaultConfig.Clock
	}
	if cfg.Codec == nil {
		cfg.Codec = DefaultConfig.Codec
	}
	if cfg.TransportFactory == nil {
		cfg.TransportFactory = DefaultConfig.TransportFactory
	}
	if cfg.CommunicationTimeout <= 0 {
		cfg.CommunicationTimeout = DefaultConfig.CommunicationTimeout
	}
	if cfg.DefaultPort <= 0 {
		cfg.DefaultPort = DefaultConfig.DefaultPort
	}
	if cfg.BlockwiseMaxPayloadSize <= 0 {
		cfg.BlockwiseMaxPayloadSize = DefaultConfig.BlockwiseMaxPayloadSize
	}
	if cfg.ReceiveErrorBackOff == nil {
		cfg.ReceiveErrorBackOff = DefaultConfig.ReceiveErrorBackOff
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:        cfg,
		logger:     cfg.Logger,
		ids:        message.NewMessageIDAllocator(),
		tokens:     tokens,
		dispatcher: exchange.New(exchange.WithClock(cfg.Clock)),
		registry: observation.NewRegistry(
			observation.WithLogger(cfg.Logger),
			observation.WithClock(cfg.Clock),
			observation.WithQueueSize(cfg.ObservationQueueSize),
		),
		reassembler: blockwise.New(
			blockwise.WithMaxPayloadSize(cfg.BlockwiseMaxPayloadSize),
			blockwise.WithLogger(cfg.Logger),
		),
		ctx:    ctx,
		cancel: cancel,
	}
	c.limit = limitparallelrequests.New(cfg.MaxParallelRequests, cfg.MaxParallelRequestsPerPath, c.do)
	return c, nil
}

func (c *Client) State() State {
	return State(c.state.Load())
}

// Connect opens the transport to target, "host[:port]", and starts the receive loop.
func (c *Client) Connect(ctx context.Context, target string) error {
	if !c.state.CompareAndSwap(uint32(Disconnected), uint32(Connecting)) {
		if c.State() == Closed {
			return errors.ErrClosed
		}
		return fmt.Errorf("cannot connect in state %v", c.State())
	}
	t, err := c.connect(ctx, target)
	if err != nil {
		c.state.CompareAndSwap(uint32(Connecting), uint32(Disconnected))
		return fmt.Errorf("%w to %v: %w", errors.ErrConnectFailure, target, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.state.CompareAndSwap(uint32(Connecting), uint32(Connected)) {
		// closed meanwhile
		_ = t.Close()
		return errors.ErrClosed
	}
	c.transport = t
	c.done = make(chan struct{})
	go c.receiveLoop(c.ctx, t, c.done)
	c.logger.Debug("connected", zap.String("target", target))
	return nil
}

func (c *Client) connect(ctx context.Context, target string) (coapNet.Transport, error) {
	remote, err := coapNet.ResolveUDPAddr(ctx, target, c.cfg.DefaultPort)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve address: %w", err)
	}
	local := &net.UDPAddr{Port: c.cfg.ClientPort}
	if c.cfg.ClientAddress != "" {
		local.IP = net.ParseIP(c.cfg.ClientAddress)
		if local.IP == nil {
			return nil, fmt.Errorf("invalid client address %v", c.cfg.ClientAddress)
		}
	}
	t := c.cfg.TransportFactory()
	if err := t.Connect(ctx, local, remote); err != nil {
		return nil, err
	}
	return t, nil
}

// Close stops the receive loop, releases the transport and ends all observations.
// Requests in flight resolve through their own timeout. Errors are logged, not returned.
func (c *Client) Close() error {
	if State(c.state.Swap(uint32(Closed))) == Closed {
		return nil
	}
	c.cancel()
	c.mutex.Lock()
	t := c.transport
	done := c.done
	c.transport = nil
	c.mutex.Unlock()

	var errs *multierror.Error
	if t != nil {
		if err := t.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("cannot close transport: %w", err))
		}
	}
	if done != nil {
		<-done
	}
	c.registry.Close()
	if err := errs.ErrorOrNil(); err != nil {
		c.logger.Warn("cannot close client", zap.Error(err))
	}
	return nil
}

func (c *Client) getTransport() (coapNet.Transport, error) {
	switch c.State() {
	case Connected:
	case Closed:
		return nil, errors.ErrClosed
	default:
		return nil, errors.ErrNotConnected
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.transport == nil {
		return nil, errors.ErrClosed
	}
	return c.transport, nil
}

// do sends req under a fresh message id and waits for the acknowledgement.
func (c *Client) do(ctx context.Context, req *message.Message) (*message.Message, error) {
	t, err := c.getTransport()
	if err != nil {
		return nil, err
	}
	msg := *req
	msg.MessageID = c.ids.Next()
	awaiter, err := c.dispatcher.AddAwaiter(msg.MessageID)
	if err != nil {
		return nil, err
	}
	defer c.dispatcher.RemoveAwaiter(msg.MessageID)
	data, err := c.cfg.Codec.Encode(msg)
	if err != nil {
		return nil, fmt.Errorf("cannot encode request: %w", err)
	}
	if err := t.Send(ctx, data); err != nil {
		return nil, fmt.Errorf("cannot send request: %w", err)
	}
	resp, err := awaiter.Wait(ctx, c.cfg.CommunicationTimeout)
	if err != nil {
		return nil, err
	}
	if resp.Type == message.Reset {
		return nil, fmt.Errorf("message id %v: %w", msg.MessageID, errors.ErrReset)
	}
	return resp, nil
}

// roundTrip sends req through the parallel request limits and completes a block-wise response body.
func (c *Client) roundTrip(ctx context.Context, req *message.Message) (*message.Message, []byte, error) {
	resp, err := c.limit.Do(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if !blockwise.IsBlockTransfer(resp) {
		return resp, resp.Payload, nil
	}
	payload, err := c.reassembler.ReceiveFullPayload(ctx, req, resp, c.do)
	if err != nil {
		return nil, nil, err
	}
	return resp, payload, nil
}

// Request sends req and returns the response. Any status code is a valid response.
func (c *Client) Request(ctx context.Context, req Request) (*Response, error) {
	msg, err := req.toMessage()
	if err != nil {
		return nil, err
	}
	msg.Token = c.tokens.Next()
	resp, payload, err := c.roundTrip(ctx, msg)
	if err != nil {
		return nil, err
	}
	return toResponse(resp, payload), nil
}

// Get issues a GET to the specified path.
func (c *Client) Get(ctx context.Context, path string, queries ...string) (*Response, error) {
	return c.Request(ctx, Request{
		Method: codes.GET,
		Options: RequestOptions{
			URIPath:  path,
			URIQuery: queries,
		},
	})
}

// Post issues a POST to the specified path.
func (c *Client) Post(ctx context.Context, path string, contentFormat message.MediaType, payload []byte) (*Response, error) {
	return c.Request(ctx, Request{
		Method: codes.POST,
		Options: RequestOptions{
			URIPath:       path,
			ContentFormat: &contentFormat,
		},
		Payload: payload,
	})
}

// Put issues a PUT to the specified path.
func (c *Client) Put(ctx context.Context, path string, contentFormat message.MediaType, payload []byte) (*Response, error) {
	return c.Request(ctx, Request{
		Method: codes.PUT,
		Options: RequestOptions{
			URIPath:       path,
			ContentFormat: &contentFormat,
		},
		Payload: payload,
	})
}

// Delete deletes the resource identified by the request path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, Request{
		Method: codes.DELETE,
		Options: RequestOptions{
			URIPath: path,
		},
	})
}
