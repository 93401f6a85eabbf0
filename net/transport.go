package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/alecthomas/units"
	"github.com/plgd-dev/coapnet/pkg/fn"
)

// Transport carries raw datagrams between the client and one remote endpoint.
type Transport interface {
	// Connect binds the local endpoint and fixes the remote one.
	Connect(ctx context.Context, local, remote *net.UDPAddr) error
	// Send hands data to the network.
	Send(ctx context.Context, data []byte) error
	// Receive blocks until the next datagram arrives. It returns ctx.Err() when ctx is canceled.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// TransportFactory creates an unconnected transport.
type TransportFactory func() Transport

// DefaultMaxDatagramSize fits any UDP payload.
const DefaultMaxDatagramSize = 64 * units.KiB

type udpTransportOptions struct {
	hopLimit        int
	maxDatagramSize int
	connOpts        []UDPOption
}

// A UDPTransportOption configures a UDPTransport.
type UDPTransportOption func(*udpTransportOptions)

// WithHopLimit sets the TTL / hop limit of outgoing datagrams, 0 keeps the system default.
func WithHopLimit(hopLimit int) UDPTransportOption {
	return func(o *udpTransportOptions) {
		o.hopLimit = hopLimit
	}
}

// WithMaxDatagramSize sets the receive buffer size, longer datagrams are truncated.
func WithMaxDatagramSize(size int) UDPTransportOption {
	return func(o *udpTransportOptions) {
		o.maxDatagramSize = size
	}
}

// WithConnOptions passes options to the underlying UDPConn.
func WithConnOptions(opts ...UDPOption) UDPTransportOption {
	return func(o *udpTransportOptions) {
		o.connOpts = append(o.connOpts, opts...)
	}
}

// UDPTransport is a Transport over an unconnected UDP socket. Datagrams from
// other sources than the remote endpoint are dropped.
type UDPTransport struct {
	opts udpTransportOptions

	mutex  sync.Mutex
	conn   *UDPConn
	remote *net.UDPAddr

	readMutex sync.Mutex
	readBuf   []byte
}

func NewUDPTransport(opts ...UDPTransportOption) *UDPTransport {
	cfg := udpTransportOptions{
		maxDatagramSize: int(DefaultMaxDatagramSize),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &UDPTransport{opts: cfg}
}

// NewUDPTransportFactory returns a factory of UDP transports sharing opts.
func NewUDPTransportFactory(opts ...UDPTransportOption) TransportFactory {
	return func() Transport {
		return NewUDPTransport(opts...)
	}
}

func udpNetwork(remote *net.UDPAddr) string {
	if IsIPv6(remote.IP) {
		return "udp6"
	}
	return "udp4"
}

func (t *UDPTransport) Connect(ctx context.Context, local, remote *net.UDPAddr) error {
	if remote == nil {
		return errors.New("invalid remote address")
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.conn != nil {
		return errors.New("transport is already connected")
	}
	network := udpNetwork(remote)
	laddr := ""
	if local != nil {
		l := *local
		if l.IP.IsUnspecified() {
			l.IP = nil
		}
		laddr = l.String()
	}
	var rollback fn.FuncList
	conn, err := NewListenUDP(ctx, network, laddr, t.opts.connOpts...)
	if err != nil {
		return fmt.Errorf("cannot listen on %v: %w", laddr, err)
	}
	rollback.Add(func() {
		_ = conn.Close()
	})
	if t.opts.hopLimit > 0 {
		if err := conn.SetHopLimit(t.opts.hopLimit); err != nil {
			rollback.Execute()
			return fmt.Errorf("cannot set hop limit: %w", err)
		}
	}
	t.conn = conn
	t.remote = remote
	return nil
}

func (t *UDPTransport) get() (*UDPConn, *net.UDPAddr, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.conn == nil {
		return nil, nil, ErrConnectionIsClosed
	}
	return t.conn, t.remote, nil
}

func (t *UDPTransport) Send(ctx context.Context, data []byte) error {
	conn, remote, err := t.get()
	if err != nil {
		return err
	}
	return conn.WriteWithContext(ctx, remote, data)
}

func sameEndpoint(a, b *net.UDPAddr) bool {
	return a.Port == b.Port && a.IP.Equal(b.IP)
}

// Receive returns a copy of the next datagram from the remote endpoint.
func (t *UDPTransport) Receive(ctx context.Context) ([]byte, error) {
	conn, remote, err := t.get()
	if err != nil {
		return nil, err
	}
	t.readMutex.Lock()
	defer t.readMutex.Unlock()
	if t.readBuf == nil {
		t.readBuf = make([]byte, t.opts.maxDatagramSize)
	}
	for {
		n, src, err := conn.ReadWithContext(ctx, t.readBuf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		if !sameEndpoint(src, remote) {
			continue
		}
		return append([]byte(nil), t.readBuf[:n]...), nil
	}
}

// LocalAddr returns the bound address, nil before Connect.
func (t *UDPTransport) LocalAddr() *net.UDPAddr {
	conn, _, err := t.get()
	if err != nil {
		return nil
	}
	addr, _ := conn.LocalAddr().(*net.UDPAddr)
	return addr
}

func (t *UDPTransport) Close() error {
	t.mutex.Lock()
	conn := t.conn
	t.conn = nil
	t.mutex.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// ResolveUDPAddr resolves "host[:port]" using defaultPort when the port is missing.
// IPv4 addresses are preferred.
func ResolveUDPAddr(ctx context.Context, target string, defaultPort int) (*net.UDPAddr, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		host = target
		if len(host) > 1 && host[0] == '[' && host[len(host)-1] == ']' {
			host = host[1 : len(host)-1]
		}
		portStr = strconv.Itoa(defaultPort)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	if host == "" {
		return nil, errors.New("missing host")
	}
	if ip := net.ParseIP(host); ip != nil {
		return &net.UDPAddr{IP: ip, Port: int(port)}, nil
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no address for %v", host)
	}
	ip := ips[0]
	for _, candidate := range ips {
		if candidate.To4() != nil {
			ip = candidate
			break
		}
	}
	return &net.UDPAddr{IP: ip, Port: int(port)}, nil
}
