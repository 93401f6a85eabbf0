package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// UDPConn is a udp connection provides Read/Write with context.
//
// Multiple goroutines may invoke methods on a UDPConn simultaneously.
type UDPConn struct {
	packetConn packetConn
	network    string
	connection *net.UDPConn
	heartBeat  time.Duration
	closed     atomic.Bool
}

type packetConn interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	WriteTo(b []byte, dst net.Addr) (n int, err error)
	ReadFrom(b []byte) (n int, src net.Addr, err error)
	SetHopLimit(hoplim int) error
	IsIPv6() bool
}

type packetConnIPv4 struct {
	packetConn *ipv4.PacketConn
}

func (p *packetConnIPv4) IsIPv6() bool {
	return false
}

func (p *packetConnIPv4) SetReadDeadline(t time.Time) error {
	return p.packetConn.SetReadDeadline(t)
}

func (p *packetConnIPv4) SetWriteDeadline(t time.Time) error {
	return p.packetConn.SetWriteDeadline(t)
}

func (p *packetConnIPv4) WriteTo(b []byte, dst net.Addr) (int, error) {
	return p.packetConn.WriteTo(b, nil, dst)
}

func (p *packetConnIPv4) ReadFrom(b []byte) (int, net.Addr, error) {
	n, _, src, err := p.packetConn.ReadFrom(b)
	return n, src, err
}

func (p *packetConnIPv4) SetHopLimit(hoplim int) error {
	return p.packetConn.SetTTL(hoplim)
}

type packetConnIPv6 struct {
	packetConn *ipv6.PacketConn
}

func (p *packetConnIPv6) IsIPv6() bool {
	return true
}

func (p *packetConnIPv6) SetReadDeadline(t time.Time) error {
	return p.packetConn.SetReadDeadline(t)
}

func (p *packetConnIPv6) SetWriteDeadline(t time.Time) error {
	return p.packetConn.SetWriteDeadline(t)
}

func (p *packetConnIPv6) WriteTo(b []byte, dst net.Addr) (int, error) {
	return p.packetConn.WriteTo(b, nil, dst)
}

func (p *packetConnIPv6) ReadFrom(b []byte) (int, net.Addr, error) {
	n, _, src, err := p.packetConn.ReadFrom(b)
	return n, src, err
}

func (p *packetConnIPv6) SetHopLimit(hoplim int) error {
	return p.packetConn.SetHopLimit(hoplim)
}

// IsIPv6 return's true if addr is IPV6.
func IsIPv6(addr net.IP) bool {
	if ip := addr.To16(); ip != nil && ip.To4() == nil {
		return true
	}
	return false
}

func newPacketConn(c *net.UDPConn) (packetConn, error) {
	laddr := c.LocalAddr()
	if laddr == nil {
		return nil, errors.New("invalid UDP connection")
	}
	addr, ok := laddr.(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("invalid address type(%T), UDP address expected", laddr)
	}
	if IsIPv6(addr.IP) {
		return &packetConnIPv6{packetConn: ipv6.NewPacketConn(c)}, nil
	}
	return &packetConnIPv4{packetConn: ipv4.NewPacketConn(c)}, nil
}

// NewListenUDP binds a udp socket to addr.
func NewListenUDP(ctx context.Context, network, addr string, opts ...UDPOption) (*UDPConn, error) {
	var lc net.ListenConfig
	c, err := lc.ListenPacket(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	conn, ok := c.(*net.UDPConn)
	if !ok {
		_ = c.Close()
		return nil, fmt.Errorf("invalid connection type(%T), UDP connection expected", c)
	}
	return NewUDPConn(network, conn, opts...)
}

// NewUDPConn creates connection over net.UDPConn.
func NewUDPConn(network string, c *net.UDPConn, opts ...UDPOption) (*UDPConn, error) {
	cfg := defaultUDPConnOptions
	for _, o := range opts {
		o.applyUDP(&cfg)
	}
	pc, err := newPacketConn(c)
	if err != nil {
		return nil, err
	}

	return &UDPConn{
		network:    network,
		connection: c,
		packetConn: pc,
		heartBeat:  cfg.heartBeat,
	}, nil
}

// LocalAddr returns the local network address. The Addr returned is shared by all invocations of LocalAddr, so do not modify it.
func (c *UDPConn) LocalAddr() net.Addr {
	return c.connection.LocalAddr()
}

// Network name of the network (for example, udp4, udp6, udp)
func (c *UDPConn) Network() string {
	return c.network
}

// Close closes the connection.
func (c *UDPConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.connection.Close()
}

// SetHopLimit sets the TTL (IPv4) or hop limit (IPv6) of outgoing unicast packets.
func (c *UDPConn) SetHopLimit(hopLimit int) error {
	return c.packetConn.SetHopLimit(hopLimit)
}

// WriteWithContext writes a datagram to raddr.
func (c *UDPConn) WriteWithContext(ctx context.Context, raddr *net.UDPAddr, buffer []byte) error {
	if raddr == nil {
		return errors.New("cannot write with context: invalid raddr")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if c.closed.Load() {
			return ErrConnectionIsClosed
		}
		deadline := time.Now().Add(c.heartBeat)
		if err := c.packetConn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("cannot set write deadline for udp connection: %w", err)
		}
		n, err := c.packetConn.WriteTo(buffer, raddr)
		if err != nil {
			if isTemporary(err, deadline) {
				continue
			}
			return err
		}
		if n != len(buffer) {
			return ErrWriteInterrupted
		}
		return nil
	}
}

// ReadWithContext reads one datagram. The read wakes up every heartbeat to check ctx.
func (c *UDPConn) ReadWithContext(ctx context.Context, buffer []byte) (int, *net.UDPAddr, error) {
	for {
		select {
		case <-ctx.Done():
			return -1, nil, ctx.Err()
		default:
		}
		if c.closed.Load() {
			return -1, nil, ErrConnectionIsClosed
		}
		deadline := time.Now().Add(c.heartBeat)
		if err := c.packetConn.SetReadDeadline(deadline); err != nil {
			return -1, nil, fmt.Errorf("cannot set read deadline for udp connection: %w", err)
		}
		n, srcAddr, err := c.packetConn.ReadFrom(buffer)
		if err != nil {
			if isTemporary(err, deadline) {
				continue
			}
			return -1, nil, fmt.Errorf("cannot read from udp connection: %w", err)
		}
		udpAddr, ok := srcAddr.(*net.UDPAddr)
		if !ok {
			return -1, nil, fmt.Errorf("cannot read from udp connection: invalid srcAddr type %T", srcAddr)
		}
		return n, udpAddr, nil
	}
}
