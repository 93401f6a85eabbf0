package options

import (
	"time"

	coapNet "github.com/plgd-dev/coapnet/net"
	udpClient "github.com/plgd-dev/coapnet/udp/client"
)

// CommunicationTimeoutOpt communication timeout option.
type CommunicationTimeoutOpt struct {
	timeout time.Duration
}

func (o CommunicationTimeoutOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.CommunicationTimeout = o.timeout
}

// WithCommunicationTimeout set's how long a request waits for its reply. (default: 10s)
func WithCommunicationTimeout(timeout time.Duration) CommunicationTimeoutOpt {
	return CommunicationTimeoutOpt{timeout: timeout}
}

// TransportFactoryOpt transport option.
type TransportFactoryOpt struct {
	factory coapNet.TransportFactory
}

func (o TransportFactoryOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.TransportFactory = o.factory
}

// WithTransportFactory set's the factory of the datagram transport.
func WithTransportFactory(factory coapNet.TransportFactory) TransportFactoryOpt {
	return TransportFactoryOpt{factory: factory}
}

// ClientAddressOpt local endpoint option.
type ClientAddressOpt struct {
	address string
	port    int
}

func (o ClientAddressOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.ClientAddress = o.address
	cfg.ClientPort = o.port
}

// WithClientAddress binds the client to address and port. Port 0 selects an ephemeral port.
func WithClientAddress(address string, port int) ClientAddressOpt {
	return ClientAddressOpt{address: address, port: port}
}

// DefaultPortOpt default port option.
type DefaultPortOpt struct {
	port int
}

func (o DefaultPortOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.DefaultPort = o.port
}

// WithDefaultPort set's the port used when the target has none. (default: 5683)
func WithDefaultPort(port int) DefaultPortOpt {
	return DefaultPortOpt{port: port}
}

// CodecOpt codec option.
type CodecOpt struct {
	codec udpClient.Codec
}

func (o CodecOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.Codec = o.codec
}

// WithCodec set's the datagram codec.
func WithCodec(codec udpClient.Codec) CodecOpt {
	return CodecOpt{codec: codec}
}

// ReceiveErrorBackOffOpt receive loop backoff option.
type ReceiveErrorBackOffOpt struct {
	backOff udpClient.BackOffFunc
}

func (o ReceiveErrorBackOffOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.ReceiveErrorBackOff = o.backOff
}

// WithReceiveErrorBackOff set's the policy spacing consecutive receive failures.
func WithReceiveErrorBackOff(backOff udpClient.BackOffFunc) ReceiveErrorBackOffOpt {
	return ReceiveErrorBackOffOpt{backOff: backOff}
}
