package client

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/plgd-dev/coapnet/message"
	coapNet "github.com/plgd-dev/coapnet/net"
	"github.com/plgd-dev/coapnet/net/blockwise"
	"github.com/plgd-dev/coapnet/net/observation"
	"github.com/plgd-dev/coapnet/udp/coder"
	"go.uber.org/zap"
)

// DefaultPort is the port of unencrypted CoAP.
const DefaultPort = 5683

// Codec converts messages to and from datagrams.
type Codec interface {
	Encode(m message.Message) ([]byte, error)
	Decode(data []byte) (*message.Message, error)
}

// BackOffFunc creates the policy spacing consecutive receive failures.
type BackOffFunc = func() backoff.BackOff

var DefaultConfig = func() Config {
	return Config{
		DefaultPort:             DefaultPort,
		CommunicationTimeout:    time.Second * 10,
		TransportFactory:        coapNet.NewUDPTransportFactory(),
		ClientAddress:           "0.0.0.0",
		Logger:                  zap.NewNop(),
		Clock:                   clock.New(),
		Codec:                   coder.DefaultCoder,
		TokenLength:             message.DefaultTokenLength,
		BlockwiseMaxPayloadSize: blockwise.DefaultMaxPayloadSize,
		ObservationQueueSize:    observation.DefaultQueueSize,
		ReceiveErrorBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Millisecond * 10
			b.MaxInterval = time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}()

type Config struct {
	// DefaultPort is used when the target of Connect has no port.
	DefaultPort int
	// CommunicationTimeout bounds the wait for the reply of a single message, measured from sending it.
	CommunicationTimeout time.Duration
	TransportFactory     coapNet.TransportFactory
	// ClientAddress and ClientPort form the local endpoint, port 0 selects an ephemeral one.
	ClientAddress              string
	ClientPort                 int
	Logger                     *zap.Logger
	Clock                      clock.Clock
	Codec                      Codec
	TokenLength                int
	MaxParallelRequests        int64
	MaxParallelRequestsPerPath int64
	BlockwiseMaxPayloadSize    int64
	ObservationQueueSize       int
	ReceiveErrorBackOff        BackOffFunc
}
