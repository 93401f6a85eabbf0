package options

import (
	"github.com/benbjohnson/clock"
	udpClient "github.com/plgd-dev/coapnet/udp/client"
	"go.uber.org/zap"
)

// LoggerOpt logger option.
type LoggerOpt struct {
	logger *zap.Logger
}

func (o LoggerOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.Logger = o.logger
}

// WithLogger set's the logger of the client.
func WithLogger(logger *zap.Logger) LoggerOpt {
	return LoggerOpt{logger: logger}
}

// ClockOpt clock option.
type ClockOpt struct {
	clock clock.Clock
}

func (o ClockOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.Clock = o.clock
}

// WithClock set's the source of time for timeouts and backoff.
func WithClock(c clock.Clock) ClockOpt {
	return ClockOpt{clock: c}
}

// LimitClientParallelRequestOpt limit's number of parallel requests from client.
type LimitClientParallelRequestOpt struct {
	limitClientParallelRequests int64
}

func (o LimitClientParallelRequestOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.MaxParallelRequests = o.limitClientParallelRequests
}

// WithLimitClientParallelRequest limits number of parallel requests from client. (default: 0, unlimited)
func WithLimitClientParallelRequest(limitClientParallelRequests int64) LimitClientParallelRequestOpt {
	return LimitClientParallelRequestOpt{limitClientParallelRequests: limitClientParallelRequests}
}

// LimitClientEndpointParallelRequestOpt limit's number of parallel requests to one resource path.
type LimitClientEndpointParallelRequestOpt struct {
	limitClientEndpointParallelRequests int64
}

func (o LimitClientEndpointParallelRequestOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.MaxParallelRequestsPerPath = o.limitClientEndpointParallelRequests
}

// WithLimitClientEndpointParallelRequest limits number of parallel requests to one resource path. (default: 0, unlimited)
func WithLimitClientEndpointParallelRequest(limitClientEndpointParallelRequests int64) LimitClientEndpointParallelRequestOpt {
	return LimitClientEndpointParallelRequestOpt{limitClientEndpointParallelRequests: limitClientEndpointParallelRequests}
}

// BlockwiseOpt block-wise transfer option.
type BlockwiseOpt struct {
	maxPayloadSize int64
}

func (o BlockwiseOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.BlockwiseMaxPayloadSize = o.maxPayloadSize
}

// WithBlockwise limits the size of a reassembled block-wise body. (default: 1MiB)
func WithBlockwise(maxPayloadSize int64) BlockwiseOpt {
	return BlockwiseOpt{maxPayloadSize: maxPayloadSize}
}

// ObservationQueueSizeOpt limit's the number of notifications waiting for a handler.
type ObservationQueueSizeOpt struct {
	observationQueueSize int
}

func (o ObservationQueueSizeOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.ObservationQueueSize = o.observationQueueSize
}

// WithObservationQueueSize limit's the number of notifications waiting for a handler. (default: 16)
func WithObservationQueueSize(observationQueueSize int) ObservationQueueSizeOpt {
	return ObservationQueueSizeOpt{observationQueueSize: observationQueueSize}
}

// TokenLengthOpt token length option.
type TokenLengthOpt struct {
	tokenLength int
}

func (o TokenLengthOpt) UDPClientApply(cfg *udpClient.Config) {
	cfg.TokenLength = o.tokenLength
}

// WithTokenLength set's the length of generated tokens, 1 to 8 bytes. (default: 4)
func WithTokenLength(tokenLength int) TokenLengthOpt {
	return TokenLengthOpt{tokenLength: tokenLength}
}
