package main

import (
	"fmt"
	"time"

	"github.com/alecthomas/units"
	"github.com/caarlos0/env/v7"
	"github.com/plgd-dev/coapnet/options"
	"github.com/plgd-dev/coapnet/udp"
	"go.uber.org/zap"
)

const envPrefix = "COAPC_"

type config struct {
	Target                     string        `env:"TARGET"                         envDefault:"localhost:5683"`
	LogLevel                   string        `env:"LOG_LEVEL"                      envDefault:"error"`
	Timeout                    time.Duration `env:"TIMEOUT"                        envDefault:"10s"`
	MaxPayloadSize             string        `env:"MAX_PAYLOAD_SIZE"               envDefault:"1MiB"`
	TokenLength                int           `env:"TOKEN_LENGTH"                   envDefault:"4"`
	MaxParallelRequests        int64         `env:"MAX_PARALLEL_REQUESTS"          envDefault:"0"`
	MaxParallelRequestsPerPath int64         `env:"MAX_PARALLEL_REQUESTS_PER_PATH" envDefault:"0"`
	ObservationQueueSize       int           `env:"OBSERVATION_QUEUE_SIZE"         envDefault:"16"`
}

// loadConfig reads the configuration from environ, or from the process environment when environ is nil.
func loadConfig(environ map[string]string) (config, error) {
	var cfg config
	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.Parse(&cfg, opts); err != nil {
		return config{}, fmt.Errorf("cannot load configuration: %w", err)
	}
	return cfg, nil
}

func (c config) maxPayloadSize() (int64, error) {
	v, err := units.ParseBase2Bytes(c.MaxPayloadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid max payload size %v: %w", c.MaxPayloadSize, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid max payload size %v", c.MaxPayloadSize)
	}
	return int64(v), nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %v: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	return cfg.Build()
}

func (c config) dialOptions(logger *zap.Logger) ([]udp.Option, error) {
	maxPayloadSize, err := c.maxPayloadSize()
	if err != nil {
		return nil, err
	}
	return []udp.Option{
		options.WithLogger(logger),
		options.WithCommunicationTimeout(c.Timeout),
		options.WithBlockwise(maxPayloadSize),
		options.WithTokenLength(c.TokenLength),
		options.WithLimitClientParallelRequest(c.MaxParallelRequests),
		options.WithLimitClientEndpointParallelRequest(c.MaxParallelRequestsPerPath),
		options.WithObservationQueueSize(c.ObservationQueueSize),
	}, nil
}
