package udp

import (
	"context"
	"fmt"

	"github.com/plgd-dev/coapnet/udp/client"
)

// An Option sets options such as logger, timeouts, limits, etc.
type Option interface {
	UDPClientApply(cfg *client.Config)
}

// Dial creates a client connection to the given target, "host[:port]".
func Dial(ctx context.Context, target string, opts ...Option) (*client.Client, error) {
	cfg := client.DefaultConfig
	for _, o := range opts {
		o.UDPClientApply(&cfg)
	}
	cc, err := client.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot create client: %w", err)
	}
	if err := cc.Connect(ctx, target); err != nil {
		_ = cc.Close()
		return nil, err
	}
	return cc, nil
}
