package client

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/plgd-dev/coapnet/message"
	"github.com/plgd-dev/coapnet/message/codes"
	coapNet "github.com/plgd-dev/coapnet/net"
	"github.com/plgd-dev/coapnet/pkg/errors"
	"go.uber.org/zap"
)

// receiveLoop demultiplexes inbound datagrams until ctx is canceled. A failed
// receive fails every pending exchange, the loop itself keeps running.
func (c *Client) receiveLoop(ctx context.Context, t coapNet.Transport, done chan<- struct{}) {
	defer close(done)
	b := c.cfg.ReceiveErrorBackOff()
	b.Reset()
	for {
		data, err := t.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("cannot receive datagram", zap.Error(err))
			c.dispatcher.Dispatch(fmt.Errorf("%w: %w", errors.ErrTransportFault, err))
			if !c.sleep(ctx, b) {
				return
			}
			continue
		}
		b.Reset()
		c.processDatagram(ctx, t, data)
	}
}

// sleep waits for the next backoff interval, it returns false when ctx is done.
func (c *Client) sleep(ctx context.Context, b backoff.BackOff) bool {
	wait := b.NextBackOff()
	if wait == backoff.Stop {
		// the loop never gives up
		b.Reset()
		wait = b.NextBackOff()
	}
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := c.cfg.Clock.Timer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Client) processDatagram(ctx context.Context, t coapNet.Transport, data []byte) {
	msg, err := c.cfg.Codec.Decode(data)
	if err != nil {
		c.logger.Debug("cannot decode datagram", zap.Int("size", len(data)), zap.Error(err))
		return
	}
	if c.dispatcher.TryHandleReceivedMessage(msg) {
		return
	}
	if c.registry.TryHandleReceivedMessage(msg) {
		if msg.Type == message.Confirmable {
			c.sendEmpty(ctx, t, message.Acknowledgement, msg.MessageID)
		}
		return
	}
	c.logger.Debug("unmatched message", zap.Stringer("message", msg))
	if msg.Type == message.Confirmable || (msg.Type == message.NonConfirmable && len(msg.Token) > 0) {
		c.sendEmpty(ctx, t, message.Reset, msg.MessageID)
	}
}

func (c *Client) sendEmpty(ctx context.Context, t coapNet.Transport, typ message.Type, messageID uint16) {
	data, err := c.cfg.Codec.Encode(message.Message{
		Type:      typ,
		Code:      codes.Empty,
		MessageID: messageID,
	})
	if err == nil {
		err = t.Send(ctx, data)
	}
	if err != nil && ctx.Err() == nil {
		c.logger.Debug("cannot send empty message", zap.Stringer("type", typ), zap.Uint16("messageID", messageID), zap.Error(err))
	}
}
