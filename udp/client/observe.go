package client

import (
	"context"
	"fmt"

	"github.com/plgd-dev/coapnet/message"
	"github.com/plgd-dev/coapnet/message/codes"
	"github.com/plgd-dev/coapnet/message/status"
	"github.com/plgd-dev/coapnet/net/blockwise"
	"github.com/plgd-dev/coapnet/net/observation"
	"go.uber.org/zap"
)

const (
	observeRegister   = 0
	observeDeregister = 1
)

// Observation is the handle of an observed resource.
type Observation struct {
	client   *Client
	token    message.Token
	request  Request
	response *Response
	sub      *observation.Subscription
}

// Token returns the token shared by the observe request and its notifications.
func (o *Observation) Token() message.Token {
	return o.token
}

// Response returns the response that established the observation.
func (o *Observation) Response() *Response {
	return o.response
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Done is closed when no more notifications will be delivered.
func (o *Observation) Done() <-chan struct{} {
	if o.sub == nil {
		return closedChan
	}
	return o.sub.Done()
}

// Canceled reports whether the observation ended.
func (o *Observation) Canceled() bool {
	select {
	case <-o.Done():
		return true
	default:
		return false
	}
}

// Cancel stops the observation on the server and locally. It must not be called from the handler.
func (o *Observation) Cancel(ctx context.Context) error {
	return o.client.StopObservation(ctx, o)
}

func (c *Client) observeMessage(req Request, token message.Token, observe uint32) (*message.Message, error) {
	req.Method = codes.GET
	msg, err := req.toMessage()
	if err != nil {
		return nil, err
	}
	msg.Token = token
	msg.Options = msg.Options.SetObserve(observe)
	return msg, nil
}

// Observe subscribes to changes of the resource described by req, which is always sent as GET.
// handler is called with the notifications, in order, from a goroutine owned by the observation.
// When the server answers without an Observe option the resource is not observable: the returned
// observation is already done and only carries the response.
func (c *Client) Observe(ctx context.Context, req Request, handler func(*Response)) (*Observation, error) {
	token := c.tokens.Next()
	msg, err := c.observeMessage(req, token, observeRegister)
	if err != nil {
		return nil, err
	}
	resp, payload, err := c.roundTrip(ctx, msg)
	if err != nil {
		return nil, err
	}
	if !resp.Code.IsSuccess() {
		return nil, status.Errorf(resp, "cannot observe %v: unexpected response code %v", req.Options.URIPath, resp.Code)
	}
	o := &Observation{
		client:   c,
		token:    token,
		request:  req,
		response: toResponse(resp, payload),
	}
	seq, err := resp.Options.Observe()
	if err != nil {
		c.logger.Debug("resource is not observable", zap.String("path", req.Options.URIPath))
		return o, nil
	}
	sub, err := c.registry.Register(token, c.notificationHandler(req, handler), observation.WithSequence(seq))
	if err != nil {
		return nil, err
	}
	o.sub = sub
	return o, nil
}

// notificationHandler completes block-wise notification bodies before passing them to handler.
func (c *Client) notificationHandler(req Request, handler func(*Response)) observation.HandlerFunc {
	return func(msg *message.Message) {
		payload := msg.Payload
		if blockwise.IsBlockTransfer(msg) {
			// remaining blocks are plain GETs under a new token
			follow, err := c.observeMessage(req, c.tokens.Next(), observeRegister)
			if err != nil {
				c.logger.Warn("cannot complete notification", zap.Stringer("token", msg.Token), zap.Error(err))
				return
			}
			payload, err = c.reassembler.ReceiveFullPayload(c.ctx, follow, msg, c.do)
			if err != nil {
				c.logger.Warn("cannot complete notification", zap.Stringer("token", msg.Token), zap.Error(err))
				return
			}
		}
		handler(toResponse(msg, payload))
	}
}

// StopObservation asks the server to end o and removes it locally, even when the request fails.
// When it returns the handler of o is not running and will not be called again, so it must not
// be called from the handler.
func (c *Client) StopObservation(ctx context.Context, o *Observation) error {
	if o.sub == nil {
		return nil
	}
	defer func() {
		c.registry.Deregister(o.token)
		<-o.sub.Done()
	}()
	msg, err := c.observeMessage(o.request, o.token, observeDeregister)
	if err != nil {
		return err
	}
	resp, err := c.limit.Do(ctx, msg)
	if err != nil {
		return fmt.Errorf("cannot stop observation %v: %w", o.token, err)
	}
	if !resp.Code.IsSuccess() {
		return status.Errorf(resp, "cannot stop observation %v: unexpected response code %v", o.token, resp.Code)
	}
	return nil
}
