package client

import (
	"fmt"

	"github.com/plgd-dev/coapnet/message"
	"github.com/plgd-dev/coapnet/message/codes"
	"github.com/plgd-dev/coapnet/pkg/errors"
)

// RequestOptions is the URI shaped part of a request.
type RequestOptions struct {
	// URIHost and URIPort are only needed to reach virtual servers.
	URIHost       string
	URIPort       int
	URIPath       string
	URIQuery      []string
	ContentFormat *message.MediaType
	Accept        *message.MediaType
	// Block1 is a raw block option value.
	Block1 *uint32
}

type Request struct {
	Method  codes.Code
	Options RequestOptions
	Payload []byte
}

type Response struct {
	Code    codes.Code
	Options message.Options
	Payload []byte
}

func (r *Response) ContentFormat() (message.MediaType, error) {
	return r.Options.ContentFormat()
}

func (r *Response) String() string {
	return fmt.Sprintf("Code: %v, PayloadLen: %v", r.Code, len(r.Payload))
}

func toResponse(msg *message.Message, payload []byte) *Response {
	return &Response{
		Code:    msg.Code,
		Options: msg.Options,
		Payload: payload,
	}
}

func isSupportedMethod(c codes.Code) bool {
	switch c {
	case codes.GET, codes.POST, codes.PUT, codes.DELETE:
		return true
	}
	return false
}

// toMessage builds a confirmable message without message id and token.
func (r Request) toMessage() (*message.Message, error) {
	if !isSupportedMethod(r.Method) {
		return nil, fmt.Errorf("%w: unsupported method %v", errors.ErrProtocolViolation, r.Method)
	}
	msg := &message.Message{
		Type:    message.Confirmable,
		Code:    r.Method,
		Payload: r.Payload,
	}
	opts := r.Options
	if opts.URIHost != "" {
		msg.Options = msg.Options.SetString(message.URIHost, opts.URIHost)
	}
	if opts.URIPort > 0 {
		msg.Options = msg.Options.SetUint32(message.URIPort, uint32(opts.URIPort))
	}
	if opts.URIPath != "" {
		var err error
		msg.Options, err = msg.Options.SetPath(opts.URIPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path %v: %w", opts.URIPath, err)
		}
	}
	if opts.ContentFormat != nil {
		msg.Options = msg.Options.SetContentFormat(*opts.ContentFormat)
	}
	for _, q := range opts.URIQuery {
		msg.Options = msg.Options.AddString(message.URIQuery, q)
	}
	if opts.Accept != nil {
		msg.Options = msg.Options.SetUint32(message.Accept, uint32(*opts.Accept))
	}
	if opts.Block1 != nil {
		msg.Options = msg.Options.SetUint32(message.Block1, *opts.Block1)
	}
	return msg, nil
}
