package blockwise

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/alecthomas/units"
	"github.com/dsnet/golib/memfile"
	"github.com/plgd-dev/coapnet/message"
	"github.com/plgd-dev/coapnet/pkg/errors"
	"go.uber.org/zap"
)

// DefaultMaxPayloadSize bounds a reassembled body.
const DefaultMaxPayloadSize = int64(units.MiB)

// DoFunc sends a request and waits for its response.
type DoFunc = func(ctx context.Context, req *message.Message) (*message.Message, error)

type options struct {
	maxPayloadSize int64
	logger         *zap.Logger
}

type Option func(*options)

// WithMaxPayloadSize sets the maximum size of a reassembled body.
func WithMaxPayloadSize(size int64) Option {
	return func(o *options) {
		o.maxPayloadSize = size
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Reassembler pulls the remaining blocks of a Block2 response and joins them.
// Each transfer is strictly sequential, one block request is outstanding at a time.
type Reassembler struct {
	maxPayloadSize int64
	logger         *zap.Logger
}

func New(opts ...Option) *Reassembler {
	cfg := options{
		maxPayloadSize: DefaultMaxPayloadSize,
		logger:         zap.NewNop(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Reassembler{
		maxPayloadSize: cfg.maxPayloadSize,
		logger:         cfg.logger,
	}
}

// IsBlockTransfer reports whether resp carries a Block2 option with more blocks following.
func IsBlockTransfer(resp *message.Message) bool {
	v, err := resp.Options.GetUint32(message.Block2)
	if err != nil {
		return false
	}
	_, _, more, err := DecodeBlockOption(v)
	return err == nil && more
}

func violation(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %v", errors.ErrProtocolViolation, fmt.Sprintf(format, a...))
}

type block struct {
	szx  SZX
	num  int64
	more bool
}

func getBlock2(resp *message.Message) (block, error) {
	v, err := resp.Options.GetUint32(message.Block2)
	if err != nil {
		return block{}, violation("missing Block2 option")
	}
	szx, num, more, err := DecodeBlockOption(v)
	if err != nil {
		return block{}, violation("invalid Block2 option: %v", err)
	}
	if szx == SZXBERT {
		return block{}, violation("BERT blocks are not supported over UDP")
	}
	return block{szx: szx, num: num, more: more}, nil
}

type transfer struct {
	req     *message.Message
	token   message.Token
	current block
	etag    []byte
	payload *memfile.File
	size    int64
	max     int64
}

func (t *transfer) append(b block, data []byte) error {
	blockSize := b.szx.Size()
	if b.more && int64(len(data)) != blockSize {
		return violation("block %v has %v bytes, expected %v", b.num, len(data), blockSize)
	}
	if !b.more && int64(len(data)) > blockSize {
		return violation("last block %v has %v bytes, exceeds block size %v", b.num, len(data), blockSize)
	}
	offset := b.num * blockSize
	if offset+int64(len(data)) > t.max {
		return violation("payload exceeds maximum size %v", t.max)
	}
	if _, err := t.payload.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("cannot seek to offset(%v) of payload: %w", offset, err)
	}
	if _, err := t.payload.Write(data); err != nil {
		return fmt.Errorf("cannot write block to payload: %w", err)
	}
	t.size = offset + int64(len(data))
	t.current = b
	return nil
}

func (t *transfer) nextRequest() (*message.Message, error) {
	v, err := EncodeBlockOption(t.current.szx, t.current.num+1, false)
	if err != nil {
		return nil, violation("cannot request block %v: %v", t.current.num+1, err)
	}
	next := t.req.Clone()
	next.Token = t.token
	next.Payload = nil
	next.Options = next.Options.Remove(message.Observe).Remove(message.Block1).Remove(message.Size1).SetUint32(message.Block2, v)
	return next, nil
}

func (t *transfer) bytes() ([]byte, error) {
	if _, err := t.payload.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("cannot seek to start of payload: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(t.payload, t.size))
	if err != nil {
		return nil, fmt.Errorf("cannot read payload: %w", err)
	}
	return data, nil
}

// ReceiveFullPayload returns the whole body of resp, the first block of a Block2
// transfer answering req. The remaining blocks are requested through do with the
// token of req. On any error partial data is discarded.
func (r *Reassembler) ReceiveFullPayload(ctx context.Context, req, resp *message.Message, do DoFunc) ([]byte, error) {
	first, err := getBlock2(resp)
	if err != nil {
		return nil, err
	}
	if first.num != 0 {
		return nil, violation("transfer starts with block %v", first.num)
	}
	if size2, err := resp.Options.GetUint32(message.Size2); err == nil && int64(size2) > r.maxPayloadSize {
		return nil, violation("announced size %v exceeds maximum size %v", size2, r.maxPayloadSize)
	}
	etag, _ := resp.Options.ETag()
	t := transfer{
		req:     req,
		token:   req.Token,
		etag:    etag,
		payload: memfile.New(make([]byte, 0, first.szx.Size()*2)),
		max:     r.maxPayloadSize,
	}
	if err := t.append(first, resp.Payload); err != nil {
		return nil, err
	}
	for t.current.more {
		next, err := t.nextRequest()
		if err != nil {
			return nil, err
		}
		fresp, err := do(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("cannot get block %v: %w", t.current.num+1, err)
		}
		if !fresp.Code.IsSuccess() {
			return nil, violation("block %v answered with %v", t.current.num+1, fresp.Code)
		}
		b, err := getBlock2(fresp)
		if err != nil {
			return nil, err
		}
		if b.szx != t.current.szx {
			return nil, violation("block size changed from %v to %v", t.current.szx.Size(), b.szx.Size())
		}
		if b.num != t.current.num+1 {
			return nil, violation("expected block %v, got %v", t.current.num+1, b.num)
		}
		fetag, _ := fresp.Options.ETag()
		if !bytes.Equal(fetag, t.etag) {
			return nil, violation("ETag changed during transfer")
		}
		if err := t.append(b, fresp.Payload); err != nil {
			return nil, err
		}
		r.logger.Debug("block received", zap.Stringer("token", t.token), zap.Int64("num", b.num), zap.Bool("more", b.more))
	}
	return t.bytes()
}
