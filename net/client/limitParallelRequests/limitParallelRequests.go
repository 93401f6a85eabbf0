package limitparallelrequests

import (
	"context"
	"fmt"
	"hash/crc64"
	"math"

	"github.com/plgd-dev/coapnet/message"
	coapSync "github.com/plgd-dev/coapnet/pkg/sync"
	"golang.org/x/sync/semaphore"
)

type DoFunc = func(ctx context.Context, req *message.Message) (*message.Message, error)

type endpointQueue struct {
	processedCounter int64
	orderedRequest   []chan struct{}
}

// LimitParallelRequests bounds the number of outstanding requests overall and per
// resource path. Requests waiting for the same path are served in arrival order.
type LimitParallelRequests struct {
	endpointLimit int64
	limit         *semaphore.Weighted
	do            DoFunc
	// key is the hash of the request path
	endpointQueues *coapSync.Map[uint64, *endpointQueue]
}

// New creates new LimitParallelRequests. When limit, endpointLimit <= 0, then limit is not used.
func New(limit, endpointLimit int64, do DoFunc) *LimitParallelRequests {
	if limit <= 0 {
		limit = math.MaxInt64
	}
	if endpointLimit <= 0 {
		endpointLimit = math.MaxInt64
	}
	return &LimitParallelRequests{
		limit:          semaphore.NewWeighted(limit),
		endpointLimit:  endpointLimit,
		do:             do,
		endpointQueues: coapSync.NewMap[uint64, *endpointQueue](),
	}
}

var crc64Table = crc64.MakeTable(crc64.ISO)

func hash(opts message.Options) uint64 {
	h := crc64.New(crc64Table)
	for _, opt := range opts {
		if opt.ID == message.URIPath {
			_, _ = h.Write(opt.Value) // hash never returns an error
			_, _ = h.Write([]byte{'/'})
		}
	}
	return h.Sum64()
}

func (c *LimitParallelRequests) acquireEndpoint(ctx context.Context, endpointLimitKey uint64) error {
	reqChan := make(chan struct{}) // channel is closed when request can be processed by releaseEndpoint
	_, _ = c.endpointQueues.ReplaceWithFunc(endpointLimitKey, func(value *endpointQueue, loaded bool) (*endpointQueue, bool) {
		if !loaded {
			close(reqChan)
			return &endpointQueue{processedCounter: 1}, false
		}
		if value.processedCounter < c.endpointLimit {
			close(reqChan)
			value.processedCounter++
			return value, false
		}
		value.orderedRequest = append(value.orderedRequest, reqChan)
		return value, false
	})
	select {
	case <-reqChan:
		return nil
	case <-ctx.Done():
	}
	granted := true
	_, _ = c.endpointQueues.ReplaceWithFunc(endpointLimitKey, func(value *endpointQueue, loaded bool) (*endpointQueue, bool) {
		if !loaded {
			return nil, true
		}
		for i, ch := range value.orderedRequest {
			if ch == reqChan {
				value.orderedRequest = append(value.orderedRequest[:i], value.orderedRequest[i+1:]...)
				granted = false
				break
			}
		}
		return value, false
	})
	if granted {
		c.releaseEndpoint(endpointLimitKey)
	}
	return ctx.Err()
}

func (c *LimitParallelRequests) releaseEndpoint(endpointLimitKey uint64) {
	_, _ = c.endpointQueues.ReplaceWithFunc(endpointLimitKey, func(oldValue *endpointQueue, oldLoaded bool) (*endpointQueue, bool) {
		if !oldLoaded {
			return nil, true
		}
		if len(oldValue.orderedRequest) > 0 {
			reqChan := oldValue.orderedRequest[0]
			oldValue.orderedRequest = oldValue.orderedRequest[1:]
			close(reqChan)
			return oldValue, false
		}
		oldValue.processedCounter--
		if oldValue.processedCounter == 0 {
			return nil, true
		}
		return oldValue, false
	})
}

func (c *LimitParallelRequests) Do(ctx context.Context, req *message.Message) (*message.Message, error) {
	endpointLimitKey := hash(req.Options)
	if err := c.acquireEndpoint(ctx, endpointLimitKey); err != nil {
		return nil, fmt.Errorf("cannot process request %v for client endpoint limit: %w", req, err)
	}
	defer c.releaseEndpoint(endpointLimitKey)
	if err := c.limit.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("cannot process request %v for client limit: %w", req, err)
	}
	defer c.limit.Release(1)
	return c.do(ctx, req)
}
