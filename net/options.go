package net

import "time"

type udpConnOptions struct {
	heartBeat time.Duration
}

var defaultUDPConnOptions = udpConnOptions{
	heartBeat: time.Millisecond * 200,
}

// A UDPOption sets options of a UDPConn.
type UDPOption interface {
	applyUDP(*udpConnOptions)
}

type HeartBeatOpt struct {
	heartBeat time.Duration
}

func (h HeartBeatOpt) applyUDP(o *udpConnOptions) {
	o.heartBeat = h.heartBeat
}

// WithHeartBeat sets how often blocked reads and writes check their context.
func WithHeartBeat(v time.Duration) HeartBeatOpt {
	return HeartBeatOpt{
		heartBeat: v,
	}
}
