package coder

import (
	"encoding/binary"
	"fmt"

	"github.com/plgd-dev/coapnet/message"
	"github.com/plgd-dev/coapnet/message/codes"
)

var DefaultCoder = new(Coder)

// Coder converts messages to and from the RFC 7252 datagram format.
type Coder struct{}

func (c *Coder) Encode(m message.Message) ([]byte, error) {
	/*
	     0                   1                   2                   3
	    0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	   |Ver| T |  TKL  |      Code     |          Message ID           |
	   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	   |   Token (if any, TKL bytes) ...
	   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	   |   Options (if any) ...
	   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	   |1 1 1 1 1 1 1 1|    Payload (if any) ...
	   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	*/
	if !message.ValidateType(m.Type) {
		return nil, fmt.Errorf("invalid Type(%v)", m.Type)
	}
	if len(m.Token) > message.MaxTokenSize {
		return nil, message.ErrInvalidTokenLen
	}
	buf := make([]byte, 4, 4+len(m.Token)+len(m.Payload)+1+16*len(m.Options))
	buf[0] = (1 << 6) | byte(m.Type)<<4 | byte(0xf&len(m.Token))
	buf[1] = byte(m.Code)
	binary.BigEndian.PutUint16(buf[2:], m.MessageID)
	buf = append(buf, m.Token...)

	buf, err := m.Options.AppendTo(buf)
	if err != nil {
		return nil, err
	}
	if len(m.Payload) > 0 {
		buf = append(buf, 0xff)
		buf = append(buf, m.Payload...)
	}
	return buf, nil
}

// Decode parses a datagram. The token, option values and payload of the result
// reference data.
func (c *Coder) Decode(data []byte) (*message.Message, error) {
	if len(data) < 4 {
		return nil, ErrMessageTruncated
	}

	if data[0]>>6 != 1 {
		return nil, ErrMessageInvalidVersion
	}

	typ := message.Type((data[0] >> 4) & 0x3)
	tokenLen := int(data[0] & 0xf)
	if tokenLen > message.MaxTokenSize {
		return nil, message.ErrInvalidTokenLen
	}

	code := codes.Code(data[1])
	messageID := binary.BigEndian.Uint16(data[2:4])
	if code == codes.Empty && len(data) > 4 {
		return nil, ErrMessageInvalidEmpty
	}
	data = data[4:]
	if len(data) < tokenLen {
		return nil, ErrMessageTruncated
	}
	token := data[:tokenLen]
	if len(token) == 0 {
		token = nil
	}
	data = data[tokenLen:]

	m := &message.Message{
		Code:      code,
		Token:     token,
		Type:      typ,
		MessageID: messageID,
	}
	proc, err := m.Options.Unmarshal(data, message.CoapOptionDefs)
	if err != nil {
		return nil, err
	}
	data = data[proc:]
	if len(data) > 0 {
		m.Payload = data
	}
	return m, nil
}
