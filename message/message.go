package message

import (
	"fmt"

	"github.com/plgd-dev/coapnet/message/codes"
)

// MaxTokenSize maximum of token size that can be used in message
const MaxTokenSize = 8

type Message struct {
	Token   Token
	Options Options
	Code    codes.Code
	Payload []byte

	MessageID uint16
	Type      Type
}

// IsEmptyAck reports whether the message is an empty acknowledgement announcing a separate response.
func (r *Message) IsEmptyAck() bool {
	return r.Type == Acknowledgement && r.Code == codes.Empty
}

// Clone returns a deep copy of the message.
func (r *Message) Clone() *Message {
	c := &Message{
		Code:      r.Code,
		Options:   r.Options.Clone(),
		MessageID: r.MessageID,
		Type:      r.Type,
	}
	if r.Token != nil {
		c.Token = append(Token(nil), r.Token...)
	}
	if r.Payload != nil {
		c.Payload = append([]byte(nil), r.Payload...)
	}
	return c
}

func (r *Message) String() string {
	if r == nil {
		return "nil"
	}
	buf := fmt.Sprintf("Code: %v, Token: %v", r.Code, r.Token)
	path, err := r.Options.Path()
	if err == nil {
		buf = fmt.Sprintf("%s, Path: %v", buf, path)
	}
	cf, err := r.Options.ContentFormat()
	if err == nil {
		buf = fmt.Sprintf("%s, ContentFormat: %v", buf, cf)
	}
	queries, err := r.Options.Queries()
	if err == nil {
		buf = fmt.Sprintf("%s, Queries: %+v", buf, queries)
	}
	buf = fmt.Sprintf("%s, Type: %v, MessageID: %v", buf, r.Type, r.MessageID)
	if len(r.Payload) > 0 {
		buf = fmt.Sprintf("%s, PayloadLen: %v", buf, len(r.Payload))
	}
	return buf
}
