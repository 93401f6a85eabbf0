package status

import (
	"errors"
	"fmt"

	"github.com/plgd-dev/coapnet/message"
	"github.com/plgd-dev/coapnet/message/codes"
)

// Status is an error carrying the response that caused it.
type Status struct {
	err error
	msg *message.Message
}

func (se Status) Error() string {
	return fmt.Sprintf("coap error: code = %v desc = %v", se.Code(), se.err)
}

func (se Status) Unwrap() error {
	return se.err
}

// Code returns the status code of the carried message, codes.Empty if there is none.
func (se Status) Code() codes.Code {
	if se.msg != nil {
		return se.msg.Code
	}
	return codes.Empty
}

// Message returns the carried message.
func (se Status) Message() *message.Message {
	return se.msg
}

// Error returns a Status wrapping err and carrying msg.
func Error(msg *message.Message, err error) Status {
	return Status{
		msg: msg,
		err: err,
	}
}

// Errorf returns Error(msg, fmt.Errorf(format, a...)).
func Errorf(msg *message.Message, format string, a ...interface{}) Status {
	return Error(msg, fmt.Errorf(format, a...))
}

// FromError returns the Status found in the chain of err.
func FromError(err error) (Status, bool) {
	var s Status
	if errors.As(err, &s) {
		return s, true
	}
	return Status{err: err}, false
}

// Code returns the status code of err, codes.Empty if err carries no Status.
func Code(err error) codes.Code {
	s, _ := FromError(err)
	return s.Code()
}
