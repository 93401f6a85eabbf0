package codes

import (
	"fmt"
)

// A Code is an unsigned 8-bit coap code: the 3 most significant bits hold the class,
// the remaining 5 bits the detail, i.e. class*32+detail.
type Code uint8

// Request method codes (class 0).
const (
	Empty  Code = 0
	GET    Code = 1
	POST   Code = 2
	PUT    Code = 3
	DELETE Code = 4
	FETCH  Code = 5
	PATCH  Code = 6
	IPATCH Code = 7
)

// Response codes.
const (
	Created                 Code = 65  // 2.01
	Deleted                 Code = 66  // 2.02
	Valid                   Code = 67  // 2.03
	Changed                 Code = 68  // 2.04
	Content                 Code = 69  // 2.05
	Continue                Code = 95  // 2.31
	BadRequest              Code = 128 // 4.00
	Unauthorized            Code = 129 // 4.01
	BadOption               Code = 130 // 4.02
	Forbidden               Code = 131 // 4.03
	NotFound                Code = 132 // 4.04
	MethodNotAllowed        Code = 133 // 4.05
	NotAcceptable           Code = 134 // 4.06
	RequestEntityIncomplete Code = 136 // 4.08
	Conflict                Code = 137 // 4.09
	PreconditionFailed      Code = 140 // 4.12
	RequestEntityTooLarge   Code = 141 // 4.13
	UnsupportedMediaType    Code = 143 // 4.15
	UnprocessableEntity     Code = 150 // 4.22
	TooManyRequests         Code = 157 // 4.29
	InternalServerError     Code = 160 // 5.00
	NotImplemented          Code = 161 // 5.01
	BadGateway              Code = 162 // 5.02
	ServiceUnavailable      Code = 163 // 5.03
	GatewayTimeout          Code = 164 // 5.04
	ProxyingNotSupported    Code = 165 // 5.05
)

// ToCode composes a code from its class and detail.
func ToCode(class, detail uint8) (Code, error) {
	if class > 7 {
		return Empty, fmt.Errorf("invalid class(%v)", class)
	}
	if detail > 31 {
		return Empty, fmt.Errorf("invalid detail(%v)", detail)
	}
	return Code(class<<5 | detail), nil
}

// Class returns the class part of the code.
func (c Code) Class() uint8 {
	return uint8(c) >> 5
}

// Detail returns the detail part of the code.
func (c Code) Detail() uint8 {
	return uint8(c) & 0x1f
}

// IsRequest reports whether c is a request method.
func (c Code) IsRequest() bool {
	return c.Class() == 0 && c != Empty
}

// IsSuccess reports whether c is a 2.xx response code.
func (c Code) IsSuccess() bool {
	return c.Class() == 2
}

// Dotted formats the code as "class.detail", e.g. "2.05".
func (c Code) Dotted() string {
	return fmt.Sprintf("%d.%02d", c.Class(), c.Detail())
}
