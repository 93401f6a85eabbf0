package message

import "errors"

var (
	ErrTooSmall                     = errors.New("too small bytes buffer")
	ErrInvalidTokenLen              = errors.New("invalid token length")
	ErrOptionNotFound               = errors.New("option not found")
	ErrOptionTruncated              = errors.New("option truncated")
	ErrOptionUnexpectedExtendMarker = errors.New("option unexpected extend marker")
	ErrOptionGapTooLarge            = errors.New("option gap too large")
	ErrOptionsNotSorted             = errors.New("options are not sorted")
	ErrInvalidValueLength           = errors.New("invalid value length")
	ErrPayloadMarkerWithoutPayload  = errors.New("payload marker without payload")
)
