package net

import "errors"

var (
	ErrConnectionIsClosed = errors.New("connection is closed")
	ErrWriteInterrupted   = errors.New("only part data was written to socket")
)
