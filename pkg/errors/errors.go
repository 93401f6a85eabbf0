// Package errors defines the error kinds reported by the client engine.
// Callers match them with errors.Is; the engine wraps them with context.
package errors

import "errors"

var (
	// ErrKeyAlreadyExists is returned when a message id or a token is already in use.
	ErrKeyAlreadyExists = errors.New("key already exists")

	// ErrConnectFailure is returned when the transport cannot be established.
	ErrConnectFailure = errors.New("cannot connect")

	// ErrRequestTimeout is returned when no matching reply arrived within the communication timeout.
	// The request may be retried.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrTransportFault is delivered to every pending exchange when the receive loop fails.
	ErrTransportFault = errors.New("transport fault")

	// ErrProtocolViolation reports a malformed or out of sequence exchange, e.g. a broken block-wise transfer.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrReset is returned when the server rejected a request with a Reset message.
	ErrReset = errors.New("request was reset by peer")

	// ErrNotConnected is returned when an operation needs a connected client.
	ErrNotConnected = errors.New("client is not connected")

	// ErrClosed is returned when the client was already closed.
	ErrClosed = errors.New("client is closed")
)
