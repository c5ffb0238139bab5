package types

import "errors"

// Sentinel errors for every error kind spec'd for the overlay. Callers
// compare with errors.Is; wrapped errors add the offending detail.
var (
	// ErrValidation tags malformed CLI input. Fatal at startup.
	ErrValidation = errors.New("validation error")

	// ErrTransport tags any stream I/O failure, including a connection
	// closed while reading the length prefix and an incomplete payload.
	ErrTransport = errors.New("transport error")

	// ErrProtocolViolation tags an unexpected message variant at a given
	// protocol step.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrHandshakeExhausted tags an initiator that ran out of id-retry
	// attempts during handshake.
	ErrHandshakeExhausted = errors.New("handshake attempts exhausted")

	// ErrNoRoute tags a resolve failure: no route to the destination.
	ErrNoRoute = errors.New("no route to destination")

	// ErrConnectionLimit tags an accepted connection closed immediately
	// because the worker cap was already reached.
	ErrConnectionLimit = errors.New("connection limit reached")

	// ErrSelfSend tags a locally-issued send command naming the local id.
	ErrSelfSend = errors.New("refusing to send a message to self")
)
