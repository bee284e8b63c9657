package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelNotReady is returned when sending on a channel that is not open.
	ErrChannelNotReady = errors.New("channel not ready")

	// ErrInvalidSender is returned for a sender other than alice or bob.
	ErrInvalidSender = errors.New("sender must be alice or bob")

	// ErrNoSession indicates that an operation needs an active session context.
	ErrNoSession = errors.New("no active session; run a key exchange first")

	// ErrHandshakeInProgress is returned when a key exchange is submitted
	// while another is still running.
	ErrHandshakeInProgress = errors.New("key exchange already in progress")

	// ErrNotOnKeyExchange is returned when a key exchange is submitted from
	// any screen other than the key-exchange one.
	ErrNotOnKeyExchange = errors.New("key exchange can only be submitted from the key-exchange screen")
)

// TransportError reports that a request could not complete, or that a
// channel could not be established or was dropped.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "transport: " + e.Op
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HandshakeError reports a key exchange that failed before producing a
// usable session: a transport failure, or a response without a session id.
type HandshakeError struct {
	Reason string
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Err == nil {
		return "key exchange failed: " + e.Reason
	}
	return fmt.Sprintf("key exchange failed: %s: %v", e.Reason, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// ProtocolFailure reports a handshake that ran to completion but did not
// establish a key, for example because the QBER exceeded the threshold.
// Reason is the backend's failure_reason, verbatim.
type ProtocolFailure struct {
	Reason string
	Report *SecurityReport
}

func (e *ProtocolFailure) Error() string {
	if e.Reason == "" {
		return "protocol failure"
	}
	return "protocol failure: " + e.Reason
}

// MalformedEventError reports an inbound channel frame that could not be
// decoded. The frame is dropped; the channel stays open.
type MalformedEventError struct {
	Raw []byte
	Err error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event (%d bytes): %v", len(e.Raw), e.Err)
}

func (e *MalformedEventError) Unwrap() error { return e.Err }
