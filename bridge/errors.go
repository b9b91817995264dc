// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"fmt"
)

// ErrChannelClosed is returned for calls made after teardown began and
// delivered to every call still pending when it did. When teardown was
// caused by a transport failure or a peer exit, the delivered error
// wraps both ErrChannelClosed and the cause.
var ErrChannelClosed = errors.New("bridge: channel closed")

// ErrCallPending is returned by Call.Result before the call resolves.
var ErrCallPending = errors.New("bridge: call still pending")

// errPeerExited is the teardown cause when the peer sends an exit
// envelope.
var errPeerExited = errors.New("peer sent exit signal")

// TransportError reports a failure to move bytes across the boundary.
// It affects only the call that hit it.
type TransportError struct {
	// Op is the transport operation that failed ("transmit").
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bridge: transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError describes traffic that violates the envelope protocol:
// undecodable frames or payloads, unknown discriminators, responses for
// correlation ids that are not pending. The bridge logs these and
// keeps running; Request returns one when a response payload cannot be
// decoded.
type ProtocolError struct {
	Reason        string
	CorrelationID uint64
	Err           error
}

func (e *ProtocolError) Error() string {
	message := "bridge: protocol error: " + e.Reason
	if e.CorrelationID != 0 {
		message += fmt.Sprintf(" (correlation id %d)", e.CorrelationID)
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ApplicationError carries an error string the peer embedded in an
// otherwise successfully delivered response (a failed HTTP call, an
// engine-side validation failure).
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return "application error: " + e.Message
}
