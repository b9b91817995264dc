// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/bureau-foundation/corebridge/lib/message"
	"github.com/bureau-foundation/corebridge/lib/wire"
)

// handleRequest starts a handler goroutine for an inbound request.
// Requests that arrive once teardown has begun are refused with an
// error response so the peer's call still resolves.
func (b *Bridge) handleRequest(envelope wire.Envelope) {
	b.mu.Lock()
	if b.state != StateRunning {
		b.mu.Unlock()
		b.metrics.inbound(b.name, -1, outcomeRejected, 0)
		b.reply(envelope.CorrelationID, message.ErrorResponse("bridge shutting down"))
		return
	}
	b.handlers.Add(1)
	b.mu.Unlock()

	b.handlersRunning.Add(1)
	go func() {
		defer b.handlers.Done()
		defer b.handlersRunning.Add(-1)
		response := b.dispatch(b.handlerContext, envelope)
		b.reply(envelope.CorrelationID, response)
	}()
}

// dispatch decodes the request payload, routes it by discriminator,
// and runs the handler. It always produces a response.
func (b *Bridge) dispatch(ctx context.Context, envelope wire.Envelope) message.Response {
	request, err := message.UnmarshalRequest(envelope.Payload)
	if err != nil {
		b.protocolViolation("malformed_request", &ProtocolError{
			Reason:        "undecodable request payload",
			CorrelationID: envelope.CorrelationID,
			Err:           err,
		})
		b.metrics.inbound(b.name, -1, outcomeMalformed, 0)
		return message.ErrorResponse("malformed request: %v", err)
	}

	handler, found := b.registry.Lookup(request.Type)
	if !found {
		b.protocolViolation("unknown_request_type", &ProtocolError{
			Reason:        fmt.Sprintf("no handler for request type %d", request.Type),
			CorrelationID: envelope.CorrelationID,
		})
		b.metrics.inbound(b.name, request.Type, outcomeUnknownType, 0)
		return message.ErrorResponse("unknown request type %d", request.Type)
	}

	logger := b.logger.With("correlation_id", envelope.CorrelationID, "request_type", request.Type)
	logger.Debug("dispatching request", "body_bytes", len(request.Body))

	start := b.clock.Now()
	response, panicked := b.invoke(ctx, handler, request, logger)
	elapsed := b.clock.Now().Sub(start)

	switch {
	case panicked:
		b.metrics.inbound(b.name, request.Type, outcomePanic, elapsed)
	case response.Failed():
		logger.Debug("handler returned error", "error", response.Error, "elapsed", elapsed)
		b.metrics.inbound(b.name, request.Type, outcomeApplicationError, elapsed)
	default:
		logger.Debug("handler completed", "elapsed", elapsed)
		b.metrics.inbound(b.name, request.Type, outcomeOK, elapsed)
	}
	return response
}

// invoke runs handler, converting a panic into an error response.
func (b *Bridge) invoke(ctx context.Context, handler Handler, request message.Request, logger *slog.Logger) (response message.Response, panicked bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("request handler panicked",
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
			response = message.ErrorResponse("internal error in handler for request type %d", request.Type)
			panicked = true
		}
	}()
	return handler.Handle(ctx, request), false
}

// reply transmits a response envelope echoing correlationID. A
// response too large for the transport is replaced by an error
// response so the peer's call still resolves. Other failures are
// logged: the peer's call will be rejected by its own teardown.
func (b *Bridge) reply(correlationID uint64, response message.Response) {
	err := b.transmitResponse(correlationID, response)
	if errors.Is(err, wire.ErrFrameTooLarge) {
		b.logger.Warn("response too large, sending error instead",
			"correlation_id", correlationID,
			"body_bytes", len(response.Body),
			"error", err,
		)
		err = b.transmitResponse(correlationID, message.ErrorResponse("response too large: %v", err))
	}
	if err != nil {
		b.logger.Warn("response not delivered",
			"correlation_id", correlationID,
			"error", err,
		)
	}
}

func (b *Bridge) transmitResponse(correlationID uint64, response message.Response) error {
	return b.transport.Transmit(wire.Encode(wire.Envelope{
		Kind:          wire.KindResponse,
		CorrelationID: correlationID,
		Payload:       response.Marshal(),
	}))
}
