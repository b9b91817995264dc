// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/corebridge/lib/clock"
	"github.com/bureau-foundation/corebridge/lib/message"
	"github.com/bureau-foundation/corebridge/lib/wire"
	"github.com/bureau-foundation/corebridge/transport"
)

// State is a position in the bridge lifecycle.
type State int32

const (
	StateUninitialized State = iota
	StateRunning
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Config configures a Bridge.
type Config struct {
	// Name identifies the bridge in logs and metric labels ("host",
	// "engine"). Defaults to "bridge".
	Name string

	// Transport carries frames to and from the peer. Required. The
	// bridge binds it in New and closes it during teardown; callers
	// must not use it afterwards.
	Transport transport.Transport

	// Registry routes inbound requests. Nil means no handlers: every
	// inbound request is answered with an error response.
	Registry *Registry

	// OnNotification receives the payload of each notification
	// envelope. It runs on the transport's delivery goroutine and must
	// not block. Optional.
	OnNotification func(payload []byte)

	// Logger receives structured log output. If nil, slog.Default()
	// is used. Per-message events are logged at Debug, lifecycle at
	// Info, protocol violations at Warn.
	Logger *slog.Logger

	// Clock timestamps pending calls. Defaults to clock.Real().
	Clock clock.Clock

	// Metrics receives counters and gauges. Optional.
	Metrics *Metrics

	// StaleCallThreshold enables a watchdog that logs, once per
	// threshold interval, the pending calls older than the threshold.
	// The watchdog never cancels anything; timeouts are the caller's
	// business. Zero disables it.
	StaleCallThreshold time.Duration
}

// Bridge is one side of the request/response channel. See the package
// documentation for the protocol.
type Bridge struct {
	name           string
	transport      transport.Transport
	registry       *Registry
	onNotification func(payload []byte)
	logger         *slog.Logger
	clock          clock.Clock
	metrics        *Metrics

	pending *pendingTable
	nextID  atomic.Uint64

	// mu guards state. handleRequest holds it while adding to
	// handlers so that no handler starts after teardown began waiting.
	mu    sync.Mutex
	state State

	handlerContext  context.Context
	cancelHandlers  context.CancelFunc
	handlers        sync.WaitGroup
	handlersRunning atomic.Int64

	stopWatchdog chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	closeErr     error
}

// New creates a Bridge and binds it to config.Transport. On return the
// bridge is Running: inbound requests are dispatched and Send works.
func New(config Config) (*Bridge, error) {
	if config.Transport == nil {
		return nil, fmt.Errorf("bridge: Transport is required")
	}

	name := config.Name
	if name == "" {
		name = "bridge"
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	handlerContext, cancelHandlers := context.WithCancel(context.Background())
	b := &Bridge{
		name:           name,
		transport:      config.Transport,
		registry:       config.Registry,
		onNotification: config.OnNotification,
		logger:         logger.With("bridge", name),
		clock:          clk,
		metrics:        config.Metrics,
		pending:        newPendingTable(),
		state:          StateUninitialized,
		handlerContext: handlerContext,
		cancelHandlers: cancelHandlers,
		stopWatchdog:   make(chan struct{}),
		done:           make(chan struct{}),
	}

	// The state must be Running before Bind: a transport may deliver
	// frames as soon as it is bound.
	b.setState(StateRunning)
	if err := b.transport.Bind(&receiver{bridge: b}); err != nil {
		cancelHandlers()
		b.setState(StateClosed)
		close(b.done)
		return nil, fmt.Errorf("bridge: binding transport: %w", err)
	}

	if config.StaleCallThreshold > 0 {
		go b.watchStaleCalls(config.StaleCallThreshold)
	}

	b.logger.Info("bridge running", "handlers", b.registry.Types())
	return b, nil
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) setState(state State) {
	b.mu.Lock()
	b.state = state
	b.mu.Unlock()
}

// Done returns a channel closed when the bridge reaches StateClosed.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Send transmits payload as a request and returns its eventual result
// without waiting for the peer. Fails fast with ErrChannelClosed once
// teardown has begun, or with a *TransportError if the transport
// rejects the frame; in both cases no call remains pending.
func (b *Bridge) Send(payload []byte) (*Call, error) {
	if b.State() != StateRunning {
		return nil, ErrChannelClosed
	}

	id := b.nextID.Add(1)
	call, err := b.pending.register(id, b.clock.Now())
	if err != nil {
		return nil, err
	}
	b.metrics.setPending(b.name, b.pending.len())

	frame := wire.Encode(wire.Envelope{
		Kind:          wire.KindRequest,
		CorrelationID: id,
		Payload:       payload,
	})
	if err := b.transport.Transmit(frame); err != nil {
		// A concurrent teardown may already have taken the call; in
		// that case the caller still gets the transmit failure.
		b.pending.take(id)
		b.metrics.setPending(b.name, b.pending.len())
		if b.State() != StateRunning {
			return nil, fmt.Errorf("%w: %w", ErrChannelClosed, err)
		}
		b.metrics.outbound(b.name, outcomeTransportError, 1)
		return nil, &TransportError{Op: "transmit", Err: err}
	}

	b.logger.Debug("request sent", "correlation_id", id, "payload_bytes", len(payload))
	return call, nil
}

// Request sends a typed request and waits for its response. A
// response carrying an error string is returned together with an
// *ApplicationError. An undecodable response payload yields a
// *ProtocolError. Cancelling ctx abandons the wait only.
func (b *Bridge) Request(ctx context.Context, request message.Request) (message.Response, error) {
	call, err := b.Send(request.Marshal())
	if err != nil {
		return message.Response{}, err
	}

	payload, err := call.Wait(ctx)
	if err != nil {
		return message.Response{}, err
	}

	response, err := message.UnmarshalResponse(payload)
	if err != nil {
		return message.Response{}, &ProtocolError{
			Reason:        "undecodable response payload",
			CorrelationID: call.ID(),
			Err:           err,
		}
	}
	if response.Failed() {
		return response, &ApplicationError{Message: response.Error}
	}
	return response, nil
}

// Notify sends a fire-and-forget notification to the peer.
func (b *Bridge) Notify(payload []byte) error {
	if b.State() != StateRunning {
		return ErrChannelClosed
	}
	frame := wire.Encode(wire.Envelope{Kind: wire.KindNotification, Payload: payload})
	if err := b.transport.Transmit(frame); err != nil {
		return &TransportError{Op: "transmit", Err: err}
	}
	return nil
}

// Close is the explicit exit signal. It rejects all pending calls with
// ErrChannelClosed, cancels and drains in-flight handlers, notifies
// the peer, and closes the transport. Returns the transport's close
// error. Safe to call more than once and concurrently with a teardown
// already in progress; every caller returns once the bridge is Closed.
//
// Teardown waits for request handlers and the notification callback
// to return, so when called from inside one, Close starts teardown
// and returns nil immediately. Done reports when it finishes.
func (b *Bridge) Close() error {
	if inCallback() {
		go b.shutdown(nil, true)
		return nil
	}
	b.shutdown(nil, true)
	<-b.done
	return b.closeErr
}

// Snapshot is a point-in-time view of a bridge for status reporting.
type Snapshot struct {
	Name             string
	State            State
	PendingCalls     int
	OldestPending    time.Duration
	HandlersInFlight int64
	NextCorrelation  uint64
}

// Snapshot reports the bridge's current state.
func (b *Bridge) Snapshot() Snapshot {
	now := b.clock.Now()
	count, oldest := b.pending.stale(now)
	snapshot := Snapshot{
		Name:             b.name,
		State:            b.State(),
		PendingCalls:     count,
		HandlersInFlight: b.handlersRunning.Load(),
		NextCorrelation:  b.nextID.Load() + 1,
	}
	if !oldest.IsZero() {
		snapshot.OldestPending = now.Sub(oldest)
	}
	return snapshot
}

// shutdown runs teardown once. cause is nil for an explicit Close;
// notifyPeer controls whether an exit envelope is sent.
func (b *Bridge) shutdown(cause error, notifyPeer bool) {
	b.shutdownOnce.Do(func() {
		b.setState(StateShuttingDown)
		if cause != nil {
			b.logger.Warn("bridge shutting down", "cause", cause)
		} else {
			b.logger.Info("bridge shutting down")
		}

		closedErr := ErrChannelClosed
		if cause != nil {
			closedErr = fmt.Errorf("%w: %w", ErrChannelClosed, cause)
		}
		calls := b.pending.closeAll()
		for _, call := range calls {
			call.resolve(nil, closedErr)
		}
		b.metrics.outbound(b.name, outcomeClosed, len(calls))
		b.metrics.setPending(b.name, 0)
		if len(calls) > 0 {
			b.logger.Info("rejected pending calls", "count", len(calls))
		}

		close(b.stopWatchdog)
		b.cancelHandlers()
		b.handlers.Wait()

		if notifyPeer {
			exitFrame := wire.Encode(wire.Envelope{Kind: wire.KindExit})
			if err := b.transport.Transmit(exitFrame); err != nil {
				b.logger.Debug("exit signal not delivered", "error", err)
			}
		}

		b.closeErr = b.transport.Close()
		b.setState(StateClosed)
		close(b.done)
		b.logger.Info("bridge closed")
	})
}

// watchStaleCalls logs pending calls older than threshold.
func (b *Bridge) watchStaleCalls(threshold time.Duration) {
	ticker := b.clock.NewTicker(threshold)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopWatchdog:
			return
		case now := <-ticker.C:
			count, oldest := b.pending.stale(now.Add(-threshold))
			if count > 0 {
				b.logger.Warn("calls pending past threshold",
					"count", count,
					"threshold", threshold,
					"oldest_age", now.Sub(oldest),
				)
			}
		}
	}
}

// receiver adapts the bridge to transport.Receiver without exporting
// the callback methods on Bridge itself.
type receiver struct {
	bridge *Bridge
}

// Receive routes one frame by envelope kind: responses resolve pending
// calls, requests go to the dispatcher.
func (r *receiver) Receive(frame []byte) {
	b := r.bridge
	envelope, err := wire.Decode(frame)
	if err != nil {
		b.protocolViolation("malformed_envelope", &ProtocolError{Reason: "undecodable envelope", Err: err})
		return
	}

	switch envelope.Kind {
	case wire.KindResponse:
		b.handleResponse(envelope)
	case wire.KindRequest:
		b.handleRequest(envelope)
	case wire.KindNotification:
		b.handleNotification(envelope)
	case wire.KindExit:
		b.logger.Info("peer sent exit signal")
		go b.shutdown(errPeerExited, false)
	}
}

// FrameDropped counts an inbound frame the transport discarded. The
// frame's correlation id is unknown, so a call it answered stays
// pending on this side until its caller gives up.
func (r *receiver) FrameDropped(err error) {
	r.bridge.protocolViolation("oversized_frame", &ProtocolError{Reason: "inbound frame dropped", Err: err})
}

// TransportFailed starts teardown. It runs asynchronously because the
// transport typically reports from the goroutine that Close waits on.
func (r *receiver) TransportFailed(err error) {
	if err == nil {
		err = errors.New("transport failed")
	}
	go r.bridge.shutdown(err, false)
}

func (b *Bridge) handleResponse(envelope wire.Envelope) {
	call := b.pending.take(envelope.CorrelationID)
	if call == nil {
		if b.State() != StateRunning {
			b.logger.Debug("response after teardown dropped", "correlation_id", envelope.CorrelationID)
			return
		}
		b.protocolViolation("unmatched_correlation_id", &ProtocolError{
			Reason:        "response for a correlation id that is not pending",
			CorrelationID: envelope.CorrelationID,
		})
		return
	}
	b.metrics.setPending(b.name, b.pending.len())
	b.metrics.outbound(b.name, outcomeOK, 1)

	b.logger.Debug("response received",
		"correlation_id", envelope.CorrelationID,
		"payload_bytes", len(envelope.Payload),
		"latency", b.clock.Now().Sub(call.CreatedAt()),
	)
	call.resolve(envelope.Payload, nil)
}

func (b *Bridge) handleNotification(envelope wire.Envelope) {
	if b.onNotification == nil {
		b.logger.Debug("notification dropped, no callback", "payload_bytes", len(envelope.Payload))
		return
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			b.logger.Error("notification callback panicked", "panic", recovered)
		}
	}()
	b.onNotification(envelope.Payload)
}

// protocolViolation logs and counts a ProtocolError. The channel keeps
// running.
func (b *Bridge) protocolViolation(reason string, err *ProtocolError) {
	b.metrics.protocolError(b.name, reason)
	b.logger.Warn("protocol violation", "reason", reason, "error", err)
}
