// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/corebridge/lib/codec"
)

// ActionFunc processes a socket request for a specific action. The raw
// parameter is the full CBOR request (including the "action" field).
// The handler decodes action-specific fields from this raw message.
//
// Return a value to include in the success response, or an error for
// a failure response. If the returned value is nil, the response
// contains only {ok: true}. If non-nil, the value is marshaled as
// CBOR and placed in the response's "data" field.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// Response is the wire-format envelope for all socket protocol
// responses. Handlers return a result value (or nil) and an error;
// the server wraps these into a Response before encoding.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// SocketServer serves a CBOR request-response protocol on a Unix
// socket. Each connection handles exactly one request-response cycle:
// the client writes a CBOR value, the server processes it and writes
// a CBOR response, then the connection closes.
//
// Actions are registered with Handle before calling Serve. Unknown
// actions receive an error response.
type SocketServer struct {
	socketPath string
	handlers   map[string]ActionFunc
	logger     *slog.Logger

	// authorize, when set, vets each connection before its action
	// runs.
	authorize func(net.Conn) error

	// ready is closed once the socket is accepting connections.
	ready chan struct{}

	// activeConnections tracks in-flight request handlers for graceful
	// shutdown. Serve waits for all active connections to complete
	// before returning.
	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server that will listen on socketPath.
// Register actions with Handle before calling Serve.
func NewSocketServer(socketPath string, logger *slog.Logger) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// Ready is closed once Serve is accepting connections.
func (s *SocketServer) Ready() <-chan struct{} {
	return s.ready
}

// Authorize installs a check run on every connection before its
// action is dispatched. A non-nil error refuses the connection with a
// "permission denied" response. Call before Serve.
func (s *SocketServer) Authorize(check func(net.Conn) error) {
	s.authorize = check
}

// Handle registers a handler for the given action name. Panics if
// called after Serve has started or if the action is already
// registered.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// Serve starts accepting connections on the Unix socket and dispatches
// requests to registered action handlers. Blocks until ctx is
// cancelled, then stops accepting new connections and waits for active
// handlers to complete.
//
// Any existing socket file at the configured path is removed before
// listening. The socket file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	// The control socket can drive outbound HTTP; keep it owner-only.
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		return fmt.Errorf("restricting socket permissions: %w", err)
	}

	// Unblock Accept when the context is cancelled.
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	s.logger.Info("control socket listening", "path", s.socketPath)
	close(s.ready)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

const (
	// readTimeout bounds how long a client may take to send its request.
	readTimeout = 30 * time.Second

	// writeTimeout bounds writing the response.
	writeTimeout = 10 * time.Second

	// maxRequestSize bounds one request. Control requests are a few
	// short strings.
	maxRequestSize = 64 * 1024
)

// requestHeader is the part of every request the server routes on.
type requestHeader struct {
	Action string `cbor:"action"`
}

// handleConnection serves one request and closes conn.
func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	raw, action, err := readRequest(conn)
	switch {
	case errors.Is(err, io.EOF):
		return
	case err != nil:
		s.respond(conn, Response{Error: err.Error()})
		return
	}

	if s.authorize != nil {
		if err := s.authorize(conn); err != nil {
			s.logger.Warn("control request refused", "action", action, "error", err)
			s.respond(conn, Response{Error: "permission denied"})
			return
		}
	}

	handler, exists := s.handlers[action]
	if !exists {
		s.respond(conn, Response{Error: fmt.Sprintf("unknown action %q", action)})
		return
	}

	result, err := s.invoke(ctx, action, handler, raw)
	if err != nil {
		s.logger.Debug("action failed", "action", action, "error", err)
		s.respond(conn, Response{Error: err.Error()})
		return
	}

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.respond(conn, Response{Error: fmt.Sprintf("internal: encoding %q result: %v", action, err)})
			return
		}
		response.Data = data
	}
	s.respond(conn, response)
}

// readRequest decodes one CBOR value from conn and extracts its action.
// A client that connects and sends nothing yields io.EOF.
func readRequest(conn net.Conn) (codec.RawMessage, string, error) {
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, "", io.EOF
		}
		return nil, "", fmt.Errorf("invalid request: %v", err)
	}

	var header requestHeader
	if err := codec.Unmarshal(raw, &header); err != nil {
		return nil, "", fmt.Errorf("invalid request: %v", err)
	}
	if header.Action == "" {
		return nil, "", errors.New("missing required field: action")
	}
	return raw, header.Action, nil
}

// invoke runs handler, converting a panic into an error response so
// one bad request cannot take the daemon down.
func (s *SocketServer) invoke(ctx context.Context, action string, handler ActionFunc, raw []byte) (result any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("action handler panicked",
				"action", action,
				"panic", recovered,
			)
			result, err = nil, fmt.Errorf("internal error handling %q", action)
		}
	}()
	return handler(ctx, raw)
}

// respond writes response. Write failures only get a Debug line: the
// connection is closing either way.
func (s *SocketServer) respond(conn net.Conn, response Response) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("writing control response", "ok", response.OK, "error", err)
	}
}
