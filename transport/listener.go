// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/jpillora/backoff"
)

// Listener accepts engine connections on a stream socket and wraps
// each one as a SocketTransport.
type Listener struct {
	listener net.Listener
	config   SocketConfig
	network  string
	address  string
}

// Listen opens a listener. For "unix" networks a stale socket file at
// address is removed first.
func Listen(network, address string, config SocketConfig) (*Listener, error) {
	if network == "unix" {
		if err := os.Remove(address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale socket %s: %w", address, err)
		}
	}
	listener, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	return &Listener{
		listener: listener,
		config:   config,
		network:  network,
		address:  listener.Addr().String(),
	}, nil
}

// Accept waits for the next connection. Cancelling ctx closes the
// listener.
func (l *Listener) Accept(ctx context.Context) (*SocketTransport, error) {
	stop := context.AfterFunc(ctx, func() { l.listener.Close() })
	defer stop()

	conn, err := l.listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	logger := l.config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if credentials, err := PeerCredentials(conn); err == nil {
		logger.Info("peer connected",
			"pid", credentials.PID,
			"uid", credentials.UID,
			"gid", credentials.GID,
		)
	} else {
		logger.Info("peer connected", "remote", remoteName(conn))
	}
	return NewSocketTransport(conn, l.config), nil
}

// Address returns the listening address.
func (l *Listener) Address() string {
	return l.address
}

// Close stops the listener and, for Unix sockets, removes the socket
// file.
func (l *Listener) Close() error {
	err := l.listener.Close()
	if l.network == "unix" {
		os.Remove(l.address)
	}
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// DialConfig configures Dial.
type DialConfig struct {
	Socket SocketConfig

	// MinRetryInterval and MaxRetryInterval bound the exponential
	// backoff between attempts. Defaults 100ms and 5s.
	MinRetryInterval time.Duration
	MaxRetryInterval time.Duration

	// MaxAttempts stops retrying after this many failed attempts.
	// Zero retries until ctx is done.
	MaxAttempts int
}

// Dial connects to a listening peer, retrying with jittered
// exponential backoff so that an engine started before its host (or
// the reverse) converges without external coordination.
func Dial(ctx context.Context, network, address string, config DialConfig) (*SocketTransport, error) {
	logger := config.Socket.Logger
	if logger == nil {
		logger = slog.Default()
	}
	minInterval := config.MinRetryInterval
	if minInterval <= 0 {
		minInterval = 100 * time.Millisecond
	}
	maxInterval := config.MaxRetryInterval
	if maxInterval <= 0 {
		maxInterval = 5 * time.Second
	}
	retry := &backoff.Backoff{Min: minInterval, Max: maxInterval, Factor: 2, Jitter: true}

	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(ctx, network, address)
		if err == nil {
			return NewSocketTransport(conn, config.Socket), nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("dialing %s: %w", address, ctx.Err())
		}

		attempt := int(retry.Attempt()) + 1
		if config.MaxAttempts > 0 && attempt >= config.MaxAttempts {
			return nil, fmt.Errorf("dialing %s: giving up after %d attempts: %w", address, attempt, err)
		}
		delay := retry.Duration()
		logger.Debug("dial failed, retrying", "address", address, "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dialing %s: %w", address, ctx.Err())
		case <-timer.C:
		}
	}
}
