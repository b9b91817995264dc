// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/bureau-foundation/corebridge/lib/codec"
	"github.com/bureau-foundation/corebridge/lib/service"
	"github.com/bureau-foundation/corebridge/lib/version"
	"github.com/bureau-foundation/corebridge/transport"
)

// fetchTimeout bounds a control-socket fetch end to end.
const fetchTimeout = 60 * time.Second

// requireSameUser refuses control connections from processes running
// as another user. Where peer credentials are unavailable the socket's
// owner-only mode is the only check.
func requireSameUser(conn net.Conn) error {
	credentials, err := transport.PeerCredentials(conn)
	if errors.Is(err, transport.ErrPeerCredentialsUnsupported) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading peer credentials: %w", err)
	}
	if int(credentials.UID) != os.Getuid() {
		return fmt.Errorf("peer uid %d (pid %d) is not the daemon user", credentials.UID, credentials.PID)
	}
	return nil
}

// statusResult is the "status" action's response.
type statusResult struct {
	State            string        `cbor:"state" json:"state"`
	EngineVersion    string        `cbor:"engine_version" json:"engine_version"`
	PendingCalls     int           `cbor:"pending_calls" json:"pending_calls"`
	OldestPending    time.Duration `cbor:"oldest_pending" json:"oldest_pending"`
	HandlersInFlight int64         `cbor:"handlers_in_flight" json:"handlers_in_flight"`
	NextCorrelation  uint64        `cbor:"next_correlation" json:"next_correlation"`
	Uptime           time.Duration `cbor:"uptime" json:"uptime"`
}

// versionResult is the "version" action's response.
type versionResult struct {
	Daemon string `cbor:"daemon" json:"daemon"`
	Engine string `cbor:"engine" json:"engine"`
}

type fetchRequest struct {
	URL string `cbor:"url"`
}

// fetchResult is the "fetch" action's response.
type fetchResult struct {
	Code int32  `cbor:"code" json:"code"`
	Body []byte `cbor:"body" json:"body"`
}

func (d *daemon) registerActions(server *service.SocketServer) {
	server.Handle("status", d.handleStatus)
	server.Handle("version", d.handleVersion)
	server.Handle("fetch", d.handleFetch)
}

func (d *daemon) handleStatus(ctx context.Context, raw []byte) (any, error) {
	snapshot := d.bridge.Snapshot()
	return statusResult{
		State:            snapshot.State.String(),
		EngineVersion:    d.engineVersion.String(),
		PendingCalls:     snapshot.PendingCalls,
		OldestPending:    snapshot.OldestPending,
		HandlersInFlight: snapshot.HandlersInFlight,
		NextCorrelation:  snapshot.NextCorrelation,
		Uptime:           d.clock.Now().Sub(d.startedAt),
	}, nil
}

// handleVersion asks the engine again rather than returning the
// startup value, so it doubles as a liveness check.
func (d *daemon) handleVersion(ctx context.Context, raw []byte) (any, error) {
	engineVersion, err := d.core.Version(ctx)
	if err != nil {
		return nil, err
	}
	return versionResult{Daemon: version.Info(), Engine: engineVersion.String()}, nil
}

func (d *daemon) handleFetch(ctx context.Context, raw []byte) (any, error) {
	var request fetchRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, err
	}
	if request.URL == "" {
		return nil, errors.New("missing required field: url")
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	response, err := d.core.Fetch(ctx, request.URL)
	if err != nil {
		return nil, err
	}
	return fetchResult{Code: response.Code, Body: response.Body}, nil
}
