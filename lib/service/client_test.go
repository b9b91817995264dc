// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/corebridge/lib/codec"
	"github.com/bureau-foundation/corebridge/lib/testutil"
)

func TestClientCallWithoutServer(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "absent.sock")
	err := NewServiceClient(socketPath).Call(context.Background(), "status", nil, nil)
	if err == nil {
		t.Fatal("Call to a missing socket succeeded")
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		t.Fatalf("connection failure reported as ServiceError: %v", err)
	}
}

func TestClientActionOverridesField(t *testing.T) {
	server, socketPath := newTestServer(t)
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		var request map[string]any
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return request, nil
	})
	startServer(t, server)

	fields := map[string]any{"action": "spoofed", "verbose": true}
	var echoed map[string]any
	if err := NewServiceClient(socketPath).Call(context.Background(), "status", fields, &echoed); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if echoed["action"] != "status" {
		t.Fatalf("action = %v, want status", echoed["action"])
	}
	if echoed["verbose"] != true {
		t.Fatalf("verbose = %v, want true", echoed["verbose"])
	}
	if fields["action"] != "spoofed" {
		t.Fatal("Call mutated the caller's fields map")
	}
}

func TestClientCallHonorsCancellation(t *testing.T) {
	server, socketPath := newTestServer(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	server.Handle("slow", func(ctx context.Context, raw []byte) (any, error) {
		close(entered)
		<-release
		return nil, nil
	})
	startServer(t, server)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- NewServiceClient(socketPath).Call(ctx, "slow", nil, nil) }()

	testutil.RequireClosed(t, entered, 5*time.Second, "handler entered")
	cancel()
	err := testutil.RequireReceive(t, result, 5*time.Second, "Call to return")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Call error = %v, want context.Canceled", err)
	}
}

func TestServiceErrorMessage(t *testing.T) {
	err := &ServiceError{Action: "fetch", Message: "engine not connected"}
	if got, want := err.Error(), `service error on "fetch": engine not connected`; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
