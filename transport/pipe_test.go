// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bureau-foundation/corebridge/lib/testutil"
)

// recordingReceiver forwards deliveries to channels.
type recordingReceiver struct {
	frames   chan []byte
	dropped  chan error
	failures chan error
}

func newRecordingReceiver() *recordingReceiver {
	return &recordingReceiver{
		frames:   make(chan []byte, 256),
		dropped:  make(chan error, 16),
		failures: make(chan error, 1),
	}
}

func (r *recordingReceiver) Receive(frame []byte) { r.frames <- frame }

func (r *recordingReceiver) FrameDropped(err error) { r.dropped <- err }

func (r *recordingReceiver) TransportFailed(err error) { r.failures <- err }

func TestPipeDeliversInOrder(t *testing.T) {
	host, engine := Pipe()
	receiver := newRecordingReceiver()
	if err := engine.Bind(receiver); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer host.Close()
	defer engine.Close()

	const count = 100
	for i := range count {
		if err := host.Transmit([]byte(fmt.Sprintf("frame-%d", i))); err != nil {
			t.Fatalf("Transmit(%d): %v", i, err)
		}
	}
	for i := range count {
		frame := testutil.RequireReceive(t, receiver.frames, 5*time.Second, "frame %d", i)
		if want := fmt.Sprintf("frame-%d", i); string(frame) != want {
			t.Fatalf("frame %d = %q, want %q", i, frame, want)
		}
	}
}

func TestPipeBuffersUntilBind(t *testing.T) {
	host, engine := Pipe()
	defer host.Close()
	defer engine.Close()

	if err := host.Transmit([]byte("early")); err != nil {
		t.Fatalf("Transmit: %v", err)
	}

	receiver := newRecordingReceiver()
	if err := engine.Bind(receiver); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	frame := testutil.RequireReceive(t, receiver.frames, 5*time.Second, "buffered frame")
	if string(frame) != "early" {
		t.Fatalf("frame = %q, want %q", frame, "early")
	}
}

func TestPipeTransmitCopiesFrame(t *testing.T) {
	host, engine := Pipe()
	defer host.Close()
	defer engine.Close()

	receiver := newRecordingReceiver()
	if err := engine.Bind(receiver); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	frame := []byte("original")
	if err := host.Transmit(frame); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	copy(frame, "mutated!")

	got := testutil.RequireReceive(t, receiver.frames, 5*time.Second, "frame")
	if string(got) != "original" {
		t.Fatalf("delivered frame = %q, want %q", got, "original")
	}
}

func TestPipeCloseReportsFailureAfterDrain(t *testing.T) {
	host, engine := Pipe()
	defer engine.Close()

	for _, frame := range []string{"last-response", "exit"} {
		if err := host.Transmit([]byte(frame)); err != nil {
			t.Fatalf("Transmit: %v", err)
		}
	}
	host.Close()

	receiver := newRecordingReceiver()
	if err := engine.Bind(receiver); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	for _, want := range []string{"last-response", "exit"} {
		frame := testutil.RequireReceive(t, receiver.frames, 5*time.Second, "frame %q", want)
		if string(frame) != want {
			t.Fatalf("frame = %q, want %q", frame, want)
		}
	}
	failure := testutil.RequireReceive(t, receiver.failures, 5*time.Second, "transport failure")
	if !errors.Is(failure, ErrPeerClosed) {
		t.Fatalf("failure = %v, want ErrPeerClosed", failure)
	}

	if err := engine.Transmit([]byte("too late")); !errors.Is(err, ErrPeerClosed) {
		t.Fatalf("Transmit to closed peer = %v, want ErrPeerClosed", err)
	}
}

func TestPipeTransmitAfterClose(t *testing.T) {
	host, engine := Pipe()
	defer engine.Close()

	if err := host.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := host.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := host.Transmit([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("Transmit after Close = %v, want ErrClosed", err)
	}
}

func TestPipeLocalCloseSuppressesFailure(t *testing.T) {
	host, engine := Pipe()
	receiver := newRecordingReceiver()
	if err := host.Bind(receiver); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	host.Close()
	engine.Close()

	select {
	case err := <-receiver.failures:
		t.Fatalf("TransportFailed(%v) delivered after local Close", err)
	case <-time.After(50 * time.Millisecond): //nolint:realclock negative check
	}
}

func TestPipeBindTwice(t *testing.T) {
	host, engine := Pipe()
	defer host.Close()
	defer engine.Close()

	if err := host.Bind(newRecordingReceiver()); err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	if err := host.Bind(newRecordingReceiver()); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("second Bind = %v, want ErrAlreadyBound", err)
	}
}
