// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "sync"

// PipeEnd is one end of an in-process transport created by Pipe.
// Frames transmitted on one end are delivered, in order, to the
// receiver bound to the other end by a dedicated goroutine. The queue
// is unbounded: Transmit never blocks on a slow receiver.
type PipeEnd struct {
	peer *PipeEnd

	mu       sync.Mutex
	receiver Receiver
	queue    [][]byte
	failure  error
	closed   bool

	// wake has capacity 1 and is signalled whenever queue, failure,
	// or closed changes.
	wake chan struct{}
}

// Pipe returns two connected transport ends. It is the transport used
// when host and engine share a process, and in tests.
func Pipe() (*PipeEnd, *PipeEnd) {
	a := &PipeEnd{wake: make(chan struct{}, 1)}
	b := &PipeEnd{wake: make(chan struct{}, 1)}
	a.peer = b
	b.peer = a
	return a, b
}

// Bind attaches receiver and starts the delivery goroutine.
func (e *PipeEnd) Bind(receiver Receiver) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.receiver != nil {
		return ErrAlreadyBound
	}
	e.receiver = receiver
	go e.deliver(receiver)
	return nil
}

// Transmit copies frame onto the peer's delivery queue.
func (e *PipeEnd) Transmit(frame []byte) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}

	owned := make([]byte, len(frame))
	copy(owned, frame)
	return e.peer.enqueue(owned)
}

// Close stops local delivery and tells the peer, after it drains what
// this end already transmitted, that the pipe is gone. Frames still
// queued for this end are dropped.
func (e *PipeEnd) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.queue = nil
	e.mu.Unlock()
	e.signal()

	e.peer.fail(ErrPeerClosed)
	return nil
}

func (e *PipeEnd) enqueue(frame []byte) error {
	e.mu.Lock()
	if e.closed || e.failure != nil {
		e.mu.Unlock()
		return ErrPeerClosed
	}
	e.queue = append(e.queue, frame)
	e.mu.Unlock()
	e.signal()
	return nil
}

func (e *PipeEnd) fail(err error) {
	e.mu.Lock()
	if e.closed || e.failure != nil {
		e.mu.Unlock()
		return
	}
	e.failure = err
	e.mu.Unlock()
	e.signal()
}

func (e *PipeEnd) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// deliver drains the queue into receiver until this end closes or
// the queued failure has been reported.
func (e *PipeEnd) deliver(receiver Receiver) {
	for range e.wake {
		for {
			e.mu.Lock()
			if e.closed {
				e.mu.Unlock()
				return
			}
			if len(e.queue) > 0 {
				frame := e.queue[0]
				e.queue[0] = nil
				e.queue = e.queue[1:]
				e.mu.Unlock()
				receiver.Receive(frame)
				continue
			}
			failure := e.failure
			e.mu.Unlock()

			if failure != nil {
				receiver.TransportFailed(failure)
				return
			}
			break
		}
	}
}
