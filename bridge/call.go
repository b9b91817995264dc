// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"time"
)

// Call is the eventual result of one outbound request. It resolves
// exactly once, with the response payload or an error.
type Call struct {
	id        uint64
	createdAt time.Time

	done    chan struct{}
	payload []byte
	err     error
}

func newCall(id uint64, createdAt time.Time) *Call {
	return &Call{
		id:        id,
		createdAt: createdAt,
		done:      make(chan struct{}),
	}
}

// ID returns the correlation id the call was sent with.
func (c *Call) ID() uint64 { return c.id }

// CreatedAt returns when the call was registered.
func (c *Call) CreatedAt() time.Time { return c.createdAt }

// Done returns a channel closed when the call resolves.
func (c *Call) Done() <-chan struct{} { return c.done }

// Result returns the resolution. Before the call resolves it returns
// ErrCallPending.
func (c *Call) Result() ([]byte, error) {
	select {
	case <-c.done:
		return c.payload, c.err
	default:
		return nil, ErrCallPending
	}
}

// Wait blocks until the call resolves or ctx is done. Giving up on the
// wait does not cancel the call: its pending entry stays until the
// peer answers or the bridge shuts down.
func (c *Call) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-c.done:
		return c.payload, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve records the outcome. Only the goroutine that removed the
// call from the pending table may call it, which makes it single-shot.
func (c *Call) resolve(payload []byte, err error) {
	c.payload = payload
	c.err = err
	close(c.done)
}
