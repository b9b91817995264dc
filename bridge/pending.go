// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"
	"sync"
	"time"
)

// pendingTable maps correlation ids to unresolved outbound calls.
// Every operation that selects a call for resolution also removes it,
// under the same lock, so a call can be resolved by at most one
// goroutine.
type pendingTable struct {
	mu     sync.Mutex
	calls  map[uint64]*Call
	closed bool
}

func newPendingTable() *pendingTable {
	return &pendingTable{calls: make(map[uint64]*Call)}
}

// register adds a call for id. Fails with ErrChannelClosed after
// closeAll, and refuses to shadow an id that is still pending.
func (p *pendingTable) register(id uint64, now time.Time) (*Call, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrChannelClosed
	}
	if _, exists := p.calls[id]; exists {
		return nil, fmt.Errorf("bridge: correlation id %d already pending", id)
	}
	call := newCall(id, now)
	p.calls[id] = call
	return call, nil
}

// take removes and returns the call for id, or nil if none is pending.
func (p *pendingTable) take(id uint64) *Call {
	p.mu.Lock()
	defer p.mu.Unlock()

	call, exists := p.calls[id]
	if !exists {
		return nil
	}
	delete(p.calls, id)
	return call
}

// closeAll marks the table closed and returns every pending call,
// leaving the table empty.
func (p *pendingTable) closeAll() []*Call {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	calls := make([]*Call, 0, len(p.calls))
	for id, call := range p.calls {
		calls = append(calls, call)
		delete(p.calls, id)
	}
	return calls
}

func (p *pendingTable) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// stale returns the number of calls created at or before cutoff and
// the oldest creation time among all pending calls.
func (p *pendingTable) stale(cutoff time.Time) (count int, oldest time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, call := range p.calls {
		if !call.createdAt.After(cutoff) {
			count++
		}
		if oldest.IsZero() || call.createdAt.Before(oldest) {
			oldest = call.createdAt
		}
	}
	return count, oldest
}
