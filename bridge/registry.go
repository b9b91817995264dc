// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"sort"

	"github.com/bureau-foundation/corebridge/lib/message"
)

// Handler executes one inbound request. Implementations must always
// return a Response: failures belong in Response.Error, not in a panic
// (a panic is recovered and reported, but it is a bug).
//
// ctx is cancelled when the bridge shuts down.
type Handler interface {
	Handle(ctx context.Context, request message.Request) message.Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, request message.Request) message.Response

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, request message.Request) message.Response {
	return f(ctx, request)
}

// Route binds a discriminator to its handler.
type Route struct {
	Type    int32
	Handler Handler
}

// Registry maps discriminators to handlers. It is built once by
// NewRegistry and never modified, so lookups take no lock.
type Registry struct {
	handlers map[int32]Handler
}

// NewRegistry builds a registry from routes. Panics on a nil handler
// or a duplicate discriminator: both are programming errors caught at
// startup.
func NewRegistry(routes ...Route) *Registry {
	handlers := make(map[int32]Handler, len(routes))
	for _, route := range routes {
		if route.Handler == nil {
			panic(fmt.Sprintf("bridge.NewRegistry: nil handler for request type %d", route.Type))
		}
		if _, exists := handlers[route.Type]; exists {
			panic(fmt.Sprintf("bridge.NewRegistry: duplicate handler for request type %d", route.Type))
		}
		handlers[route.Type] = route.Handler
	}
	return &Registry{handlers: handlers}
}

// Lookup returns the handler for requestType. A nil Registry has no
// handlers.
func (r *Registry) Lookup(requestType int32) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	handler, exists := r.handlers[requestType]
	return handler, exists
}

// Types returns the registered discriminators in ascending order.
func (r *Registry) Types() []int32 {
	if r == nil {
		return nil
	}
	types := make([]int32, 0, len(r.handlers))
	for requestType := range r.handlers {
		types = append(types, requestType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
