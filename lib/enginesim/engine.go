// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package enginesim is a stand-in for the native engine. It answers
// core requests over a bridge the same way the real engine does at
// the protocol level, with none of its wallet logic:
//
//   - CoreGetVersion returns the configured version.
//   - CoreFetch delegates a GET to the host's HTTP service and relays
//     the result, exercising a request that the engine can only
//     complete by calling back into the host.
//
// cmd/corebridge-engine-sim serves it on a socket for local
// development; tests run it in-process over a transport pipe.
package enginesim

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bureau-foundation/corebridge/bridge"
	"github.com/bureau-foundation/corebridge/lib/clock"
	"github.com/bureau-foundation/corebridge/lib/message"
	"github.com/bureau-foundation/corebridge/lib/version"
	"github.com/bureau-foundation/corebridge/transport"
)

// Config configures an Engine.
type Config struct {
	// Transport connects to the host. Required.
	Transport transport.Transport

	// Version is reported for CoreGetVersion.
	Version version.Semver

	// NotifyProgress sends a notification to the host before each
	// delegated fetch.
	NotifyProgress bool

	Logger  *slog.Logger
	Clock   clock.Clock
	Metrics *bridge.Metrics
}

// Engine is a running simulated engine.
type Engine struct {
	bridge         *bridge.Bridge
	version        version.Semver
	notifyProgress bool
	logger         *slog.Logger
}

// New starts an engine bound to config.Transport.
func New(config Config) (*Engine, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engine := &Engine{
		version:        config.Version,
		notifyProgress: config.NotifyProgress,
		logger:         logger,
	}

	registry := bridge.NewRegistry(
		bridge.Route{Type: message.CoreGetVersion, Handler: bridge.HandlerFunc(engine.getVersion)},
		bridge.Route{Type: message.CoreFetch, Handler: bridge.HandlerFunc(engine.fetch)},
	)
	engineBridge, err := bridge.New(bridge.Config{
		Name:      "engine",
		Transport: config.Transport,
		Registry:  registry,
		Logger:    logger,
		Clock:     config.Clock,
		Metrics:   config.Metrics,
	})
	if err != nil {
		return nil, err
	}
	engine.bridge = engineBridge
	return engine, nil
}

// Bridge returns the engine's side of the channel.
func (e *Engine) Bridge() *bridge.Bridge { return e.bridge }

// Done is closed when the engine's bridge has shut down, whether by
// Close, a host exit signal, or a transport failure.
func (e *Engine) Done() <-chan struct{} { return e.bridge.Done() }

// Close shuts the engine down and signals the host.
func (e *Engine) Close() error { return e.bridge.Close() }

func (e *Engine) getVersion(ctx context.Context, request message.Request) message.Response {
	return message.Response{Body: message.GetVersionResponse{
		Major: int32(e.version.Major),
		Minor: int32(e.version.Minor),
		Patch: int32(e.version.Patch),
	}.Marshal()}
}

func (e *Engine) fetch(ctx context.Context, request message.Request) message.Response {
	fetch, err := message.UnmarshalFetchRequest(request.Body)
	if err != nil {
		return message.ErrorResponse("malformed fetch request: %v", err)
	}
	if fetch.URL == "" {
		return message.ErrorResponse("fetch request has no url")
	}

	if e.notifyProgress {
		if err := e.bridge.Notify([]byte("fetching " + fetch.URL)); err != nil {
			e.logger.Debug("progress notification not sent", "error", err)
		}
	}

	response, err := e.bridge.Request(ctx, message.Request{
		Type: message.ServiceHTTPRequest,
		Body: message.HTTPRequest{Method: "GET", URL: fetch.URL}.Marshal(),
	})
	var applicationErr *bridge.ApplicationError
	switch {
	case errors.As(err, &applicationErr):
		return message.ErrorResponse("host http service: %s", applicationErr.Message)
	case err != nil:
		return message.ErrorResponse("calling host: %v", err)
	}

	// The host's body is already an encoded HTTPResponse; validate it
	// before relaying so a garbled reply surfaces here.
	if _, err := message.UnmarshalHTTPResponse(response.Body); err != nil {
		return message.ErrorResponse("host returned undecodable http response: %v", err)
	}
	return message.Response{Body: response.Body}
}

