// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bureau-foundation/corebridge/bridge"
	"github.com/bureau-foundation/corebridge/hostservice"
	"github.com/bureau-foundation/corebridge/lib/clock"
	"github.com/bureau-foundation/corebridge/lib/config"
	"github.com/bureau-foundation/corebridge/lib/coreapi"
	"github.com/bureau-foundation/corebridge/lib/enginesim"
	"github.com/bureau-foundation/corebridge/lib/service"
	"github.com/bureau-foundation/corebridge/lib/version"
	"github.com/bureau-foundation/corebridge/transport"
)

// versionCheckTimeout bounds the startup handshake with the engine.
const versionCheckTimeout = 10 * time.Second

// errEngineDisconnected is returned by serve when the engine side of
// the channel went away while the daemon was running.
var errEngineDisconnected = errors.New("engine disconnected")

// daemon is a running host bridge and its operator surfaces.
type daemon struct {
	config        *config.Config
	logger        *slog.Logger
	clock         clock.Clock
	bridge        *bridge.Bridge
	core          *coreapi.Client
	control       *service.SocketServer
	metrics       *service.HTTPServer
	engineVersion version.Semver
	startedAt     time.Time
}

// runDaemon connects to the engine and serves until ctx is cancelled
// or the engine disconnects. A non-empty simulateEngine replaces the
// engine socket with an embedded simulator reporting that version.
func runDaemon(ctx context.Context, cfg *config.Config, simulateEngine string, logger *slog.Logger) error {
	if err := cfg.EnsureSocketDirs(); err != nil {
		return err
	}
	compression, err := transport.ParseCompressionTag(cfg.Engine.Compression)
	if err != nil {
		return err
	}
	socketConfig := transport.SocketConfig{
		Compression: compression,
		Logger:      logger,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var engineTransport transport.Transport
	if simulateEngine != "" {
		engineTransport, err = startEmbeddedEngine(simulateEngine, socketConfig, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Info("connecting to engine", "socket", cfg.Engine.Socket)
		engineTransport, err = transport.Dial(ctx, "unix", cfg.Engine.Socket, transport.DialConfig{
			Socket:           socketConfig,
			MaxRetryInterval: cfg.Engine.MaxRetryInterval,
			MaxAttempts:      cfg.Engine.DialAttempts,
		})
		if err != nil {
			return fmt.Errorf("connecting to engine: %w", err)
		}
	}

	d, err := startDaemon(ctx, cfg, engineTransport, registry, clock.Real(), logger)
	if err != nil {
		return err
	}
	return d.serve(ctx)
}

// startEmbeddedEngine runs a simulated engine on one end of a socket
// pair and returns the host end. The simulator stops when the host
// bridge sends its exit envelope.
func startEmbeddedEngine(engineVersion string, hostConfig transport.SocketConfig, logger *slog.Logger) (transport.Transport, error) {
	simulatedVersion, err := version.ParseSemver(engineVersion)
	if err != nil {
		return nil, fmt.Errorf("--simulate-engine: %w", err)
	}
	hostSide, engineSide, err := transport.SocketPair(hostConfig, transport.SocketConfig{Logger: logger})
	if err != nil {
		return nil, err
	}
	if _, err := enginesim.New(enginesim.Config{
		Transport:      engineSide,
		Version:        simulatedVersion,
		NotifyProgress: true,
		Logger:         logger.With("component", "engine-sim"),
	}); err != nil {
		hostSide.Close()
		engineSide.Close()
		return nil, fmt.Errorf("starting embedded engine: %w", err)
	}
	logger.Warn("using embedded engine simulator", "engine_version", simulatedVersion.String())
	return hostSide, nil
}

// startDaemon builds the host bridge over engineTransport, registering
// its metrics with registry, and checks the engine version. On error
// the transport is closed.
func startDaemon(ctx context.Context, cfg *config.Config, engineTransport transport.Transport, registry *prometheus.Registry, clk clock.Clock, logger *slog.Logger) (*daemon, error) {
	httpService := hostservice.NewHTTPService(hostservice.HTTPConfig{
		Timeout:          cfg.HTTP.Timeout,
		MaxResponseBytes: cfg.HTTP.MaxResponseBytes,
		RatePerHost:      cfg.HTTP.RatePerHost,
		RateBurst:        cfg.HTTP.Burst,
		FollowRedirects:  cfg.FollowRedirects(),
		UserAgent:        cfg.HTTP.UserAgent,
		Clock:            clk,
		Logger:           logger.With("service", "http"),
	})

	hostBridge, err := bridge.New(bridge.Config{
		Name:      "host",
		Transport: engineTransport,
		Registry:  bridge.NewRegistry(httpService.Route()),
		OnNotification: func(payload []byte) {
			logger.Info("engine notification", "message", string(payload))
		},
		Logger:             logger,
		Clock:              clk,
		Metrics:            bridge.NewMetrics(registry),
		StaleCallThreshold: cfg.Engine.StaleCallThreshold,
	})
	if err != nil {
		engineTransport.Close()
		return nil, err
	}

	d := &daemon{
		config:    cfg,
		logger:    logger,
		clock:     clk,
		bridge:    hostBridge,
		core:      coreapi.NewClient(hostBridge),
		control:   service.NewSocketServer(cfg.Control.Socket, logger),
		startedAt: clk.Now(),
	}
	d.control.Authorize(requireSameUser)
	d.registerActions(d.control)
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		d.metrics = service.NewHTTPServer(service.HTTPServerConfig{
			Address: cfg.Metrics.Listen,
			Handler: mux,
			Logger:  logger,
		})
	}

	checkCtx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	defer cancel()
	if cfg.Engine.MinVersion != "" {
		minimum, err := version.ParseSemver(cfg.Engine.MinVersion)
		if err == nil {
			d.engineVersion, err = d.core.CheckVersion(checkCtx, minimum)
		}
		if err != nil {
			hostBridge.Close()
			return nil, fmt.Errorf("engine version check: %w", err)
		}
	} else {
		d.engineVersion, err = d.core.Version(checkCtx)
		if err != nil {
			hostBridge.Close()
			return nil, fmt.Errorf("engine version check: %w", err)
		}
	}

	logger.Info("engine connected",
		"engine_version", d.engineVersion.String(),
		"daemon_version", version.Info(),
	)
	return d, nil
}

// serve runs the control socket and the metrics endpoint until ctx is
// cancelled, the engine disconnects, or a server fails. The bridge is
// closed before serve returns.
func (d *daemon) serve(ctx context.Context) error {
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	failures := make(chan error, 2)
	var servers sync.WaitGroup

	servers.Add(1)
	go func() {
		defer servers.Done()
		if err := d.control.Serve(serveCtx); err != nil {
			failures <- fmt.Errorf("control socket: %w", err)
		}
	}()

	if d.metrics != nil {
		servers.Add(1)
		go func() {
			defer servers.Done()
			if err := d.metrics.Serve(serveCtx); err != nil {
				failures <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var result error
	select {
	case <-ctx.Done():
		d.logger.Info("received shutdown signal")
	case <-d.bridge.Done():
		d.logger.Error("engine disconnected")
		result = errEngineDisconnected
	case err := <-failures:
		result = err
	}

	cancel()
	if err := d.bridge.Close(); err != nil && result == nil {
		result = fmt.Errorf("closing bridge: %w", err)
	}
	servers.Wait()

	d.logger.Info("shutdown complete")
	return result
}
