// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Corebridge-engine-sim stands in for the core engine during
// development and integration testing. It listens on the engine
// socket, accepts one host connection at a time, answers version and
// fetch requests, and delegates fetches back to the host's HTTP
// service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/corebridge/lib/cli"
	"github.com/bureau-foundation/corebridge/lib/config"
	"github.com/bureau-foundation/corebridge/lib/enginesim"
	"github.com/bureau-foundation/corebridge/lib/version"
	"github.com/bureau-foundation/corebridge/transport"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCommand().Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	socket         string
	engineVersion  string
	compression    string
	notifyProgress bool
	once           bool
	logLevel       string
}

func rootCommand() *cli.Command {
	var opts options
	return &cli.Command{
		Name:    "corebridge-engine-sim",
		Summary: "Simulated core engine",
		Usage:   "corebridge-engine-sim --socket <path> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("corebridge-engine-sim", pflag.ContinueOnError)
			flagSet.StringVar(&opts.socket, "socket", "", "Unix socket to listen on (required)")
			flagSet.StringVar(&opts.engineVersion, "engine-version", "1.0.0", "version reported to the host")
			flagSet.StringVar(&opts.compression, "compression", "none", "outbound frame compression: none, lz4, zstd")
			flagSet.BoolVar(&opts.notifyProgress, "notify", false, "send a notification before each delegated fetch")
			flagSet.BoolVar(&opts.once, "once", false, "exit after the first host disconnects")
			flagSet.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn, or error")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			return run(ctx, opts)
		},
	}
}

func run(ctx context.Context, opts options) error {
	if opts.socket == "" {
		return fmt.Errorf("--socket is required")
	}
	engineVersion, err := version.ParseSemver(opts.engineVersion)
	if err != nil {
		return fmt.Errorf("--engine-version: %w", err)
	}
	compression, err := transport.ParseCompressionTag(opts.compression)
	if err != nil {
		return fmt.Errorf("--compression: %w", err)
	}
	level, err := config.ParseLevel(opts.logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := cli.NewLogger(level)

	listener, err := transport.Listen("unix", opts.socket, transport.SocketConfig{
		Compression: compression,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer listener.Close()
	logger.Info("engine simulator listening",
		"socket", listener.Address(),
		"engine_version", engineVersion.String(),
	)

	for {
		hostTransport, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting host: %w", err)
		}
		if err := serveHost(ctx, hostTransport, engineVersion, opts.notifyProgress, logger); err != nil {
			return err
		}
		if opts.once || ctx.Err() != nil {
			return nil
		}
	}
}

// serveHost runs an engine on one host connection until the host
// leaves or ctx is cancelled.
func serveHost(ctx context.Context, hostTransport transport.Transport, engineVersion version.Semver, notifyProgress bool, logger *slog.Logger) error {
	engine, err := enginesim.New(enginesim.Config{
		Transport:      hostTransport,
		Version:        engineVersion,
		NotifyProgress: notifyProgress,
		Logger:         logger,
	})
	if err != nil {
		hostTransport.Close()
		return fmt.Errorf("starting engine: %w", err)
	}

	select {
	case <-engine.Done():
		logger.Info("host disconnected")
		return nil
	case <-ctx.Done():
		if err := engine.Close(); err != nil && !errors.Is(err, transport.ErrClosed) {
			logger.Warn("closing engine", "error", err)
		}
		return nil
	}
}
