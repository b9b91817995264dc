// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Corebridge is the host-side daemon for the core engine. It connects
// to the engine's Unix socket, serves the host services the engine
// calls into (HTTP today), and exposes a local control socket and a
// Prometheus endpoint. The status, version, and fetch subcommands talk
// to a running daemon over the control socket.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/corebridge/lib/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCommand().Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:        "corebridge",
		Summary:     "Host bridge for the core engine",
		Description: "Corebridge connects the core engine to host services and reports on the connection.",
		Subcommands: []*cli.Command{
			runCommand(),
			statusCommand(),
			versionCommand(),
			fetchCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Run the daemon",
				Command:     "corebridge run --config /etc/corebridge/corebridge.yaml",
			},
			{
				Description: "Check the engine connection",
				Command:     "corebridge status",
			},
		},
	}
}
