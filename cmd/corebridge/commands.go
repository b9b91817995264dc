// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bureau-foundation/corebridge/lib/cli"
	"github.com/bureau-foundation/corebridge/lib/config"
	"github.com/bureau-foundation/corebridge/lib/service"
	"github.com/bureau-foundation/corebridge/lib/version"
)

// loadConfig loads the file named by --config, or COREBRIDGE_CONFIG
// when the flag is empty.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func runCommand() *cli.Command {
	var configPath, simulateEngine string
	return &cli.Command{
		Name:    "run",
		Summary: "Run the daemon",
		Description: `Connect to the engine socket and serve host services until interrupted.

The daemon exits non-zero if the engine disconnects.`,
		Usage: "corebridge run [--config <path>] [--simulate-engine <version>]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flagSet.StringVarP(&configPath, "config", "c", "", "path to corebridge.yaml (default $"+config.EnvVar+")")
			flagSet.StringVar(&simulateEngine, "simulate-engine", "", "serve an embedded engine simulator reporting this version instead of dialing engine.socket")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logger, closeLog, err := daemonLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer closeLog()
			logger.Info("starting corebridge",
				"version", version.Info(),
				"environment", cfg.Environment,
			)
			return runDaemon(ctx, cfg, simulateEngine, logger)
		},
	}
}

// daemonLogger builds the daemon logger: stderr by default, or a
// size-rotated JSON file when log.file is set. The returned function
// closes the file.
func daemonLogger(logConfig config.LogConfig) (*slog.Logger, func() error, error) {
	level, err := config.ParseLevel(logConfig.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log.level: %w", err)
	}
	if logConfig.File == "" {
		return cli.NewLogger(level), func() error { return nil }, nil
	}
	rotated := &lumberjack.Logger{
		Filename:   logConfig.File,
		MaxSize:    logConfig.MaxSizeMB,
		MaxBackups: logConfig.MaxBackups,
		MaxAge:     logConfig.MaxAgeDays,
		Compress:   logConfig.Compress,
	}
	return cli.NewWriterLogger(rotated, level), rotated.Close, nil
}

// controlFlags are shared by the subcommands that talk to a running
// daemon.
type controlFlags struct {
	configPath string
	socket     string
	json       bool
}

func (f *controlFlags) flagSet(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVarP(&f.configPath, "config", "c", "", "path to corebridge.yaml, used to find the control socket")
	flagSet.StringVar(&f.socket, "socket", "", "control socket path (overrides the config file)")
	flagSet.BoolVar(&f.json, "json", false, "output as JSON")
	return flagSet
}

func (f *controlFlags) client() (*service.ServiceClient, error) {
	if f.socket != "" {
		return service.NewServiceClient(f.socket), nil
	}
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("locating control socket: %w (or pass --socket)", err)
	}
	return service.NewServiceClient(cfg.Control.Socket), nil
}

func statusCommand() *cli.Command {
	var flags controlFlags
	return &cli.Command{
		Name:    "status",
		Summary: "Show the engine connection state",
		Usage:   "corebridge status [flags]",
		Flags:   func() *pflag.FlagSet { return flags.flagSet("status") },
		Run: func(ctx context.Context, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			var result statusResult
			if err := client.Call(ctx, "status", nil, &result); err != nil {
				return err
			}
			if flags.json {
				return cli.WriteJSON(os.Stdout, result)
			}
			return printStatus(os.Stdout, result)
		},
	}
}

func printStatus(w io.Writer, result statusResult) error {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "state:\t%s\n", result.State)
	fmt.Fprintf(tw, "engine version:\t%s\n", result.EngineVersion)
	fmt.Fprintf(tw, "pending calls:\t%d\n", result.PendingCalls)
	if result.PendingCalls > 0 {
		fmt.Fprintf(tw, "oldest pending:\t%s\n", result.OldestPending.Round(time.Millisecond))
	}
	fmt.Fprintf(tw, "handlers in flight:\t%d\n", result.HandlersInFlight)
	fmt.Fprintf(tw, "uptime:\t%s\n", result.Uptime.Round(time.Second))
	return tw.Flush()
}

func versionCommand() *cli.Command {
	var flags controlFlags
	return &cli.Command{
		Name:    "version",
		Summary: "Print daemon and engine versions",
		Description: `Print this binary's version. When a daemon is reachable, also print the
daemon's version and ask the engine for its own.`,
		Usage: "corebridge version [flags]",
		Flags: func() *pflag.FlagSet { return flags.flagSet("version") },
		Run: func(ctx context.Context, args []string) error {
			fmt.Fprintf(os.Stdout, "corebridge %s\n", version.Info())
			client, err := flags.client()
			if err != nil {
				return nil
			}
			var result versionResult
			if err := client.Call(ctx, "version", nil, &result); err != nil {
				fmt.Fprintf(os.Stderr, "daemon unreachable: %v\n", err)
				return nil
			}
			if flags.json {
				return cli.WriteJSON(os.Stdout, result)
			}
			fmt.Fprintf(os.Stdout, "daemon     %s\nengine     %s\n", result.Daemon, result.Engine)
			return nil
		},
	}
}

func fetchCommand() *cli.Command {
	var flags controlFlags
	return &cli.Command{
		Name:    "fetch",
		Summary: "Fetch a URL through the engine",
		Description: `Ask the engine to fetch a URL. The engine calls back into the daemon's
HTTP service, so this exercises the full round trip.`,
		Usage: "corebridge fetch <url> [flags]",
		Examples: []cli.Example{{
			Command: "corebridge fetch https://example.com/status",
		}},
		Flags: func() *pflag.FlagSet { return flags.flagSet("fetch") },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one URL argument")
			}
			client, err := flags.client()
			if err != nil {
				return err
			}
			var result fetchResult
			if err := client.Call(ctx, "fetch", map[string]any{"url": args[0]}, &result); err != nil {
				return err
			}
			if flags.json {
				return cli.WriteJSON(os.Stdout, result)
			}
			fmt.Fprintf(os.Stderr, "status %d\n", result.Code)
			_, err = os.Stdout.Write(result.Body)
			return err
		},
	}
}
