// ABOUTME: Entry point for the ort-agent network diagnostic client.
// ABOUTME: Loads config, wires the probe runner into a session, runs until signalled.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/chrsnv/ort-agent/internal/autostart"
	"github.com/chrsnv/ort-agent/internal/config"
	"github.com/chrsnv/ort-agent/internal/locality"
	"github.com/chrsnv/ort-agent/internal/probe"
	"github.com/chrsnv/ort-agent/internal/session"
)

// Version is set by the release build.
var version = "dev"

const banner = `
            _                             _
  ___  _ __| |_    __ _  __ _  ___ _ __ | |_
 / _ \| '__| __|  / _' |/ _' |/ _ \ '_ \| __|
| (_) | |  | |_  | (_| | (_| |  __/ | | | |_
 \___/|_|   \__|  \__,_|\__, |\___|_| |_|\__|
                        |___/
`

// configPath returns the configuration file location.
// Priority: ORT_CONFIG env var > ./config.yaml next to the executable's
// working directory (the agent is deployed as a single folder).
func configPath() string {
	if envPath := os.Getenv("ORT_CONFIG"); envPath != "" {
		return envPath
	}
	return "config.yaml"
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The agent is usually launched with no arguments (autostart); "run" is
	// the default command.
	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "run":
		err = runAgent(ctx)
	case "init":
		err = runInit()
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprintln(os.Stderr, "Usage: ort-agent [run|init|version]")
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// runInit writes the default config file and tells the installer what to
// fill in.
func runInit() error {
	path := configPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	color.Green("Created %s", path)
	fmt.Println("Fill in agreement_id before starting the agent.")
	return nil
}

func runAgent(ctx context.Context) error {
	fmt.Print(banner)
	color.Cyan("ort-agent %s", version)

	cfgPath := configPath()
	cfg, created, err := config.LoadOrCreate(cfgPath)
	if err != nil {
		return err
	}
	if created {
		color.Yellow("Created default config at %s", cfgPath)
	}

	logger, closeLogs, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLogs()

	if cfg.Autostart {
		if err := autostart.Enable(); err != nil {
			logger.Warn("failed to register autostart", "error", err)
		}
	}

	city := locality.Default().Lookup(cfg.AgreementID)
	logger.Info("starting agent",
		"version", version,
		"agreement", cfg.AgreementID,
		"city", city,
		"server", cfg.ServerURL,
	)

	runner := probe.NewRunner(cfg.Probes.TraceHeaderLines, logger.With("component", "probe"))
	sess := session.New(session.Params{
		AgreementID:   cfg.AgreementID,
		City:          city,
		ServerURL:     cfg.ServerURL,
		Runner:        runner,
		Logger:        logger.With("component", "session"),
		MaxConcurrent: cfg.Probes.MaxConcurrent,
	})

	return sess.Run(ctx)
}

// newLogger builds the process logger from config: leveled slog, text or
// JSON, optionally teed into a log file.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeLogs := func() {}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeLogs = func() { f.Close() }
	}

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), closeLogs, nil
}
