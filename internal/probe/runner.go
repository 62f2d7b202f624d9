// ABOUTME: Executes one external diagnostic process per invocation and parses its output.
// ABOUTME: Never propagates a fault upward; every path produces a wire-ready result string.

package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
)

// DefaultTraceHeaderLines is the tracert banner length skipped before hop
// parsing when no override is configured.
const DefaultTraceHeaderLines = 3

// invocations holds the fixed argument vectors per command. The packet
// count, packet size and IPv4 flag are part of the contract with the
// server-side report tooling; changing them changes the output format the
// parsers expect.
var invocations = map[Command][]string{
	CommandPing:    {"ping", "-n", "30", "-l", "1200"},
	CommandTracert: {"tracert", "/4"},
}

// execFunc launches a process and returns its captured streams. A non-zero
// exit status is not an error here; only launch and capture failures are.
type execFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Runner invokes diagnostic tools and turns their output into result strings.
type Runner struct {
	traceHeaderLines int
	logger           *slog.Logger
	execute          execFunc
}

// NewRunner creates a Runner. traceHeaderLines <= 0 selects the default
// banner skip.
func NewRunner(traceHeaderLines int, logger *slog.Logger) *Runner {
	if traceHeaderLines <= 0 {
		traceHeaderLines = DefaultTraceHeaderLines
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		traceHeaderLines: traceHeaderLines,
		logger:           logger,
		execute:          runCommand,
	}
}

// Run executes the diagnostic command against the target and returns the
// string to report to the server: a JSON-encoded structured result on
// success, an error-tagged string on any failure. Run never returns an
// error; the boundary converts every fault into the string channel.
func (r *Runner) Run(ctx context.Context, cmd Command, target string) string {
	args, ok := invocations[cmd]
	if !ok {
		r.logger.Error("unsupported command reached the runner", "command", string(cmd))
		return (&Error{Kind: ErrorBadCommand, Msg: fmt.Sprintf("Unsupported command: %s", cmd)}).Wire()
	}

	r.logger.Info("probe started", "command", string(cmd), "target", target)

	stdout, stderr, err := r.execute(ctx, args[0], append(args[1:], target)...)
	if err != nil {
		r.logger.Error("probe launch failed", "command", string(cmd), "target", target, "error", err)
		return (&Error{Kind: ErrorExec, Msg: err.Error()}).Wire()
	}

	if errText := DecodeConsole(stderr); errText != "" {
		r.logger.Error("probe wrote to stderr", "command", string(cmd), "target", target, "stderr", errText)
		return (&Error{Kind: ErrorStderr, Msg: errText}).Wire()
	}

	outText := DecodeConsole(stdout)
	r.logger.Info("probe finished", "command", string(cmd), "target", target)

	switch cmd {
	case CommandPing:
		stats, err := ParsePingOutput(outText)
		if err != nil {
			r.logWireFailure(cmd, target, err)
			return wireError(err)
		}
		return mustJSON(stats)
	default:
		hops, err := ParseTracertOutput(outText, r.traceHeaderLines)
		if err != nil {
			r.logWireFailure(cmd, target, err)
			return wireError(err)
		}
		return mustJSON(hops)
	}
}

func (r *Runner) logWireFailure(cmd Command, target string, err error) {
	attrs := []any{"command", string(cmd), "target", target, "error", err}
	var pe *Error
	if errors.As(err, &pe) && pe.Raw != "" {
		attrs = append(attrs, "raw", pe.Raw)
	}
	r.logger.Warn("probe output did not parse", attrs...)
}

// mustJSON serializes a parsed result. The result types marshal without
// error by construction; a failure here still degrades to the error channel
// rather than panicking.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return wireError(err)
	}
	return string(b)
}

// runCommand is the real execFunc: full synchronous capture of both streams,
// no console window, exit status ignored (the stderr policy decides).
func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = hiddenWindowAttr()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, nil, err
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}
