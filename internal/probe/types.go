// ABOUTME: Data types for the diagnostic probe pipeline: commands, results, errors.
// ABOUTME: Defines the wire JSON shapes for ping statistics and traceroute hops.

package probe

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Command identifies a diagnostic command kind requested by the server.
type Command string

const (
	// CommandPing is a latency probe: round-trip time and packet loss.
	CommandPing Command = "ping"
	// CommandTracert is a route trace: per-hop addresses and round-trip times.
	CommandTracert Command = "tracert"
)

// ParseCommand validates a command string received from the server.
func ParseCommand(s string) (Command, bool) {
	switch Command(s) {
	case CommandPing, CommandTracert:
		return Command(s), true
	}
	return "", false
}

// Wildcard marks an unmeasured hop statistic or an unresolved hop address.
const Wildcard = "*"

// PingStats is the parsed summary of a latency probe. Units follow whatever
// the external tool reported; they are carried as opaque milliseconds.
type PingStats struct {
	PacketLoss int `json:"packet_loss"`
	MinRTT     int `json:"min_rtt"`
	AvgRTT     int `json:"avg_rtt"`
	MaxRTT     int `json:"max_rtt"`
}

// RTT is one hop round-trip statistic: a measured value in milliseconds, or
// the wildcard when every sample for the hop timed out.
type RTT struct {
	Valid bool
	Value float64
}

// Millis returns a measured RTT value.
func Millis(v float64) RTT {
	return RTT{Valid: true, Value: v}
}

// MarshalJSON emits the value as a bare number, or "*" for a timed-out stat.
// Whole numbers serialize without a fractional part.
func (r RTT) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return json.Marshal(Wildcard)
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts either a number or the "*" wildcard.
func (r *RTT) UnmarshalJSON(data []byte) error {
	if string(data) == `"*"` {
		*r = RTT{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Millis(v)
	return nil
}

// Hop is a single step of a route trace. Address is the wildcard when the
// hop did not identify itself.
type Hop struct {
	Index   int    `json:"hop"`
	Address string `json:"ip"`
	MinRTT  RTT    `json:"min_rtt"`
	AvgRTT  RTT    `json:"avg_rtt"`
	MaxRTT  RTT    `json:"max_rtt"`
}

// ErrorKind classifies a probe pipeline failure.
type ErrorKind int

const (
	// ErrorBadCommand means the command kind was not recognized. This is a
	// dispatch logic fault and fails fast.
	ErrorBadCommand ErrorKind = iota
	// ErrorExec means the external process could not be launched or captured.
	ErrorExec
	// ErrorStderr means the process wrote to its error stream, which is
	// treated as a failed invocation regardless of stdout.
	ErrorStderr
	// ErrorParse means the process output did not match expected patterns.
	ErrorParse
)

// Error is a probe failure. Raw, when set, preserves the text that failed to
// parse for postmortem logging; it is never sent over the wire.
type Error struct {
	Kind ErrorKind
	Msg  string
	Raw  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Wire renders the failure in the format the control server expects.
func (e *Error) Wire() string {
	return "Error: " + e.Msg
}

// wireError converts any error into an error-tagged result string.
func wireError(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Wire()
	}
	return fmt.Sprintf("Error: %v", err)
}
