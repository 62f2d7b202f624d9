// Package probe runs external network diagnostics and parses their output.
//
// # Overview
//
// The package owns the command-execution-and-output-parsing pipeline:
//
//  1. Runner.Run launches the external tool for a command kind and target
//     with a fixed, contract-level argument vector.
//  2. Both output streams are captured fully and decoded (UTF-8 with an OEM
//     code page 866 fallback; decoding never fails).
//  3. Any stderr content fails the invocation outright.
//  4. stdout is handed to the parser matching the command kind.
//
// # Parsers
//
// ParsePingOutput and ParseTracertOutput are pure functions over decoded
// text. Their failure modes are deliberately asymmetric:
//
//   - ping is binary per report: all four summary fields (packet loss,
//     min/avg/max RTT) must be present or the whole parse fails;
//   - tracert degrades per hop: unmatched lines are skipped, all-timeout
//     hops carry the "*" wildcard, and zero hops is still a valid result.
//
// # Error channel
//
// Run always returns a string. Failures are typed internally (*Error with an
// ErrorKind) and rendered as "Error: <message>" on the wire, which is the
// format the control server expects.
package probe
