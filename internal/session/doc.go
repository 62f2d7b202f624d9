// Package session maintains the agent's connection to the control server.
//
// # Overview
//
// A Session owns the whole connection lifecycle:
//
//	Disconnected -> Connecting -> Registering -> Active
//
// Active drops back to Disconnected on any transport error, and the session
// redials after a fixed delay, forever. There is no backoff ceiling: the
// agent is expected to outlive arbitrary server and network outages.
//
// # Registration
//
// Immediately after the handshake the session sends a registration frame
// carrying the agreement id, the city resolved from it, and host metadata.
// An empty agreement id is fatal: Run returns ErrMissingAgreementID and the
// process exits, since retrying cannot fix a static misconfiguration.
//
// # Command dispatch
//
// Command frames spawn one goroutine each, so a slow probe never blocks the
// read loop and results may return out of order. A semaphore bounds how many
// probes execute at once. Probe goroutines share nothing; they report
// through the session's send method, which serializes writes because the
// websocket permits only one concurrent writer.
//
// # Error handling
//
// Malformed frames are logged and skipped. Frames of unknown type, and
// command frames with an unrecognized kind, are ignored silently. Probe
// failures never reach the session: the runner converts every fault into an
// error-tagged result string.
package session
