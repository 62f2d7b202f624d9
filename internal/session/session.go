// ABOUTME: Owns the websocket connection lifecycle: connect, register, receive, dispatch.
// ABOUTME: Reconnects forever with a fixed delay; probe dispatch never blocks the read loop.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/semaphore"

	"github.com/chrsnv/ort-agent/internal/probe"
)

// ErrMissingAgreementID is returned by Run when the configuration carries no
// agreement id. This is a static misconfiguration: retrying cannot fix it,
// so the caller is expected to terminate the process.
var ErrMissingAgreementID = errors.New("agreement_id is not set in the config")

var errNotConnected = errors.New("not connected")

// State is the connection lifecycle phase. It is owned exclusively by the
// Session; probe goroutines never touch it.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateRegistering
	StateActive
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRegistering:
		return "registering"
	case StateActive:
		return "active"
	default:
		return "disconnected"
	}
}

// Runner executes one diagnostic command and returns the wire result string.
// probe.Runner satisfies this; tests substitute stubs.
type Runner interface {
	Run(ctx context.Context, cmd probe.Command, target string) string
}

// Params configures a Session.
type Params struct {
	AgreementID string
	City        string
	ServerURL   string
	Runner      Runner
	Logger      *slog.Logger

	// MaxConcurrent caps concurrently executing probes. Zero selects 8.
	MaxConcurrent int64
	// ReconnectDelay is the fixed pause between connection attempts.
	// Zero selects 5 seconds.
	ReconnectDelay time.Duration
}

// Session maintains the long-lived connection to the control server.
type Session struct {
	agreementID    string
	city           string
	serverURL      string
	reconnectDelay time.Duration

	runner Runner
	logger *slog.Logger
	sem    *semaphore.Weighted

	dial func(ctx context.Context, url string) (*websocket.Conn, error)

	state atomic.Int32

	// writeMu serializes frames: probe goroutines complete concurrently and
	// the websocket allows only one writer.
	writeMu sync.Mutex
	conn    *websocket.Conn
}

// New creates a Session. It does not connect; call Run.
func New(p Params) *Session {
	if p.MaxConcurrent <= 0 {
		p.MaxConcurrent = 8
	}
	if p.ReconnectDelay <= 0 {
		p.ReconnectDelay = 5 * time.Second
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return &Session{
		agreementID:    p.AgreementID,
		city:           p.City,
		serverURL:      p.ServerURL,
		reconnectDelay: p.ReconnectDelay,
		runner:         p.Runner,
		logger:         p.Logger,
		sem:            semaphore.NewWeighted(p.MaxConcurrent),
		dial:           dialWebsocket,
	}
}

// State reports the current lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Run connects and serves until the context is cancelled or a fatal
// misconfiguration is detected. Transport failures are not fatal: the
// session sleeps for the fixed reconnect delay and dials again, forever.
func (s *Session) Run(ctx context.Context) error {
	defer s.setState(StateDisconnected)

	for {
		err := s.connectOnce(ctx)
		if errors.Is(err, ErrMissingAgreementID) {
			return err
		}
		s.setState(StateDisconnected)

		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("connection lost, reconnecting", "error", err, "delay", s.reconnectDelay)
		if sleepErr := sleepContext(ctx, s.reconnectDelay); sleepErr != nil {
			return nil
		}
	}
}

// connectOnce performs one full connection lifetime: dial, register, serve
// the read loop until the transport drops.
func (s *Session) connectOnce(ctx context.Context) error {
	s.setState(StateConnecting)

	conn, err := s.dial(ctx, s.serverURL)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", s.serverURL, err)
	}
	defer conn.Close()

	s.setConn(conn)
	defer s.setConn(nil)

	// Unblock the read loop when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.setState(StateRegistering)
	if err := s.register(); err != nil {
		return err
	}
	s.logger.Info("connection established", "server", s.serverURL, "city", s.city)

	s.setState(StateActive)
	return s.readLoop(ctx, conn)
}

// register announces the agent's identity. An empty agreement id is a fatal
// misconfiguration, reported before anything is sent.
func (s *Session) register() error {
	if s.agreementID == "" {
		s.logger.Error("no agreement id configured, refusing to register")
		return ErrMissingAgreementID
	}

	hostname, _ := os.Hostname()
	return s.send(Registration{
		Type: TypeRegistration,
		Data: RegistrationData{
			AgreementID: s.agreementID,
			City:        s.city,
			OS:          runtime.GOOS,
			Hostname:    hostname,
		},
	})
}

// readLoop receives frames until the transport errors. A malformed frame is
// logged and skipped; frames of unknown type or with an unknown command kind
// are ignored silently.
func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}

		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Error("received malformed frame", "error", err)
			continue
		}
		s.handleMessage(ctx, msg)
	}
}

// handleMessage dispatches a command frame without blocking the read loop.
// Probes run concurrently, bounded by the semaphore, and may complete out of
// order.
func (s *Session) handleMessage(ctx context.Context, msg ServerMessage) {
	if msg.Type != TypeCommand {
		return
	}
	cmd, ok := probe.ParseCommand(msg.Command)
	if !ok {
		return
	}

	probeID := uuid.NewString()
	s.logger.Info("command received",
		"probe_id", probeID,
		"command", msg.Command,
		"target", msg.Target,
	)

	go func() {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.sem.Release(1)

		result := s.runner.Run(ctx, cmd, msg.Target)
		if err := s.sendResult(string(cmd), msg.Target, result); err != nil {
			s.logger.Error("failed to send result",
				"probe_id", probeID,
				"command", msg.Command,
				"target", msg.Target,
				"error", err,
			)
		}
	}()
}

// sendResult reports one completed command back to the server. It is safe to
// call from multiple probe goroutines.
func (s *Session) sendResult(command, target, result string) error {
	return s.send(Result{
		Type:      TypeResult,
		Agreement: s.agreementID,
		City:      s.city,
		Command:   command,
		Target:    target,
		Result:    result,
	})
}

func (s *Session) setConn(conn *websocket.Conn) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn = conn
}

func (s *Session) send(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return errNotConnected
	}
	return s.conn.WriteJSON(v)
}

func dialWebsocket(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}

// sleepContext pauses for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
