// ABOUTME: Tests for the session lifecycle against an in-process websocket server.
// ABOUTME: Covers registration, dispatch, malformed frames, fatal config, and reconnects.

package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrsnv/ort-agent/internal/probe"
)

// stubRunner records invocations and answers with a canned string. A target
// listed in gates blocks until its gate channel is closed.
type stubRunner struct {
	mu    sync.Mutex
	calls []string
	gates map[string]chan struct{}
}

func (r *stubRunner) Run(_ context.Context, cmd probe.Command, target string) string {
	r.mu.Lock()
	gate := r.gates[target]
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	r.calls = append(r.calls, string(cmd)+" "+target)
	r.mu.Unlock()
	return "ok " + string(cmd) + " " + target
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestServer(t *testing.T) (chan *websocket.Conn, string) {
	t.Helper()
	conns := make(chan *websocket.Conn, 4)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	return conns, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitConn(t *testing.T, conns chan *websocket.Conn) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not connect")
		return nil
	}
}

func readFrame[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	var v T
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&v))
	return v
}

func newTestSession(runner Runner, url string) *Session {
	return New(Params{
		AgreementID:    "7712345",
		City:           "Москва",
		ServerURL:      url,
		Runner:         runner,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		ReconnectDelay: 20 * time.Millisecond,
	})
}

func TestSessionRegistersAndReportsResults(t *testing.T) {
	conns, url := newTestServer(t)
	runner := &stubRunner{}
	sess := newTestSession(runner, url)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	conn := waitConn(t, conns)

	reg := readFrame[Registration](t, conn)
	assert.Equal(t, TypeRegistration, reg.Type)
	assert.Equal(t, "7712345", reg.Data.AgreementID)
	assert.Equal(t, "Москва", reg.Data.City)
	assert.NotEmpty(t, reg.Data.OS)

	require.Eventually(t, func() bool { return sess.State() == StateActive },
		time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ServerMessage{Type: TypeCommand, Command: "ping", Target: "8.8.8.8"}))

	res := readFrame[Result](t, conn)
	assert.Equal(t, TypeResult, res.Type)
	assert.Equal(t, "7712345", res.Agreement)
	assert.Equal(t, "Москва", res.City)
	assert.Equal(t, "ping", res.Command)
	assert.Equal(t, "8.8.8.8", res.Target)
	assert.Equal(t, "ok ping 8.8.8.8", res.Result)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop on context cancellation")
	}
}

func TestSessionEmptyAgreementIsFatal(t *testing.T) {
	conns, url := newTestServer(t)
	runner := &stubRunner{}
	sess := New(Params{
		AgreementID: "",
		City:        "Undefined",
		ServerURL:   url,
		Runner:      runner,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrMissingAgreementID)
	case <-time.After(2 * time.Second):
		t.Fatal("session must terminate on a missing agreement id, not retry")
	}

	// The connection was opened but nothing was ever sent on it.
	conn := waitConn(t, conns)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no registration or result frame may be sent")
	assert.Zero(t, runner.callCount())
}

func TestSessionSkipsMalformedFrames(t *testing.T) {
	conns, url := newTestServer(t)
	runner := &stubRunner{}
	sess := newTestSession(runner, url)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	conn := waitConn(t, conns)
	readFrame[Registration](t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{this is not json")))
	require.NoError(t, conn.WriteJSON(ServerMessage{Type: TypeCommand, Command: "tracert", Target: "example.com"}))

	res := readFrame[Result](t, conn)
	assert.Equal(t, "tracert", res.Command)
	assert.Equal(t, "example.com", res.Target)
}

func TestSessionIgnoresUnknownFrames(t *testing.T) {
	conns, url := newTestServer(t)
	runner := &stubRunner{}
	sess := newTestSession(runner, url)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	conn := waitConn(t, conns)
	readFrame[Registration](t, conn)

	// Unknown message type and unknown command kind: both ignored silently.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "noise"}))
	require.NoError(t, conn.WriteJSON(ServerMessage{Type: TypeCommand, Command: "dns", Target: "example.com"}))
	require.NoError(t, conn.WriteJSON(ServerMessage{Type: TypeCommand, Command: "ping", Target: "8.8.8.8"}))

	res := readFrame[Result](t, conn)
	assert.Equal(t, "ping", res.Command)
	assert.Equal(t, 1, runner.callCount())
}

func TestSessionProbesCompleteOutOfOrder(t *testing.T) {
	conns, url := newTestServer(t)
	gate := make(chan struct{})
	runner := &stubRunner{gates: map[string]chan struct{}{"slow.example": gate}}
	sess := newTestSession(runner, url)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	conn := waitConn(t, conns)
	readFrame[Registration](t, conn)

	require.NoError(t, conn.WriteJSON(ServerMessage{Type: TypeCommand, Command: "tracert", Target: "slow.example"}))
	require.NoError(t, conn.WriteJSON(ServerMessage{Type: TypeCommand, Command: "ping", Target: "fast.example"}))

	// The blocked probe must not stall reception or the fast probe.
	first := readFrame[Result](t, conn)
	assert.Equal(t, "fast.example", first.Target)

	close(gate)
	second := readFrame[Result](t, conn)
	assert.Equal(t, "slow.example", second.Target)
}

func TestSessionReconnectsAfterDrop(t *testing.T) {
	conns, url := newTestServer(t)
	runner := &stubRunner{}
	sess := newTestSession(runner, url)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	first := waitConn(t, conns)
	readFrame[Registration](t, first)
	first.Close()

	// A fresh connection registers again after the fixed delay.
	second := waitConn(t, conns)
	reg := readFrame[Registration](t, second)
	assert.Equal(t, "7712345", reg.Data.AgreementID)
}
