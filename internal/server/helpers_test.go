package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:8080"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.RateLimit.Burst = 100
	return cfg
}

// startTestApp runs a fully wired relay behind an httptest server and
// returns it with the ws:// URL of its upgrade endpoint.
func startTestApp(t *testing.T, customize func(cfg *Config)) (*App, *httptest.Server, string) {
	t.Helper()

	cfg := testConfig()
	if customize != nil {
		customize(&cfg)
	}

	app := NewApp(cfg, discardLogger())
	app.Start()
	t.Cleanup(func() { _ = app.Shutdown(2 * time.Second) })

	srv := httptest.NewServer(app.Handler)
	t.Cleanup(srv.Close)

	return app, srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	header.Set("Origin", testOrigin)
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	conn, resp, err := dialer.Dial(wsURL, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// dialReady connects and consumes the greeting, which guarantees the
// connection is registered before the test continues.
func dialReady(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn := dial(t, wsURL)
	event, _ := readFrame(t, conn)
	require.Equal(t, "connected", event)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &frame), string(raw))
	return frame.Event, frame.Data
}

// expectNoFrame asserts nothing arrives within timeout. The connection is
// unusable for reads afterwards.
func expectNoFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no frame, got %s", raw)
	}
}

func sendFrame(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

// fakeLifecycle records hub callbacks.
type fakeLifecycle struct {
	mu       sync.Mutex
	openErr  error
	opened   []string
	closing  []string
	closed   []string
	frames   [][]byte
	dispatch bool
}

func (f *fakeLifecycle) OnOpen(_ context.Context, connID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = append(f.opened, connID)
	return nil
}

func (f *fakeLifecycle) OnClosing(connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closing = append(f.closing, connID)
}

func (f *fakeLifecycle) OnClose(connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, connID)
}

func (f *fakeLifecycle) Dispatch(_ context.Context, _ string, frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return f.dispatch
}

func (f *fakeLifecycle) closedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.closed...)
}
