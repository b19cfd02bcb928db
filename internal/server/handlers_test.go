package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, metrics http.Handler) http.Handler {
	t.Helper()
	cfg := testConfig()
	hub := NewHub(cfg, discardLogger())
	stats := func() Stats { return Stats{Connections: 3, Rooms: 2} }
	return SetupRoutes(NewHandlers(cfg, hub, stats, discardLogger()), metrics)
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouter(t, nil), http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "roomrelay server is running!", rec.Body.String())
}

func TestHealthz(t *testing.T) {
	rec := serve(newTestRouter(t, nil), http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["connections"])
	assert.EqualValues(t, 2, body["rooms"])
}

func TestHealthz_DefaultStats(t *testing.T) {
	cfg := testConfig()
	hub := NewHub(cfg, discardLogger())
	router := SetupRoutes(NewHandlers(cfg, hub, nil, discardLogger()), nil)

	rec := serve(router, http.MethodGet, "/healthz")
	assert.JSONEq(t, `{"status":"ok","connections":0,"rooms":0}`, rec.Body.String())
}

func TestTestPage(t *testing.T) {
	rec := serve(newTestRouter(t, nil), http.MethodGet, "/test")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>"))
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/", "/healthz", "/ws", "/test"} {
		rec := serve(router, http.MethodPost, path)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestRoutes_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "metrics")
	})

	rec := serve(newTestRouter(t, metrics), http.MethodGet, "/metrics")
	assert.Equal(t, "metrics", rec.Body.String())

	rec = serve(newTestRouter(t, nil), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()

	newTestRouter(t, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogFormat: "json", LogLevel: "warn"}
	logger := NewLogger(&buf, cfg)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("conn_id", "c1"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "shown", record["msg"])
	assert.Equal(t, "roomrelay", record["service"])
	assert.Equal(t, "c1", record["conn_id"])
}
