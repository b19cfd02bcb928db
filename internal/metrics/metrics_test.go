package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomrelay/internal/relay"
)

func TestCollector_ObserveDelivery(t *testing.T) {
	c := New(func() int { return 3 }, func() int { return 1 })

	env := relay.NewEnvelope(relay.Room("r"), "a", []byte("x"))
	c.ObserveDelivery(env, relay.DeliveryReport{Targeted: 3, Succeeded: 2, Failed: 1})
	c.ObserveDelivery(relay.NewEnvelope(relay.Broadcast(), "a", nil), relay.DeliveryReport{Targeted: 1, Succeeded: 1})

	assert.InDelta(t, 1, testutil.ToFloat64(c.envelopes.WithLabelValues("room")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.envelopes.WithLabelValues("broadcast")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(c.deliveries.WithLabelValues("succeeded")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.deliveries.WithLabelValues("failed")), 0)
}

func TestCollector_FrameDropped(t *testing.T) {
	c := New(func() int { return 0 }, func() int { return 0 })

	c.FrameDropped("rate_limited")
	c.FrameDropped("rate_limited")
	c.FrameDropped("malformed")

	assert.InDelta(t, 2, testutil.ToFloat64(c.dropped.WithLabelValues("rate_limited")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.dropped.WithLabelValues("malformed")), 0)
}

func TestCollector_Handler(t *testing.T) {
	c := New(func() int { return 7 }, func() int { return 2 })

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "roomrelay_connections 7")
	assert.Contains(t, string(body), "roomrelay_rooms 2")
}
