package server

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T, cfg Config, lc Lifecycle) *Hub {
	t.Helper()
	hub := NewHub(cfg, discardLogger())
	if lc != nil {
		hub.Bind(lc)
	}
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })
	return hub
}

func TestNewClient(t *testing.T) {
	cfg := testConfig()
	cfg.SendBufferSize = 8
	hub := NewHub(cfg, discardLogger())

	client := NewClient("c1", nil, hub, "127.0.0.1:12345")

	require.NotNil(t, client)
	assert.Equal(t, "c1", client.ID())
	assert.Equal(t, 8, cap(client.send))
	assert.NotNil(t, client.GetSendChan())
}

func TestHub_RegisterOpensAndUnregisterCloses(t *testing.T) {
	lc := &fakeLifecycle{}
	hub := runHub(t, testConfig(), lc)

	client := NewClient("c1", nil, hub, "127.0.0.1:1")
	require.NoError(t, hub.Register(client))
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Send("c1", []byte("hello")))
	assert.Equal(t, []byte("hello"), <-client.GetSendChan())

	hub.leave(client)
	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"c1"}, lc.closedIDs())

	_, open := <-client.GetSendChan()
	assert.False(t, open, "send channel must be closed after unregister")
	assert.ErrorIs(t, hub.Send("c1", []byte("late")), ErrClientGone)
}

func TestHub_RejectedOpen(t *testing.T) {
	lc := &fakeLifecycle{openErr: errors.New("duplicate")}
	hub := runHub(t, testConfig(), lc)

	client := NewClient("c1", nil, hub, "127.0.0.1:1")
	require.NoError(t, hub.Register(client))

	select {
	case _, open := <-client.GetSendChan():
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("rejected client was not closed")
	}
	assert.Equal(t, 0, hub.Len())
}

func TestHub_DuplicateClientID(t *testing.T) {
	hub := runHub(t, testConfig(), &fakeLifecycle{})

	first := NewClient("same", nil, hub, "127.0.0.1:1")
	second := NewClient("same", nil, hub, "127.0.0.1:2")
	require.NoError(t, hub.Register(first))
	require.NoError(t, hub.Register(second))

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hub.Send("same", []byte("x")))
	assert.Equal(t, []byte("x"), <-first.GetSendChan())
}

func TestHub_SendEvictsClientWithFullBuffer(t *testing.T) {
	cfg := testConfig()
	cfg.SendBufferSize = 1
	lc := &fakeLifecycle{}
	hub := runHub(t, cfg, lc)

	client := NewClient("slow", nil, hub, "127.0.0.1:1")
	require.NoError(t, hub.Register(client))
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Send("slow", []byte("1")))
	assert.ErrorIs(t, hub.Send("slow", []byte("2")), ErrSendBufferFull)

	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"slow"}, lc.closedIDs())
}

func TestHub_ConcurrentSendAndLeave(t *testing.T) {
	hub := runHub(t, testConfig(), &fakeLifecycle{})

	client := NewClient("c1", nil, hub, "127.0.0.1:1")
	require.NoError(t, hub.Register(client))
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	go func() {
		for range client.GetSendChan() {
		}
	}()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				err := hub.Send("c1", []byte("x"))
				if err != nil && !errors.Is(err, ErrClientGone) && !errors.Is(err, ErrSendBufferFull) {
					t.Errorf("unexpected send error: %v", err)
				}
			}
		}()
	}
	hub.leave(client)
	wg.Wait()
}

func TestHub_RegisterAfterShutdown(t *testing.T) {
	hub := NewHub(testConfig(), discardLogger())
	go hub.Run()
	require.NoError(t, hub.Shutdown(time.Second))

	err := hub.Register(NewClient("late", nil, hub, "127.0.0.1:1"))
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_ShutdownWithoutClients(t *testing.T) {
	hub := NewHub(testConfig(), discardLogger())
	go hub.Run()

	start := time.Now()
	require.NoError(t, hub.Shutdown(time.Second))
	assert.Less(t, time.Since(start), time.Second)
}
