package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogPrecedenceExplicitOverContextOverDefaults(t *testing.T) {
	var received map[string]any
	var mu atomicBool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch wireBatch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		require.Len(t, batch.Logs, 1)
		received = batch.Logs[0]
		mu.set(true)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(Options{
		ServerURL:     server.URL,
		Service:       "default-service",
		FlushInterval: 10 * time.Millisecond,
	})
	defer c.Close()

	ctx := WithUserContext(Background(), map[string]any{"service": "context-service", "user_id": "u1"})
	c.Log(ctx, "INFO", "hello", map[string]any{"service": "explicit-service"})

	require.Eventually(t, mu.get, time.Second, 5*time.Millisecond)
	assert.Equal(t, "explicit-service", received["service"])
	assert.Equal(t, "u1", received["user_id"])
}

func TestLogDropsWhenQueueFull(t *testing.T) {
	var drops int32
	c := &Client{
		opts:  Options{ServerURL: "http://unused", BatchSize: 1000, FlushInterval: time.Hour},
		queue: make(chan entry, 1),
		done:  make(chan struct{}),
		onDrop: func() {
			atomic.AddInt32(&drops, 1)
		},
	}

	c.Log(Background(), "INFO", "first", nil)
	c.Log(Background(), "INFO", "second", nil)

	assert.Equal(t, int32(1), atomic.LoadInt32(&drops))
}

func TestFlushSendsQueuedRecords(t *testing.T) {
	var callCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&callCount, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(Options{ServerURL: server.URL, FlushInterval: time.Hour})
	c.Log(Background(), "INFO", "queued", nil)
	c.Flush()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&callCount), int32(1))
}

func TestUserContextMergeNewKeysWinOnCollision(t *testing.T) {
	ctx := WithUserContext(Background(), map[string]any{"a": 1, "b": 2})
	ctx2 := WithUserContext(ctx, map[string]any{"b": 3, "c": 4})

	merged := mergedContext(ctx2)
	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, 3, merged["b"])
	assert.Equal(t, 4, merged["c"])
}

func TestWithRequestContextReplacesWholesale(t *testing.T) {
	ctx := WithUserContext(Background(), map[string]any{"a": 1})
	ctx2 := WithRequestContext(ctx, map[string]any{"request_id": "r1"})

	merged := mergedContext(ctx2)
	assert.Equal(t, "r1", merged["request_id"])
	_, hasA := merged["a"]
	assert.False(t, hasA)
}

// atomicBool is a tiny helper to avoid pulling in sync/atomic.Bool's need
// for a type alias import juggling in this test file.
type atomicBool struct {
	v int32
}

func (a *atomicBool) set(b bool) {
	if b {
		atomic.StoreInt32(&a.v, 1)
	} else {
		atomic.StoreInt32(&a.v, 0)
	}
}

func (a *atomicBool) get() bool {
	return atomic.LoadInt32(&a.v) == 1
}
