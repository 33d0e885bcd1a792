package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/agentpipe/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope wraps an inner payload the way the gateway does: the real JSON is
// a string under "body".
func envelope(t *testing.T, inner map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(inner)
	require.NoError(t, err)
	out, err := json.Marshal(map[string]string{"body": string(body)})
	require.NoError(t, err)
	return out
}

func newPollingBackend(t *testing.T, completeAfter int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "user", payload["role"])
		require.NotEmpty(t, payload["message"])

		_, _ = w.Write(envelope(t, map[string]any{"threadId": "thread-42", "status": "processing"}))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("threadId") == "" {
			// Health probes arrive without a thread; reachable but invalid.
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		require.Equal(t, "thread-42", r.URL.Query().Get("threadId"))

		if polls.Add(1) < completeAfter {
			_, _ = w.Write(envelope(t, map[string]any{"threadId": "thread-42", "status": "processing"}))
			return
		}
		_, _ = w.Write(envelope(t, map[string]any{
			"threadId": "thread-42",
			"status":   "completed",
			"response": "Enroll in the smart thermostat program.",
		}))
	})

	return httptest.NewServer(mux), &polls
}

func TestPolling_Invoke_SubmitsAndPollsToCompletion(t *testing.T) {
	srv, polls := newPollingBackend(t, 3)
	defer srv.Close()

	p := NewPolling(func(o *PollingOptions) { o.PollInterval = 5 * time.Millisecond })

	out, err := p.Invoke(context.Background(), map[string]any{
		"endpoint_url":  srv.URL,
		"system_prompt": "You are an energy consultant.",
	}, core.Request{Task: "recommend programs", Data: map[string]any{"home_type": "apartment"}})
	require.NoError(t, err)

	assert.Equal(t, "Enroll in the smart thermostat program.", out["response"])
	assert.Equal(t, "thread-42", out["thread_id"])
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestPolling_Invoke_TerminalError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/message", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(envelope(t, map[string]any{"threadId": "thread-7", "status": "processing"}))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(envelope(t, map[string]any{"threadId": "thread-7", "status": "error", "error": "model overloaded"}))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewPolling(func(o *PollingOptions) { o.PollInterval = 5 * time.Millisecond })

	_, err := p.Invoke(context.Background(), map[string]any{"endpoint_url": srv.URL}, core.Request{Task: "t"})
	assert.ErrorContains(t, err, "model overloaded")
}

func TestPolling_Invoke_DeadlineStopsLoop(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/message", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(envelope(t, map[string]any{"threadId": "thread-9", "status": "processing"}))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(envelope(t, map[string]any{"threadId": "thread-9", "status": "processing"}))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := NewPolling(func(o *PollingOptions) { o.PollInterval = 5 * time.Millisecond })

	_, err := p.Invoke(ctx, map[string]any{"endpoint_url": srv.URL}, core.Request{Task: "t"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPolling_Invoke_MissingThreadID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/message", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(envelope(t, map[string]any{"status": "processing"}))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewPolling()
	_, err := p.Invoke(context.Background(), map[string]any{"endpoint_url": srv.URL}, core.Request{Task: "t"})
	assert.ErrorContains(t, err, "no threadId")
}

func TestPolling_Health(t *testing.T) {
	srv, _ := newPollingBackend(t, 1)

	p := NewPolling()
	assert.True(t, p.Health(context.Background(), map[string]any{"endpoint_url": srv.URL}))
	assert.False(t, p.Health(context.Background(), map[string]any{}))

	srv.Close()
	assert.False(t, p.Health(context.Background(), map[string]any{"endpoint_url": srv.URL}))
}
