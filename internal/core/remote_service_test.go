package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purelink/purelink/internal/events"
	"github.com/purelink/purelink/internal/history"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, s)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func newRemoteTestServer(t *testing.T, token string) (*httptest.Server, *callLog) {
	t.Helper()
	calls := &callLog{}
	mux := http.NewServeMux()

	mux.HandleFunc("/clean", func(w http.ResponseWriter, r *http.Request) {
		var req CleanRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		calls.add("clean:" + req.Origin)
		_ = json.NewEncoder(w).Encode(CleanResult{Text: req.Text + "!", Changed: true})
	})
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		calls.add(r.Method + " history?" + r.URL.RawQuery)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode([]history.Item{{ID: 1, Text: "https://a.com/"}})
	})
	mux.HandleFunc("/toggle", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		calls.add(fmt.Sprintf("toggle:%v", body["enabled"]))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Status{Monitoring: true, Cleaned: 7})
	})
	mux.HandleFunc("/rules/update", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "fetch failed", http.StatusBadGateway)
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		_, _ = fmt.Fprint(w, "event: toggled\ndata: {\"enabled\":false}\n\n")
		_, _ = fmt.Fprint(w, "event: unknown\ndata: {}\n\n")
		_, _ = fmt.Fprint(w, "event: cleaned\ndata: {\"original\":\"a\",\"cleaned\":\"b\",\"origin\":\"api\"}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func TestRemoteService_Requests(t *testing.T) {
	server, calls := newRemoteTestServer(t, "secret")
	svc := NewRemoteService(server.URL+"/", "secret")
	defer func() { _ = svc.Shutdown() }()
	ctx := context.Background()

	res, err := svc.Clean(ctx, CleanRequest{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x!", res.Text)

	items, err := svc.History(ctx, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://a.com/", items[0].Text)

	require.NoError(t, svc.ClearHistory(ctx))
	require.NoError(t, svc.SetMonitoring(ctx, false))

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), st.Cleaned)

	_, err = svc.UpdateRules(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	assert.Equal(t, []string{"clean:api", "GET history?limit=5", "DELETE history?", "toggle:false"}, calls.list())
}

func TestRemoteService_Unauthorized(t *testing.T) {
	server, _ := newRemoteTestServer(t, "secret")
	svc := NewRemoteService(server.URL, "wrong")
	defer func() { _ = svc.Shutdown() }()

	_, err := svc.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestRemoteService_StreamEvents(t *testing.T) {
	server, _ := newRemoteTestServer(t, "secret")
	svc := NewRemoteService(server.URL, "secret")
	defer func() { _ = svc.Shutdown() }()

	stream, cleanup, err := svc.StreamEvents(context.Background())
	require.NoError(t, err)

	assert.False(t, waitFor[events.ToggledMsg](t, stream).Enabled)
	msg := waitFor[events.CleanedMsg](t, stream)
	assert.Equal(t, "b", msg.Cleaned)

	cleanup()
	select {
	case _, ok := <-stream:
		for ok {
			_, ok = <-stream
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cleanup")
	}
}

func TestDecodeEvent(t *testing.T) {
	msg, ok := DecodeEvent("rules", []byte(`{"count":3,"source":"remote"}`))
	require.True(t, ok)
	assert.Equal(t, events.RulesUpdatedMsg{Count: 3, Source: "remote"}, msg)

	msg, ok = DecodeEvent("history_cleared", nil)
	require.True(t, ok)
	assert.Equal(t, events.HistoryClearedMsg{}, msg)

	_, ok = DecodeEvent("feedback", []byte(`not json`))
	assert.False(t, ok)

	_, ok = DecodeEvent("progress", []byte(`{}`))
	assert.False(t, ok)

	for _, m := range []interface{}{
		events.CleanedMsg{Cleaned: "x"},
		events.FeedbackMsg{Kind: "pulse"},
		events.ToggledMsg{Enabled: true},
	} {
		data, err := json.Marshal(m)
		require.NoError(t, err)
		back, ok := DecodeEvent(events.Name(m), data)
		require.True(t, ok)
		assert.Equal(t, m, back)
	}
}
