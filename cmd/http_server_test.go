package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purelink/purelink/internal/cleaner"
	"github.com/purelink/purelink/internal/clipboard"
	"github.com/purelink/purelink/internal/config"
	"github.com/purelink/purelink/internal/core"
	"github.com/purelink/purelink/internal/events"
	"github.com/purelink/purelink/internal/history"
	"github.com/purelink/purelink/internal/rules"
	"github.com/purelink/purelink/internal/testutil"
)

const testToken = "test-token"

// newTestLocal isolates all purelink paths under a temp dir and returns a
// service over a memory clipboard.
func newTestLocal(t *testing.T) (*core.LocalService, *clipboard.Memory) {
	t.Helper()
	testutil.Home(t)

	store := rules.NewStore()
	fetcher := rules.NewFetcher("http://127.0.0.1:1/rules.json", config.GetRulesPath(), time.Second, store)
	proc := cleaner.NewProcessor(store, cleaner.NewResolver(time.Second, ""))
	clip := clipboard.NewMemory()
	svc := core.NewLocalService(store, fetcher, proc, clip, nil)
	t.Cleanup(func() { _ = svc.Shutdown() })
	return svc, clip
}

func newTestAPI(t *testing.T) (*httptest.Server, *core.LocalService, *clipboard.Memory) {
	t.Helper()
	svc, clip := newTestLocal(t)
	server := httptest.NewServer(newAPIMux(svc, 1750, testToken))
	t.Cleanup(server.Close)
	return server, svc, clip
}

func call(t *testing.T, server *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAPI_HealthIsPublic(t *testing.T) {
	server, _, _ := newTestAPI(t)

	resp := call(t, server, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]interface{}](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1750), body["port"])
}

func TestAPI_RequiresToken(t *testing.T) {
	server, _, _ := newTestAPI(t)

	for _, token := range []string{"", "wrong", testToken + "x"} {
		resp := call(t, server, http.MethodGet, "/status", token, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "token %q", token)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	resp := call(t, server, http.MethodOptions, "/clean", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, server, http.MethodGet, "/status", testToken, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_Clean(t *testing.T) {
	server, svc, clip := newTestAPI(t)

	stream, cleanup, err := svc.StreamEvents(context.Background())
	require.NoError(t, err)
	defer cleanup()

	resp := call(t, server, http.MethodPost, "/clean", testToken, `{"text": "https://a.com/?utm_source=x&id=5", "copy": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[core.CleanResult](t, resp)
	assert.Equal(t, "https://a.com/?id=5", result.Text)
	assert.True(t, result.Changed)
	assert.True(t, result.Copied)
	assert.Equal(t, "https://a.com/?id=5", clip.Current().Text)

	select {
	case msg := <-stream:
		cleaned, ok := msg.(events.CleanedMsg)
		require.True(t, ok, "got %T", msg)
		assert.Equal(t, core.OriginAPI, cleaned.Origin)
	case <-time.After(time.Second):
		t.Fatal("no cleaned event")
	}

	resp = call(t, server, http.MethodPost, "/clean", testToken, `{"text": "  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, server, http.MethodPost, "/clean", testToken, `{"text": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, server, http.MethodGet, "/clean", testToken, "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAPI_CleanCopyWithoutClipboard(t *testing.T) {
	svc, _ := newTestLocal(t)
	svc.Clipboard = nil
	server := httptest.NewServer(newAPIMux(svc, 1750, testToken))
	defer server.Close()

	resp := call(t, server, http.MethodPost, "/clean", testToken, `{"text": "https://a.com/", "copy": true}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_History(t *testing.T) {
	server, svc, _ := newTestAPI(t)
	ctx := context.Background()

	resp := call(t, server, http.MethodGet, "/history", testToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]history.Item](t, resp))

	require.NoError(t, svc.Record(ctx, "https://a.com/?si=1", "https://a.com/"))
	require.NoError(t, svc.Record(ctx, "https://b.com/?si=1", "https://b.com/"))

	resp = call(t, server, http.MethodGet, "/history?limit=1", testToken, "")
	items := decode[[]history.Item](t, resp)
	require.Len(t, items, 1)
	assert.Equal(t, "https://b.com/", items[0].Text)

	resp = call(t, server, http.MethodGet, "/history?limit=x", testToken, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, server, http.MethodDelete, "/history", testToken, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	left, err := svc.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestAPI_Toggle(t *testing.T) {
	server, _, _ := newTestAPI(t)

	resp := call(t, server, http.MethodGet, "/toggle", testToken, "")
	assert.Equal(t, map[string]bool{"enabled": true}, decode[map[string]bool](t, resp))

	resp = call(t, server, http.MethodPost, "/toggle", testToken, "")
	assert.Equal(t, map[string]bool{"enabled": false}, decode[map[string]bool](t, resp))
	assert.False(t, config.Toggle{}.Enabled())

	resp = call(t, server, http.MethodPost, "/toggle", testToken, `{"enabled": false}`)
	assert.Equal(t, map[string]bool{"enabled": false}, decode[map[string]bool](t, resp))

	resp = call(t, server, http.MethodPost, "/toggle", testToken, `{"enabled": true}`)
	assert.Equal(t, map[string]bool{"enabled": true}, decode[map[string]bool](t, resp))
	assert.True(t, config.Toggle{}.Enabled())
}

func TestAPI_Rules(t *testing.T) {
	server, svc, _ := newTestAPI(t)

	resp := call(t, server, http.MethodPost, "/rules/import", testToken, `{"blocklist": ["foo", "bar"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := decode[core.RulesInfo](t, resp)
	assert.Equal(t, 2, info.Count)
	assert.Equal(t, string(rules.SourceFile), info.Source)

	resp = call(t, server, http.MethodPost, "/rules/import", testToken, `{"rules": ["foo"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 2, svc.Store.Current().Rules.Len())

	// the fetcher points at a closed port
	resp = call(t, server, http.MethodPost, "/rules/update", testToken, "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 2, svc.Store.Current().Rules.Len())

	resp = call(t, server, http.MethodPost, "/rules/reset", testToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info = decode[core.RulesInfo](t, resp)
	assert.Equal(t, string(rules.SourceDefault), info.Source)
	assert.Equal(t, rules.Default().Len(), info.Count)
}

func TestAPI_RulesUpdate(t *testing.T) {
	server, svc, _ := newTestAPI(t)

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"blocklist": ["one", "two", "three"]}`))
	}))
	defer remote.Close()
	svc.Fetcher.URL = remote.URL

	resp := call(t, server, http.MethodPost, "/rules/update", testToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := decode[core.RulesInfo](t, resp)
	assert.Equal(t, 3, info.Count)
	assert.Equal(t, string(rules.SourceRemote), info.Source)
}

func TestAPI_Events(t *testing.T) {
	server, svc, _ := newTestAPI(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// subscribed before the headers were flushed
	svc.Publish(events.ToggledMsg{Enabled: false})

	lines := make(chan string, 4)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				lines <- line
			}
		}
		close(lines)
	}()

	var got []string
	for len(got) < 2 {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream ended early")
			got = append(got, line)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []string{"event: toggled", `data: {"enabled":false}`}, got)
}

func TestAPI_RemoteServiceRoundTrip(t *testing.T) {
	server, _, _ := newTestAPI(t)
	remote := core.NewRemoteService(server.URL, testToken)
	defer func() { _ = remote.Shutdown() }()
	ctx := context.Background()

	res, err := remote.Clean(ctx, core.CleanRequest{Text: "https://a.com/?gclid=1"})
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/", res.Text)

	items, err := remote.History(ctx, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, remote.SetMonitoring(ctx, false))
	st, err := remote.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Monitoring)
	assert.Equal(t, int64(1), st.Cleaned)

	_, err = core.NewRemoteService(server.URL, "nope").Status(ctx)
	assert.ErrorContains(t, err, "401")
}

func TestEnsureAuthToken(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)

	token := ensureAuthToken()
	require.NotEmpty(t, token)
	assert.Equal(t, token, ensureAuthToken())

	info, err := os.Stat(filepath.Join(home, "token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, os.WriteFile(filepath.Join(home, "token"), []byte("  custom\n"), 0o600))
	assert.Equal(t, "custom", ensureAuthToken())
}

func TestStartHTTPServer_StopsWithContext(t *testing.T) {
	svc, _ := newTestLocal(t)
	port, ln := findAvailablePort(config.DefaultPort + 50)
	require.NotNil(t, ln)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		startHTTPServer(ctx, ln, port, svc)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return healthy("http://" + ln.Addr().String())
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]int{"n": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
	assert.True(t, bytes.HasSuffix(rec.Body.Bytes(), []byte("\n")))
}
