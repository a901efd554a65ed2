package cmd

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purelink/purelink/internal/config"
)

func TestActivePortFile(t *testing.T) {
	t.Setenv(config.HomeEnv, t.TempDir())

	assert.Zero(t, readActivePort())

	saveActivePort(1753)
	assert.Equal(t, 1753, readActivePort())

	removeActivePort()
	assert.Zero(t, readActivePort())
	removeActivePort()

	require.NoError(t, os.WriteFile(config.GetPortPath(), []byte("garbage"), 0o644))
	assert.Zero(t, readActivePort())
}

func TestConnectRunning(t *testing.T) {
	t.Setenv(config.HomeEnv, t.TempDir())
	assert.Nil(t, connectRunning())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			_, _ = w.Write([]byte(`{"status":"ok","port":1}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, portStr, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	saveActivePort(port)

	remote := connectRunning()
	require.NotNil(t, remote)
	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d", port), remote.BaseURL)
	assert.Equal(t, ensureAuthToken(), remote.Token)
	_ = remote.Shutdown()

	// a port file left behind by a dead instance
	server.Close()
	assert.Nil(t, connectRunning())
}

func TestReadInput(t *testing.T) {
	text, err := readInput([]string{"a", "b"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "a b", text)

	text, err = readInput(nil, strings.NewReader("line one\nline two\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", text)

	_, err = readInput(nil, strings.NewReader(" \n"))
	assert.Error(t, err)
}

func TestResolveToken(t *testing.T) {
	t.Setenv(config.HomeEnv, t.TempDir())
	t.Setenv(TokenEnv, "")

	token, err := resolveToken("example.com:1750", " flag ")
	require.NoError(t, err)
	assert.Equal(t, "flag", token)

	_, err = resolveToken("example.com:1750", "")
	assert.ErrorContains(t, err, TokenEnv)

	t.Setenv(TokenEnv, "from-env")
	token, err = resolveToken("example.com:1750", "")
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)

	t.Setenv(TokenEnv, "")
	for _, target := range []string{"127.0.0.1:1750", "localhost:1750", "[::1]:1750", "http://127.0.0.1:9"} {
		token, err = resolveToken(target, "")
		require.NoError(t, err, target)
		assert.Equal(t, ensureAuthToken(), token, target)
	}
}

func TestTargetPort(t *testing.T) {
	assert.Equal(t, 1750, targetPort("127.0.0.1:1750"))
	assert.Equal(t, 8080, targetPort("http://host:8080/"))
	assert.Zero(t, targetPort("host"))
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:1750"))
	assert.True(t, isLoopback("localhost"))
	assert.True(t, isLoopback("[::1]:80"))
	assert.False(t, isLoopback("192.168.1.10:1750"))
	assert.False(t, isLoopback("example.com"))
}

func TestListen(t *testing.T) {
	port, ln, err := listen(0, 0)
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	assert.GreaterOrEqual(t, port, config.DefaultPort)

	// an explicit port that is taken is an error, not a fallback
	_, _, err = listen(port, 0)
	assert.Error(t, err)
}

func TestAcquireLock(t *testing.T) {
	t.Setenv(config.HomeEnv, t.TempDir())

	ok, err := AcquireLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = ReleaseLock() }()

	ok, err = AcquireLock()
	require.NoError(t, err)
	assert.True(t, ok, "re-acquiring in the holder is a no-op")

	other := flock.New(lockPath())
	locked, err := other.TryLock()
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, ReleaseLock())
	locked, err = other.TryLock()
	require.NoError(t, err)
	assert.True(t, locked)
	require.NoError(t, other.Unlock())
}
