package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/purelink/purelink/internal/clipboard"
	"github.com/purelink/purelink/internal/config"
	"github.com/purelink/purelink/internal/core"
	"github.com/purelink/purelink/internal/history"
	"github.com/purelink/purelink/internal/rules"
	"github.com/purelink/purelink/internal/utils"
)

// readActivePort reads the port from the port file
func readActivePort() int {
	data, err := os.ReadFile(config.GetPortPath())
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return port
}

// saveActivePort writes the active port to a file for CLI commands to discover
func saveActivePort(port int) {
	path := config.GetPortPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		utils.Debug("Error creating port directory: %v", err)
		return
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(port)), 0o644); err != nil {
		utils.Debug("Error writing port file: %v", err)
	}
}

// removeActivePort removes the port file
func removeActivePort() {
	if err := os.Remove(config.GetPortPath()); err != nil && !os.IsNotExist(err) {
		utils.Debug("Error removing port file: %v", err)
	}
}

// healthy reports whether a PureLink API answers on baseURL.
func healthy(baseURL string) bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var body struct {
		Status string `json:"status"`
	}
	return json.NewDecoder(resp.Body).Decode(&body) == nil && body.Status == "ok"
}

// connectRunning returns a client for the local running instance, or nil
// when none answers.
func connectRunning() *core.RemoteService {
	port := readActivePort()
	if port <= 0 {
		return nil
	}
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if !healthy(baseURL) {
		return nil
	}
	return core.NewRemoteService(baseURL, ensureAuthToken())
}

// openService is swapped in tests.
var openService = serviceFor

// serviceFor returns the running instance's service when there is one.
// Otherwise it builds an offline LocalService over the saved rules and the
// shared history database. Callers must Shutdown the result.
func serviceFor() core.Service {
	if remote := connectRunning(); remote != nil {
		return remote
	}

	initializeGlobalState()
	settings := loadSettings()
	store := rules.NewStore()
	fetcher := rules.NewFetcher(settings.Rules.SourceURL, config.GetRulesPath(), settings.Rules.FetchTimeout, store)
	fetcher.LoadSaved()

	var svc *core.LocalService
	if clipboard.Available() {
		svc = core.NewLocalService(store, fetcher, newProcessor(store, settings), clipboard.NewSystem(settings.Watch.PollInterval), nil)
	} else {
		svc = core.NewLocalService(store, fetcher, newProcessor(store, settings), nil, nil)
	}
	return &offlineService{LocalService: svc}
}

// offlineService closes the history database along with the service.
type offlineService struct {
	*core.LocalService
}

func (s *offlineService) Shutdown() error {
	err := s.LocalService.Shutdown()
	history.CloseDB()
	return err
}

// readInput joins args, or reads all of stdin when there are none.
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	text := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(text) == "" {
		return "", errors.New("nothing to clean: pass text as arguments or on stdin")
	}
	return text, nil
}

// isLoopback reports whether a host[:port] target names this machine.
func isLoopback(target string) bool {
	host := target
	if h, _, err := net.SplitHostPort(target); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
