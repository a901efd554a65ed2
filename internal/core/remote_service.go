package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/purelink/purelink/internal/events"
	"github.com/purelink/purelink/internal/history"
)

// RemoteService implements Service against a running instance's API.
type RemoteService struct {
	BaseURL string
	Token   string
	Client  *http.Client
	ctx     context.Context
	cancel  context.CancelFunc
}

var _ Service = (*RemoteService)(nil)

// NewRemoteService creates a new remote service instance.
func NewRemoteService(baseURL string, token string) *RemoteService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RemoteService{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 30 * time.Second},
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *RemoteService) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		// Limit error body read to 1KB
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	return resp, nil
}

func (s *RemoteService) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := s.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *RemoteService) Clean(ctx context.Context, req CleanRequest) (CleanResult, error) {
	var result CleanResult
	if req.Origin == "" {
		req.Origin = OriginAPI
	}
	err := s.doJSON(ctx, http.MethodPost, "/clean", req, &result)
	return result, err
}

func (s *RemoteService) History(ctx context.Context, limit int) ([]history.Item, error) {
	var items []history.Item
	err := s.doJSON(ctx, http.MethodGet, "/history?limit="+strconv.Itoa(limit), nil, &items)
	return items, err
}

func (s *RemoteService) ClearHistory(ctx context.Context) error {
	return s.doJSON(ctx, http.MethodDelete, "/history", nil, nil)
}

func (s *RemoteService) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.doJSON(ctx, http.MethodGet, "/status", nil, &st)
	return st, err
}

func (s *RemoteService) SetMonitoring(ctx context.Context, enabled bool) error {
	return s.doJSON(ctx, http.MethodPost, "/toggle", map[string]bool{"enabled": enabled}, nil)
}

func (s *RemoteService) UpdateRules(ctx context.Context) (RulesInfo, error) {
	var info RulesInfo
	err := s.doJSON(ctx, http.MethodPost, "/rules/update", nil, &info)
	return info, err
}

func (s *RemoteService) ImportRules(ctx context.Context, names []string) (RulesInfo, error) {
	var info RulesInfo
	err := s.doJSON(ctx, http.MethodPost, "/rules/import", map[string][]string{"blocklist": names}, &info)
	return info, err
}

func (s *RemoteService) ResetRules(ctx context.Context) (RulesInfo, error) {
	var info RulesInfo
	err := s.doJSON(ctx, http.MethodPost, "/rules/reset", nil, &info)
	return info, err
}

// Shutdown stops the event stream.
func (s *RemoteService) Shutdown() error {
	s.cancel()
	return nil
}

// StreamEvents returns a channel fed from the /events SSE stream. The
// stream reconnects with backoff until ctx is done, cleanup is called or
// the service shuts down.
func (s *RemoteService) StreamEvents(ctx context.Context) (<-chan interface{}, func(), error) {
	streamCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.ctx.Done():
			cancel()
		case <-streamCtx.Done():
		}
	}()

	ch := make(chan interface{}, 100)
	go s.streamWithReconnect(streamCtx, ch)
	return ch, cancel, nil
}

func (s *RemoteService) streamWithReconnect(ctx context.Context, ch chan interface{}) {
	defer close(ch)
	backoff := 1 * time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		err := s.connectSSE(ctx, ch)
		if err == nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *RemoteService) connectSSE(ctx context.Context, ch chan interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/events", nil)
	if err != nil {
		return err
	}

	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// the stream outlives any client timeout
	client := *s.Client
	client.Timeout = 0
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to connect to event stream: %s", resp.Status)
	}

	reader := bufio.NewReader(resp.Body)
	var eventType string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			msg, ok := DecodeEvent(eventType, []byte(strings.TrimPrefix(line, "data: ")))
			eventType = ""
			if !ok {
				continue
			}
			select {
			case ch <- msg:
			default:
				// Drop message if channel is full to prevent blocking the reader
			}
		}
	}
}

// DecodeEvent turns an SSE event name and JSON payload back into the
// matching events type.
func DecodeEvent(name string, data []byte) (interface{}, bool) {
	var (
		msg interface{}
		err error
	)
	switch name {
	case "cleaned":
		var m events.CleanedMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case "feedback":
		var m events.FeedbackMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case "toggled":
		var m events.ToggledMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case "rules":
		var m events.RulesUpdatedMsg
		err = json.Unmarshal(data, &m)
		msg = m
	case "history_cleared":
		msg = events.HistoryClearedMsg{}
	default:
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	return msg, true
}
