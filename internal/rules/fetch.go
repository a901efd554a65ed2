package rules

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/purelink/purelink/internal/utils"
	"github.com/purelink/purelink/internal/version"
)

// maxPayloadSize caps how much of a rules response is read.
const maxPayloadSize = 1 << 20

// Fetcher downloads, validates and persists the remote blocklist and
// publishes it to a Store.
type Fetcher struct {
	URL    string
	Path   string // persisted copy, survives restarts
	Store  *Store
	Client *http.Client
}

// NewFetcher creates a Fetcher with its own timeout-bound client.
func NewFetcher(url, path string, timeout time.Duration, store *Store) *Fetcher {
	return &Fetcher{
		URL:    url,
		Path:   path,
		Store:  store,
		Client: &http.Client{Timeout: timeout},
	}
}

// Update fetches the remote rules, persists them and swaps them in. Any
// failure leaves both the active rules and the persisted copy untouched.
func (f *Fetcher) Update(ctx context.Context) error {
	data, err := f.fetch(ctx)
	if err != nil {
		return err
	}

	names, err := ParsePayload(data)
	if err != nil {
		return fmt.Errorf("invalid rules payload: %w", err)
	}

	if err := f.persist(names); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}

	return f.Store.Reload(names, SourceRemote)
}

func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rules request: %w", err)
	}
	version.SetClientUserAgent(req.Header)
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rules: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rules server returned status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	return data, nil
}

// persist writes names atomically to f.Path.
func (f *Fetcher) persist(names []string) error {
	data, err := Marshal(names)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	tempPath := f.Path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tempPath, f.Path)
}

// LoadSaved publishes the persisted rules, if any. It returns false when
// there is no usable saved copy and the store keeps what it has.
func (f *Fetcher) LoadSaved() bool {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			utils.Debug("Rules: failed to read %s: %v", f.Path, err)
		}
		return false
	}
	if err := f.Store.ReloadPayload(data, SourceCached); err != nil {
		utils.Debug("Rules: ignoring saved rules: %v", err)
		return false
	}
	return true
}

// Import loads a local JSON or YAML rules file, persists it and swaps it in.
func (f *Fetcher) Import(path string) error {
	names, err := ParseFile(path)
	if err != nil {
		return fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return f.Apply(names)
}

// Apply persists names and swaps them in as user-supplied rules. An empty
// list is rejected before anything is written.
func (f *Fetcher) Apply(names []string) error {
	if New(names).Len() == 0 {
		return ErrEmptyRuleSet
	}
	if err := f.persist(names); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}
	return f.Store.Reload(names, SourceFile)
}

// Reset deletes the persisted rules and restores the built-in list.
func (f *Fetcher) Reset() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	f.Store.Reset()
	return nil
}
