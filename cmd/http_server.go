package cmd

import (
	"context"
	"crypto/subtle"
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

	"github.com/google/uuid"

	"github.com/purelink/purelink/internal/config"
	"github.com/purelink/purelink/internal/core"
	"github.com/purelink/purelink/internal/events"
	"github.com/purelink/purelink/internal/history"
	"github.com/purelink/purelink/internal/rules"
	"github.com/purelink/purelink/internal/utils"
	"github.com/purelink/purelink/internal/version"
)

// maxRequestBody caps JSON request bodies.
const maxRequestBody = 1 << 20

// APIHandler handles HTTP API requests
type APIHandler struct {
	service core.Service
	port    int
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(service core.Service, port int) *APIHandler {
	return &APIHandler{service: service, port: port}
}

// ToggleRequest sets the monitoring switch. A missing Enabled flips it.
type ToggleRequest struct {
	Enabled *bool `json:"enabled,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Debug("Failed to encode response: %v", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer func() {
		if err := body.Close(); err != nil {
			utils.Debug("Error closing body: %v", err)
		}
	}()
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Health check endpoint (Public)
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"port":    h.port,
		"version": version.Version,
	})
}

// Status endpoint (Protected)
func (h *APIHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st, err := h.service.Status(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Clean endpoint (Protected)
func (h *APIHandler) Clean(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req core.CleanRequest
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Origin == "" {
		req.Origin = core.OriginAPI
	}

	result, err := h.service.Clean(r.Context(), req)
	switch {
	case errors.Is(err, core.ErrEmptyText):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, core.ErrNoClipboard):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// History endpoint (Protected). GET lists, DELETE clears.
func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
				return
			}
			limit = n
		}
		items, err := h.service.History(r.Context(), limit)
		if err != nil {
			http.Error(w, "Failed to retrieve history: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []history.Item{}
		}
		writeJSON(w, http.StatusOK, items)

	case http.MethodDelete:
		if err := h.service.ClearHistory(r.Context()); err != nil {
			http.Error(w, "Failed to clear history: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Toggle endpoint (Protected). GET reads the switch, POST sets or flips it.
func (h *APIHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st, err := h.service.Status(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": st.Monitoring})
		return
	}

	var req ToggleRequest
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	enabled := !st.Monitoring
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	if err := h.service.SetMonitoring(r.Context(), enabled); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// RulesUpdate endpoint (Protected)
func (h *APIHandler) RulesUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	info, err := h.service.UpdateRules(r.Context())
	if err != nil {
		http.Error(w, "Rules update failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// RulesImport endpoint (Protected). The body is a rules payload.
func (h *APIHandler) RulesImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	names, err := rules.ParsePayload(data)
	if err != nil {
		http.Error(w, "Invalid rules: "+err.Error(), http.StatusBadRequest)
		return
	}
	info, err := h.service.ImportRules(r.Context(), names)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// RulesReset endpoint (Protected)
func (h *APIHandler) RulesReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	info, err := h.service.ResetRules(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Events endpoint (Protected)
func (h *APIHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	stream, cleanup, err := h.service.StreamEvents(r.Context())
	if err != nil {
		http.Error(w, "Failed to subscribe to events", http.StatusInternalServerError)
		return
	}
	defer cleanup()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	done := r.Context().Done()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-stream:
			if !ok {
				return
			}
			name := events.Name(msg)
			if name == "" {
				continue
			}
			data, err := json.Marshal(msg)
			if err != nil {
				utils.Debug("Error marshaling event: %v", err)
				continue
			}
			// SSE Format:
			// event: <type>
			// data: <json>
			_, _ = fmt.Fprintf(w, "event: %s\n", name)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// newAPIMux registers all endpoints behind auth and CORS.
func newAPIMux(service core.Service, port int, authToken string) http.Handler {
	handler := NewAPIHandler(service, port)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/status", handler.Status)
	mux.HandleFunc("/clean", handler.Clean)
	mux.HandleFunc("/history", handler.History)
	mux.HandleFunc("/toggle", handler.Toggle)
	mux.HandleFunc("/rules/update", handler.RulesUpdate)
	mux.HandleFunc("/rules/import", handler.RulesImport)
	mux.HandleFunc("/rules/reset", handler.RulesReset)
	mux.HandleFunc("/events", handler.Events)

	// CORS outermost so 401 responses carry the headers too
	return corsMiddleware(authMiddleware(authToken, mux))
}

// startHTTPServer serves the API on ln until ctx is done.
func startHTTPServer(ctx context.Context, ln net.Listener, port int, service core.Service) {
	server := &http.Server{
		Handler:           newAPIMux(service, port, ensureAuthToken()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	utils.Debug("HTTP server listening on port %d", port)
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		utils.Debug("HTTP server error: %v", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func authMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Allow health check without auth
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			providedToken := strings.TrimPrefix(authHeader, "Bearer ")
			if len(providedToken) == len(token) && subtle.ConstantTimeCompare([]byte(providedToken), []byte(token)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}

		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func tokenPath() string {
	return filepath.Join(config.GetPureLinkDir(), "token")
}

// ensureAuthToken returns the API token, creating it on first use.
func ensureAuthToken() string {
	tokenFile := tokenPath()
	data, err := os.ReadFile(tokenFile)
	if err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token
		}
	}

	token := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(tokenFile), 0o755); err != nil {
		utils.Debug("Failed to create token directory: %v", err)
	}
	if err := os.WriteFile(tokenFile, []byte(token), 0o600); err != nil {
		utils.Debug("Failed to write token file: %v", err)
	}
	return token
}
