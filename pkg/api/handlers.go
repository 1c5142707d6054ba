// Package api serves the dashboard read surface: event lists, health, and
// schema initialization.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"hookboard/pkg/storage"
)

const notInitializedMessage = "Database tables not initialized. Please initialize the database first."

type eventsResponse struct {
	Success   bool        `json:"success"`
	Events    interface{} `json:"events"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	NeedsInit bool        `json:"needsInit"`
}

// GitHubEventsHandler lists recent normalized GitHub events, newest first.
type GitHubEventsHandler struct {
	Store  storage.GitHubEventStore
	Logger *log.Logger
}

func (h *GitHubEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, needsInit, err := h.Store.List(r.Context(), storage.DefaultListLimit)
	if err != nil {
		writeListError(w, h.Logger, "failed to fetch GitHub events", err)
		return
	}
	if needsInit {
		writeJSON(w, http.StatusOK, eventsResponse{
			Success:   true,
			Events:    []storage.GitHubEventRecord{},
			Message:   notInitializedMessage,
			NeedsInit: true,
		})
		return
	}

	writeJSON(w, http.StatusOK, eventsResponse{Success: true, Events: records})
}

// WebhookEventsHandler lists recent generic webhook events, newest first.
type WebhookEventsHandler struct {
	Store  storage.WebhookEventStore
	Logger *log.Logger
}

func (h *WebhookEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, needsInit, err := h.Store.List(r.Context(), storage.DefaultListLimit)
	if err != nil {
		writeListError(w, h.Logger, "failed to fetch webhook events", err)
		return
	}
	if needsInit {
		writeJSON(w, http.StatusOK, eventsResponse{
			Success:   true,
			Events:    []storage.WebhookEventRecord{},
			Message:   notInitializedMessage,
			NeedsInit: true,
		})
		return
	}

	writeJSON(w, http.StatusOK, eventsResponse{Success: true, Events: records})
}

// writeListError distinguishes a not-yet-initialized schema (a soft 200
// condition) from a genuine failure. The message-content check mirrors the
// store classification for errors that surface without driver codes.
func writeListError(w http.ResponseWriter, logger *log.Logger, what string, err error) {
	if logger != nil {
		logger.Printf("%s: %v", what, err)
	}
	message := err.Error()
	needsInit := storage.IsMissingTable(err) ||
		strings.Contains(message, "does not exist") ||
		strings.Contains(message, "relation")
	status := http.StatusInternalServerError
	if needsInit {
		status = http.StatusOK
	}
	writeJSON(w, status, eventsResponse{
		Success:   false,
		Events:    []struct{}{},
		Error:     "Failed to fetch events",
		Message:   message,
		NeedsInit: needsInit,
	})
}

type healthDatabase struct {
	Connected         bool `json:"connected"`
	GitHubEventsTable bool `json:"github_events_table,omitempty"`
}

type healthResponse struct {
	Status      string          `json:"status"`
	Timestamp   string          `json:"timestamp"`
	Service     string          `json:"service"`
	Database    healthDatabase  `json:"database"`
	Environment map[string]bool `json:"environment,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// HealthHandler reports service and database health.
type HealthHandler struct {
	Store            storage.GitHubEventStore
	DSNConfigured    bool
	SecretConfigured bool
	Logger           *log.Logger
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	now := time.Now().UTC().Format(time.RFC3339)

	if err := h.Store.Ping(r.Context()); err != nil {
		if h.Logger != nil {
			h.Logger.Printf("health check failed: %v", err)
		}
		writeJSON(w, http.StatusInternalServerError, healthResponse{
			Status:    "unhealthy",
			Timestamp: now,
			Service:   "hookboard",
			Database:  healthDatabase{Connected: false},
			Error:     err.Error(),
		})
		return
	}

	hasTable, err := h.Store.HasTable(r.Context())
	if err != nil {
		hasTable = false
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: now,
		Service:   "hookboard",
		Database: healthDatabase{
			Connected:         true,
			GitHubEventsTable: hasTable,
		},
		Environment: map[string]bool{
			"database_url_configured":   h.DSNConfigured,
			"webhook_secret_configured": h.SecretConfigured,
		},
	})
}

// InitHandler creates the schema for both event tables. Safe to call any
// number of times; the second and later calls are no-ops.
type InitHandler struct {
	GitHubStore  storage.GitHubEventStore
	WebhookStore storage.WebhookEventStore
	Logger       *log.Logger
}

func (h *InitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{
			"message":   "Webhook database initialization endpoint",
			"usage":     "Send POST request to initialize database tables",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	case http.MethodPost:
		h.initialize(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *InitHandler) initialize(w http.ResponseWriter, r *http.Request) {
	if h.Logger != nil {
		h.Logger.Printf("initializing webhook database tables")
	}

	for _, ensure := range []func() error{
		func() error { return h.GitHubStore.EnsureSchema(r.Context()) },
		func() error { return h.WebhookStore.EnsureSchema(r.Context()) },
	} {
		if err := ensure(); err != nil {
			if h.Logger != nil {
				h.Logger.Printf("database initialization failed: %v", err)
			}
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success":   false,
				"error":     "Database initialization failed",
				"message":   err.Error(),
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Webhook database tables initialized successfully",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
