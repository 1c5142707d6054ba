package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Action classifies a normalized GitHub event.
type Action string

const (
	ActionPush        Action = "push"
	ActionPullRequest Action = "pull_request"
	ActionMerge       Action = "merge"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionPush, ActionPullRequest, ActionMerge:
		return true
	}
	return false
}

// Status is the processing state of a stored generic webhook event.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// GitHubEventRecord is a normalized GitHub delivery. FromBranch is nil for
// push events; ToBranch is always set. Timestamp is the ingestion time, not
// anything carried by the upstream payload.
type GitHubEventRecord struct {
	ID         string    `json:"id"`
	Action     Action    `json:"action"`
	Author     string    `json:"author"`
	FromBranch *string   `json:"from_branch"`
	ToBranch   string    `json:"to_branch"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// WebhookEventRecord is a stored generic webhook delivery. Payload and
// Headers hold the JSON documents as stored. RetryCount is reserved: the
// column exists in the schema but no code path increments it.
type WebhookEventRecord struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	Headers      json.RawMessage `json:"headers,omitempty"`
	Status       Status          `json:"status"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	RetryCount   int             `json:"retry_count"`
}

// GitHubEventStore persists normalized GitHub events.
//
// EnsureSchema is idempotent and safe to call concurrently: creation uses
// IF NOT EXISTS statements, so a check-then-create race degrades to
// redundant work. List returns needsInit=true with an empty slice (and no
// error) when the backing table has not been created yet.
type GitHubEventStore interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, record GitHubEventRecord) error
	List(ctx context.Context, limit int) (records []GitHubEventRecord, needsInit bool, err error)
	HasTable(ctx context.Context) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// WebhookEventStore persists generic webhook events with the same contract
// as GitHubEventStore.
type WebhookEventStore interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, record WebhookEventRecord) error
	List(ctx context.Context, limit int) (records []WebhookEventRecord, needsInit bool, err error)
	HasTable(ctx context.Context) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// DefaultListLimit is the page size of the dashboard read path.
const DefaultListLimit = 50
