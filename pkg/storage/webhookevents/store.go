// Package webhookevents persists generic webhook deliveries in the
// webhook_events table.
package webhookevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hookboard/pkg/storage"

	"gorm.io/gorm"
)

// Store implements storage.WebhookEventStore on top of GORM.
type Store struct {
	db    *gorm.DB
	table string
}

// retry_count is read back but never written by the application; the column
// is reserved.
type row struct {
	ID           string     `gorm:"column:id;primaryKey;size:255"`
	EventType    string     `gorm:"column:event_type;size:100;not null"`
	Payload      string     `gorm:"column:payload;not null"`
	Headers      string     `gorm:"column:headers"`
	Status       string     `gorm:"column:status;size:20"`
	ErrorMessage *string    `gorm:"column:error_message"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	ProcessedAt  *time.Time `gorm:"column:processed_at"`
	RetryCount   int        `gorm:"column:retry_count;->"`
}

// Open creates a GORM-backed generic webhook event store.
func Open(cfg storage.Config) (*Store, error) {
	db, err := storage.OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	table := cfg.Table
	if table == "" {
		table = "webhook_events"
	}
	return &Store{db: db, table: table}, nil
}

// EnsureSchema creates the table and its indexes if absent; idempotent and
// safe to race, same contract as the GitHub event store.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			event_type VARCHAR(100) NOT NULL,
			payload JSONB NOT NULL,
			headers JSONB,
			status VARCHAR(20) DEFAULT 'pending',
			error_message TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			processed_at TIMESTAMP,
			retry_count INTEGER DEFAULT 0
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s(created_at DESC)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_status ON %[1]s(status)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_event_type ON %[1]s(event_type)`, s.table),
	}
	for _, stmt := range statements {
		if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Insert appends one delivery. An ID collision fails with
// storage.ErrDuplicateKey; a missing table with storage.ErrTableMissing.
func (s *Store) Insert(ctx context.Context, record storage.WebhookEventRecord) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if record.EventType == "" {
		return errors.New("event_type is required")
	}
	if record.Status == "" {
		record.Status = storage.StatusPending
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	data := toRow(record)
	err := s.tableDB().WithContext(ctx).Create(&data).Error
	switch {
	case err == nil:
		return nil
	case storage.IsDuplicateKey(err):
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, record.ID)
	case storage.IsMissingTable(err):
		return fmt.Errorf("%w: %s", storage.ErrTableMissing, s.table)
	default:
		return err
	}
}

// List returns up to limit deliveries, newest first, decoding the stored
// payload and header documents. A missing table yields an empty result with
// needsInit=true.
func (s *Store) List(ctx context.Context, limit int) ([]storage.WebhookEventRecord, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, errors.New("store is not initialized")
	}
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	exists, err := s.HasTable(ctx)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return []storage.WebhookEventRecord{}, true, nil
	}

	var data []row
	err = s.tableDB().
		WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&data).Error
	if err != nil {
		if storage.IsMissingTable(err) {
			return []storage.WebhookEventRecord{}, true, nil
		}
		return nil, false, err
	}

	records := make([]storage.WebhookEventRecord, 0, len(data))
	for _, item := range data {
		records = append(records, fromRow(item))
	}
	return records, false, nil
}

// HasTable reports whether the backing table exists.
func (s *Store) HasTable(ctx context.Context) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("store is not initialized")
	}
	return s.db.WithContext(ctx).Migrator().HasTable(s.table), nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) tableDB() *gorm.DB {
	return s.db.Table(s.table)
}

func toRow(record storage.WebhookEventRecord) row {
	headers := string(record.Headers)
	payload := string(record.Payload)
	if payload == "" {
		payload = "{}"
	}
	return row{
		ID:           record.ID,
		EventType:    record.EventType,
		Payload:      payload,
		Headers:      headers,
		Status:       string(record.Status),
		ErrorMessage: record.ErrorMessage,
		CreatedAt:    record.CreatedAt,
		ProcessedAt:  record.ProcessedAt,
	}
}

func fromRow(data row) storage.WebhookEventRecord {
	return storage.WebhookEventRecord{
		ID:           data.ID,
		EventType:    data.EventType,
		Payload:      rawDocument(data.Payload),
		Headers:      rawDocument(data.Headers),
		Status:       storage.Status(data.Status),
		ErrorMessage: data.ErrorMessage,
		CreatedAt:    data.CreatedAt,
		ProcessedAt:  data.ProcessedAt,
		RetryCount:   data.RetryCount,
	}
}

// rawDocument returns the stored text as a JSON document, re-wrapping
// anything that is not valid JSON as a string so the read API never emits
// broken documents.
func rawDocument(stored string) json.RawMessage {
	if stored == "" {
		return nil
	}
	if json.Valid([]byte(stored)) {
		return json.RawMessage(stored)
	}
	quoted, err := json.Marshal(stored)
	if err != nil {
		return nil
	}
	return json.RawMessage(quoted)
}
