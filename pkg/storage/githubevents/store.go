// Package githubevents persists normalized GitHub events in the
// github_events table.
package githubevents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hookboard/pkg/storage"

	"gorm.io/gorm"
)

// Store implements storage.GitHubEventStore on top of GORM.
type Store struct {
	db    *gorm.DB
	table string
}

type row struct {
	ID         string    `gorm:"column:id;primaryKey;size:255"`
	Action     string    `gorm:"column:action;size:50;not null"`
	Author     string    `gorm:"column:author;size:255;not null"`
	FromBranch *string   `gorm:"column:from_branch;size:255"`
	ToBranch   string    `gorm:"column:to_branch;size:255;not null"`
	Timestamp  time.Time `gorm:"column:timestamp;not null"`
	RequestID  string    `gorm:"column:request_id;size:255;not null"`
}

// Open creates a GORM-backed GitHub event store.
func Open(cfg storage.Config) (*Store, error) {
	db, err := storage.OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	table := cfg.Table
	if table == "" {
		table = "github_events"
	}
	return &Store{db: db, table: table}, nil
}

// EnsureSchema creates the table and its indexes if absent. Every statement
// uses IF NOT EXISTS, so concurrent and repeated calls are safe; a
// check-then-create race costs redundant work, not corruption.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			action VARCHAR(50) NOT NULL,
			author VARCHAR(255) NOT NULL,
			from_branch VARCHAR(255),
			to_branch VARCHAR(255) NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			request_id VARCHAR(255) NOT NULL
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_timestamp ON %[1]s(timestamp DESC)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_action ON %[1]s(action)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_author ON %[1]s(author)`, s.table),
	}
	for _, stmt := range statements {
		if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Insert appends one normalized event. There is no upsert: an ID collision
// fails with storage.ErrDuplicateKey.
func (s *Store) Insert(ctx context.Context, record storage.GitHubEventRecord) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if !record.Action.Valid() {
		return fmt.Errorf("unknown action %q", record.Action)
	}
	if record.ToBranch == "" {
		return errors.New("to_branch is required")
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

// List returns up to limit events, newest first. A missing table yields an
// empty result with needsInit=true rather than an error.
func (s *Store) List(ctx context.Context, limit int) ([]storage.GitHubEventRecord, bool, error) {
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
		return []storage.GitHubEventRecord{}, true, nil
	}

	var data []row
	err = s.tableDB().
		WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&data).Error
	if err != nil {
		// The existence check above can race a concurrent drop.
		if storage.IsMissingTable(err) {
			return []storage.GitHubEventRecord{}, true, nil
		}
		return nil, false, err
	}

	records := make([]storage.GitHubEventRecord, 0, len(data))
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

func toRow(record storage.GitHubEventRecord) row {
	return row{
		ID:         record.ID,
		Action:     string(record.Action),
		Author:     record.Author,
		FromBranch: record.FromBranch,
		ToBranch:   record.ToBranch,
		Timestamp:  record.Timestamp,
		RequestID:  record.RequestID,
	}
}

func fromRow(data row) storage.GitHubEventRecord {
	return storage.GitHubEventRecord{
		ID:         data.ID,
		Action:     storage.Action(data.Action),
		Author:     data.Author,
		FromBranch: data.FromBranch,
		ToBranch:   data.ToBranch,
		Timestamp:  data.Timestamp,
		RequestID:  data.RequestID,
	}
}
