package storage

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateKey means an insert collided with an existing primary
	// key. Not expected in practice with random IDs; inserts never upsert.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrTableMissing means the schema has not been initialized. Writers
	// treat this as a soft condition: log and continue.
	ErrTableMissing = errors.New("table does not exist")
)

const (
	pgUndefinedTable  = "42P01"
	pgUniqueViolation = "23505"
)

// IsMissingTable reports whether err indicates the backing table has not
// been created. Driver error codes are checked first; the message-content
// fallback covers drivers that do not expose codes.
func IsMissingTable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTableMissing) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUndefinedTable
	}
	msg := err.Error()
	return strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "relation") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "doesn't exist")
}

// IsDuplicateKey reports whether err indicates a primary key collision.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicateKey) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
