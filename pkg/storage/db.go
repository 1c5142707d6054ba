package storage

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config selects the backing database and table name for a store.
type Config struct {
	Driver string
	DSN    string
	Table  string
}

// OpenDB opens a GORM session for the configured driver. Postgres is the
// primary target; sqlite exists for tests and local runs.
func OpenDB(cfg Config) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("storage dsn is required")
	}
	driver := NormalizeDriver(cfg.Driver)
	if driver == "" {
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}

	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DSN), gormCfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}

// NormalizeDriver maps driver aliases onto the canonical names.
func NormalizeDriver(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "postgres", "postgresql", "pgx":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return ""
	}
}
