// Package repo implements the data persistence layer for the moderation-log
// tables, backed by GORM. This file contains database bootstrapping helpers
// for SQLite (pure Go driver) and idempotent schema migration.
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/subguard/subguard/internal/domain"
)

// DBPath returns the store file for a subreddit: one SQLite database per
// monitored community, under dataDir.
func DBPath(dataDir, subreddit string) string {
	return filepath.Join(dataDir, fmt.Sprintf("%s.db", subreddit))
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	return db, nil
}

// EnsureSchema creates the three event tables and their indexes if absent.
// Safe to call on every startup.
func EnsureSchema(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.BannedEvent{},
		&domain.ModRemovedEvent{},
		&domain.RedditRemovedEvent{},
	)
}

// Close releases the underlying connection. A run holds exactly one handle,
// acquired at start and released on every exit path.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
