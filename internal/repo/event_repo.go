// Package repo implements the data persistence layer for the moderation-log
// tables, backed by GORM. This file provides the idempotent upsert sink and
// the derived per-table cursor.
package repo

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/subguard/subguard/internal/domain"
)

// upsert is the shared ON CONFLICT(id) DO UPDATE policy: re-fetching an
// already-known event replaces the row instead of duplicating it, so repeated
// or interrupted sync passes are safe.
var upsert = clause.OnConflict{
	Columns:   []clause.Column{{Name: "id"}},
	UpdateAll: true,
}

// UpsertBanned writes a batch of ban events, replacing rows whose id exists.
func UpsertBanned(db *gorm.DB, rows []domain.BannedEvent) error {
	if len(rows) == 0 {
		return nil
	}
	return db.Clauses(upsert).Create(&rows).Error
}

// UpsertModRemoved writes a batch of moderator-removal events.
func UpsertModRemoved(db *gorm.DB, rows []domain.ModRemovedEvent) error {
	if len(rows) == 0 {
		return nil
	}
	return db.Clauses(upsert).Create(&rows).Error
}

// UpsertRedditRemoved writes a batch of platform-removal events.
func UpsertRedditRemoved(db *gorm.DB, rows []domain.RedditRemovedEvent) error {
	if len(rows) == 0 {
		return nil
	}
	return db.Clauses(upsert).Create(&rows).Error
}

// LastCursor returns the id of the row with the maximum created_utc in the
// given table, or "" when the table is empty. The cursor is always derived
// from the durable rows, never stored separately.
func LastCursor(db *gorm.DB, table string) (string, error) {
	var ids []string
	err := db.Table(table).
		Order("created_utc DESC").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return ids[0], nil
}
