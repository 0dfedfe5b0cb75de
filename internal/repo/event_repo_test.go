package repo

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/subguard/subguard/internal/domain"
)

// test DB helper
func newEventRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("event_repo_%d.db", time.Now().UnixNano()))
	db, err := OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

func TestUpsertBanned_IdempotentByID(t *testing.T) {
	db := newEventRepoDB(t)

	first := []domain.BannedEvent{
		{ID: "ModAction_1", Username: "alice", Duration: "7 days", CreatedUTC: 100},
	}
	if err := UpsertBanned(db, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Same id, different payload: must replace, not duplicate.
	second := []domain.BannedEvent{
		{ID: "ModAction_1", Username: "alice", Duration: "permanent", CreatedUTC: 100},
	}
	if err := UpsertBanned(db, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var total int64
	if err := db.Model(&domain.BannedEvent{}).Count(&total).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 row, got %d", total)
	}
	var got domain.BannedEvent
	if err := db.First(&got, "id = ?", "ModAction_1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Duration != "permanent" {
		t.Fatalf("row not replaced: %+v", got)
	}
}

func TestUpsertBatches_EmptyIsNoop(t *testing.T) {
	db := newEventRepoDB(t)

	if err := UpsertBanned(db, nil); err != nil {
		t.Fatalf("UpsertBanned(nil): %v", err)
	}
	if err := UpsertModRemoved(db, nil); err != nil {
		t.Fatalf("UpsertModRemoved(nil): %v", err)
	}
	if err := UpsertRedditRemoved(db, nil); err != nil {
		t.Fatalf("UpsertRedditRemoved(nil): %v", err)
	}
}

func TestUpsertRemoved_BothTables(t *testing.T) {
	db := newEventRepoDB(t)

	mod := []domain.ModRemovedEvent{
		{ID: "m1", Username: "bob", Target: "t1_aaa", Post: "t3_bbb", CreatedUTC: 10},
		{ID: "m2", Username: "bob", Target: "t3_ccc", Post: "t3_ccc", CreatedUTC: 20},
	}
	if err := UpsertModRemoved(db, mod); err != nil {
		t.Fatalf("UpsertModRemoved: %v", err)
	}

	red := []domain.RedditRemovedEvent{
		{ID: "r1", Username: "bob", Target: "t1_ddd", Mod: "Anti-Evil Operations", Post: "t3_eee", CreatedUTC: 30},
	}
	if err := UpsertRedditRemoved(db, red); err != nil {
		t.Fatalf("UpsertRedditRemoved: %v", err)
	}

	var modCount, redCount int64
	db.Model(&domain.ModRemovedEvent{}).Count(&modCount)
	db.Model(&domain.RedditRemovedEvent{}).Count(&redCount)
	if modCount != 2 || redCount != 1 {
		t.Fatalf("unexpected counts: mod=%d reddit=%d", modCount, redCount)
	}
}

func TestLastCursor_EmptyAndMax(t *testing.T) {
	db := newEventRepoDB(t)

	// Empty table -> no cursor sentinel.
	cur, err := LastCursor(db, "banned")
	if err != nil {
		t.Fatalf("LastCursor empty: %v", err)
	}
	if cur != "" {
		t.Fatalf("expected empty cursor, got %q", cur)
	}

	rows := []domain.BannedEvent{
		{ID: "old", Username: "a", CreatedUTC: 100},
		{ID: "newest", Username: "b", CreatedUTC: 300},
		{ID: "mid", Username: "c", CreatedUTC: 200},
	}
	if err := UpsertBanned(db, rows); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cur, err = LastCursor(db, "banned")
	if err != nil {
		t.Fatalf("LastCursor: %v", err)
	}
	if cur != "newest" {
		t.Fatalf("cursor = %q, want %q", cur, "newest")
	}
}
