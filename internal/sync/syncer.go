// Package sync – Syncer
//
// This file implements the incremental synchronization pass: for each of the
// three moderation-log kinds it derives the current cursor from the durable
// store, pulls only events beyond it from the remote log, enriches removal
// events with their target's creation time and parent submission, and hands
// fully materialized batches to the idempotent upsert sink. A remote failure
// aborts the pass before anything is written, so a rerun is always safe.
//
// Observability: each table pass runs under an OpenTelemetry span and feeds
// the synced-event counters.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/subguard/subguard/internal/domain"
	"github.com/subguard/subguard/internal/metrics"
	"github.com/subguard/subguard/internal/reddit"
	"github.com/subguard/subguard/internal/repo"
)

// DefaultPageLimit caps how many events one log fetch may pull.
const DefaultPageLimit = 1001

// Moderation-log filters per destination table.
var (
	filterBanned        = reddit.LogFilter{Action: "banuser"}
	filterModRemoved    = reddit.LogFilter{Action: "addremovalreason"}
	filterRedditRemoved = reddit.LogFilter{Mod: "a"}
)

// API is the slice of the remote client the syncer consumes.
type API interface {
	ModLog(ctx context.Context, subreddit string, f reddit.LogFilter, before string, limit int) ([]reddit.ModAction, error)
	Info(ctx context.Context, fullname string) (*reddit.Thing, error)
}

// Syncer pulls moderation-log events into the local store.
type Syncer struct {
	DB        *gorm.DB
	Client    API
	Subreddit string
	PageLimit int
	Log       zerolog.Logger
}

// Run executes one full sync pass over the three tables.
func (s *Syncer) Run(ctx context.Context) error {
	tr := otel.Tracer("sync/Syncer")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(attribute.String("subreddit", s.Subreddit)),
	)
	defer span.End()

	start := time.Now()
	defer func() { metrics.SyncPassDuration.Observe(time.Since(start).Seconds()) }()

	if err := s.syncBanned(ctx); err != nil {
		return fmt.Errorf("sync banned: %w", err)
	}
	if err := s.syncModRemoved(ctx); err != nil {
		return fmt.Errorf("sync mod_removed: %w", err)
	}
	if err := s.syncRedditRemoved(ctx); err != nil {
		return fmt.Errorf("sync reddit_removed: %w", err)
	}
	return nil
}

func (s *Syncer) pageLimit() int {
	if s.PageLimit > 0 {
		return s.PageLimit
	}
	return DefaultPageLimit
}

// fetch pulls the raw events newer than the table's cursor.
func (s *Syncer) fetch(ctx context.Context, table string, f reddit.LogFilter) ([]reddit.ModAction, error) {
	cursor, err := repo.LastCursor(s.DB, table)
	if err != nil {
		return nil, err
	}
	s.Log.Debug().Str("table", table).Str("cursor", cursor).Msg("fetching mod log")
	return s.Client.ModLog(ctx, s.Subreddit, f, cursor, s.pageLimit())
}

func (s *Syncer) syncBanned(ctx context.Context) error {
	tr := otel.Tracer("sync/Syncer")
	ctx, span := tr.Start(ctx, "syncBanned")
	defer span.End()

	actions, err := s.fetch(ctx, "banned", filterBanned)
	if err != nil {
		return err
	}

	rows := make([]domain.BannedEvent, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, domain.BannedEvent{
			ID:         a.ID,
			Username:   a.TargetAuthor,
			Duration:   a.Details,
			CreatedUTC: a.CreatedUTC,
		})
	}
	if err := repo.UpsertBanned(s.DB, rows); err != nil {
		return err
	}
	metrics.EventsSynced.WithLabelValues("banned").Add(float64(len(rows)))
	s.Log.Info().Int("events", len(rows)).Msg("banned synced")
	return nil
}

func (s *Syncer) syncModRemoved(ctx context.Context) error {
	tr := otel.Tracer("sync/Syncer")
	ctx, span := tr.Start(ctx, "syncModRemoved")
	defer span.End()

	actions, err := s.fetch(ctx, "mod_removed", filterModRemoved)
	if err != nil {
		return err
	}

	rows := make([]domain.ModRemovedEvent, 0, len(actions))
	for _, a := range actions {
		post, created, err := s.resolveTarget(ctx, a)
		if err != nil {
			return err
		}
		rows = append(rows, domain.ModRemovedEvent{
			ID:         a.ID,
			Username:   a.TargetAuthor,
			Target:     a.TargetFullname,
			Post:       post,
			CreatedUTC: created,
		})
	}
	if err := repo.UpsertModRemoved(s.DB, rows); err != nil {
		return err
	}
	metrics.EventsSynced.WithLabelValues("mod_removed").Add(float64(len(rows)))
	s.Log.Info().Int("events", len(rows)).Msg("mod_removed synced")
	return nil
}

func (s *Syncer) syncRedditRemoved(ctx context.Context) error {
	tr := otel.Tracer("sync/Syncer")
	ctx, span := tr.Start(ctx, "syncRedditRemoved")
	defer span.End()

	actions, err := s.fetch(ctx, "reddit_removed", filterRedditRemoved)
	if err != nil {
		return err
	}

	rows := make([]domain.RedditRemovedEvent, 0, len(actions))
	for _, a := range actions {
		post, created, err := s.resolveTarget(ctx, a)
		if err != nil {
			return err
		}
		rows = append(rows, domain.RedditRemovedEvent{
			ID:         a.ID,
			Username:   a.TargetAuthor,
			Target:     a.TargetFullname,
			Mod:        a.Mod,
			Post:       post,
			CreatedUTC: created,
		})
	}
	if err := repo.UpsertRedditRemoved(s.DB, rows); err != nil {
		return err
	}
	metrics.EventsSynced.WithLabelValues("reddit_removed").Add(float64(len(rows)))
	s.Log.Info().Int("events", len(rows)).Msg("reddit_removed synced")
	return nil
}

// resolveTarget looks up the removed item to obtain its creation time and
// parent submission. A comment resolves to its link; a submission resolves
// to itself. When the item is gone the event degrades gracefully: its own
// fullname stands in for the post reference and the log action's timestamp
// for the creation time.
func (s *Syncer) resolveTarget(ctx context.Context, a reddit.ModAction) (post string, createdUTC int64, err error) {
	thing, err := s.Client.Info(ctx, a.TargetFullname)
	if err != nil {
		if errors.Is(err, reddit.ErrNotFound) {
			s.Log.Debug().Str("target", a.TargetFullname).Msg("target gone, keeping own reference")
			return a.TargetFullname, a.CreatedUTC, nil
		}
		return "", 0, err
	}
	if thing.LinkID != "" {
		return thing.LinkID, thing.CreatedUTC, nil
	}
	return thing.Fullname, thing.CreatedUTC, nil
}
