// Package enforce – Enforcer
//
// This file implements the ban decision and executor: it walks the candidate
// rows yielded by the ranking query (in their order, sequentially), computes
// the removal-severity verdict for each, and issues escalating bans with an
// evidence-citing localized message. The one expected remote failure (the
// target user no longer exists) is absorbed by writing a synthetic,
// backdated row into the banned table so the user is not re-proposed; any
// other API rejection is logged with context and aborts the run.
package enforce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/subguard/subguard/internal/domain"
	"github.com/subguard/subguard/internal/metrics"
	"github.com/subguard/subguard/internal/reddit"
	"github.com/subguard/subguard/internal/repo"
	"github.com/subguard/subguard/internal/score"
)

// Escalation policy: two temporary steps, then permanent.
const (
	firstBanDays  = 7
	secondBanDays = 28
)

// DefaultNote is the fixed audit note attached to every ban action.
const DefaultNote = "Autoban for Multiple remove"

// Duration maps the prior-ban count to the next ban length in days.
// nil means permanent (no expiry). Pure; same input, same output.
func Duration(priorBans int) *int {
	switch {
	case priorBans <= 0:
		d := firstBanDays
		return &d
	case priorBans == 1:
		d := secondBanDays
		return &d
	default:
		return nil
	}
}

// Banner is the slice of the remote client the enforcer consumes.
type Banner interface {
	BanUser(ctx context.Context, subreddit, username string, days *int, note, message string) error
}

// Enforcer runs the scoring-and-ban pass.
type Enforcer struct {
	DB        *gorm.DB
	Client    Banner
	Subreddit string
	Renderer  *Renderer
	Log       zerolog.Logger

	// Policy knobs; zero values fall back to the shipped defaults.
	Threshold    float64 // ban threshold on the summed score (default 4)
	WindowDays   int     // trailing aggregation window for the ranking query
	CooldownDays int     // backdate span for reconciliation rows, <= WindowDays
	Note         string  // audit note on the ban action

	// Now is a seam for tests; defaults to time.Now.
	Now func() time.Time
}

const (
	defaultWindowDays   = 30
	defaultCooldownDays = 7
)

func (e *Enforcer) threshold() float64 {
	if e.Threshold > 0 {
		return e.Threshold
	}
	return score.DefaultThreshold
}

func (e *Enforcer) windowDays() int {
	if e.WindowDays > 0 {
		return e.WindowDays
	}
	return defaultWindowDays
}

func (e *Enforcer) cooldownDays() int {
	if e.CooldownDays > 0 {
		return e.CooldownDays
	}
	return defaultCooldownDays
}

func (e *Enforcer) note() string {
	if e.Note != "" {
		return e.Note
	}
	return DefaultNote
}

func (e *Enforcer) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Run scores every candidate and bans the positives, in ranking order.
// Candidates after a fatal ban failure are not attempted; work already done
// stays in place.
func (e *Enforcer) Run(ctx context.Context) error {
	tr := otel.Tracer("enforce/Enforcer")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(attribute.String("subreddit", e.Subreddit)),
	)
	defer span.End()

	now := e.now()
	windowStart := now.AddDate(0, 0, -e.windowDays()).Unix()

	candidates, err := repo.ListCandidates(e.DB, windowStart)
	if err != nil {
		return fmt.Errorf("list candidates: %w", err)
	}
	e.Log.Debug().Int("candidates", len(candidates)).Msg("ranking query done")

	for _, c := range candidates {
		metrics.CandidatesScored.Inc()
		total, ban := score.Verdict(c.ModCount, c.ModCountPost, c.RedditCount, c.RedditCountPost, e.threshold())
		e.Log.Debug().
			Str("username", c.Username).
			Float64("score", total).
			Int64("n_ban", c.NBan).
			Msg("candidate scored")
		if !ban {
			continue
		}
		if err := e.ban(ctx, c, now); err != nil {
			return err
		}
	}
	return nil
}

// ban executes one ban attempt, including reconciliation of the expected
// vanished-user rejection.
func (e *Enforcer) ban(ctx context.Context, c domain.Candidate, now time.Time) error {
	tr := otel.Tracer("enforce/Enforcer")
	ctx, span := tr.Start(ctx, "ban",
		trace.WithAttributes(attribute.String("username", c.Username)),
	)
	defer span.End()

	rows, err := repo.ListRemovedComments(e.DB, c.Username)
	if err != nil {
		return fmt.Errorf("list evidence for %s: %w", c.Username, err)
	}
	msg, err := e.Renderer.Render(MessageData{
		Username:  c.Username,
		Subreddit: e.Subreddit,
		BanNumber: int(c.NBan) + 1,
		Evidence:  EvidenceFromRows(rows),
	})
	if err != nil {
		return fmt.Errorf("render message for %s: %w", c.Username, err)
	}

	days := Duration(int(c.NBan))
	e.Log.Info().Str("username", c.Username).Msg("banning")

	err = e.Client.BanUser(ctx, e.Subreddit, c.Username, days, e.note(), msg)
	switch {
	case err == nil:
		metrics.BansIssued.Inc()
		return nil
	case reddit.IsUserVanished(err):
		return e.reconcileVanished(c.Username, now)
	default:
		var kind string
		var ae *reddit.APIError
		if errors.As(err, &ae) {
			kind = ae.Kind
		}
		e.Log.Error().
			Err(err).
			Str("username", c.Username).
			Str("kind", kind).
			Msg("ban rejected")
		return fmt.Errorf("ban %s: %w", c.Username, err)
	}
}

// reconcileVanished records the failed attempt locally so the vanished user
// stops surfacing as a candidate. The row gets a freshly generated id (never
// derived from retryable state, never colliding with remote event ids) and a
// created_utc backdated by the cooldown span. Because the backdate never
// exceeds the ranking window, the row sits inside the candidate-exclusion
// horizon on every later run until it ages out. Should the account return,
// the row also counts as a prior ban: the verdict behind it was real, only
// delivery failed.
func (e *Enforcer) reconcileVanished(username string, now time.Time) error {
	row := domain.BannedEvent{
		ID:         uuid.NewString(),
		Username:   username,
		Duration:   reddit.KindUserVanished,
		CreatedUTC: now.AddDate(0, 0, -e.cooldownDays()).Unix(),
	}
	if err := repo.UpsertBanned(e.DB, []domain.BannedEvent{row}); err != nil {
		return fmt.Errorf("reconcile %s: %w", username, err)
	}
	metrics.BansReconciled.Inc()
	e.Log.Warn().Str("username", username).Msg("user vanished, recorded locally")
	return nil
}
