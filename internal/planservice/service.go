// Package planservice runs the plan engine against persistent state: it
// serializes work per user, stores every plan version and adherence record,
// and enriches plans with generated content when a generator is configured.
package planservice

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"lg/stride-api/engine"
	"lg/stride-api/internal/logger"
	"lg/stride-api/internal/store"
)

// ErrUpstream wraps failures of an external collaborator (content
// generation). The deterministic plan is still returned next to it.
var ErrUpstream = errors.New("planservice: upstream collaborator failed")

// ErrNotSaved wraps a storage failure that happened after the plan was
// computed. The unsaved plan is returned next to it.
var ErrNotSaved = errors.New("planservice: plan computed but not saved")

// historyLimit bounds how many adherence records a revision reads.
const historyLimit = 12

const defaultSweepConcurrency = 4

var tracer = otel.Tracer("lg/stride-api/planservice")

// LogSource reads a user's logged meals, workouts, sleep, mood and weight for
// the half-open window [from, to).
type LogSource interface {
	Window(ctx context.Context, userID int, from, to time.Time) (engine.LogWindow, error)
}

// ProfileSource returns a user's current onboarding answers.
type ProfileSource interface {
	RawProfile(ctx context.Context, userID int) (engine.RawProfile, error)
}

// Service wires the engine to its collaborators. Plans, Locker and Logs are
// required; Content and Profiles are optional.
type Service struct {
	Plans    store.PlanStore
	Locker   store.Locker
	Logs     LogSource
	Profiles ProfileSource
	Content  ContentGenerator
	Log      *logger.Logger

	Now              func() time.Time
	ContentTimeout   time.Duration
	SweepConcurrency int
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) log() *logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}

/* ─── Generate ───────────────────────────────────────────────────────── */

// GenerateResult is a freshly generated and stored plan.
type GenerateResult struct {
	Plan       store.StoredPlan `json:"plan"`
	Content    *PlanContent     `json:"content"`
	ContentErr error            `json:"-"`
}

// Generate builds a plan from the user's answers and stores it as the next
// version. It also restarts the revision clock. A content failure never
// fails the call: ContentErr is set and Content holds the fallback. When
// storing fails the error wraps ErrNotSaved and the result still carries the
// computed plan (unsaved, so ID is empty) with fallback content.
func (s *Service) Generate(ctx context.Context, userID int, raw engine.RawProfile) (GenerateResult, error) {
	ctx, span := tracer.Start(ctx, "planservice.Generate")
	defer span.End()

	profile, err := engine.Normalize(raw)
	if err != nil {
		return GenerateResult{}, spanErr(span, err)
	}
	plan, err := engine.Generate(profile)
	if err != nil {
		return GenerateResult{}, spanErr(span, err)
	}

	stored, err := s.commitGenerated(ctx, userID, plan)
	if err != nil {
		s.log().Error("generated plan not saved", "component", "planservice", "user_id", userID, "error", err)
		unsaved := store.StoredPlan{UserID: userID, Version: plan.Version, Plan: plan}
		return GenerateResult{Plan: unsaved, Content: FallbackContent(engine.ContentRequest(plan))},
			spanErr(span, fmt.Errorf("%w: %w", ErrNotSaved, err))
	}
	span.SetAttributes(attribute.Int("plan.version", stored.Version))

	s.log().Info("plan generated",
		"component", "planservice",
		"user_id", userID,
		"version", stored.Version,
		"program", plan.Fitness.ProgramType,
		"calorie_target", plan.Nutrition.Energy.CalorieTarget,
	)

	content, contentErr := s.enrich(ctx, stored.Plan)
	return GenerateResult{Plan: stored, Content: content, ContentErr: contentErr}, nil
}

// commitGenerated stores plan one version past the user's latest and
// restarts the revision clock, under the user's lock.
func (s *Service) commitGenerated(ctx context.Context, userID int, plan engine.Plan) (store.StoredPlan, error) {
	unlock, err := s.Locker.Lock(ctx, userID)
	if err != nil {
		return store.StoredPlan{}, fmt.Errorf("lock user: %w", err)
	}
	defer unlock()

	latest, err := s.Plans.LatestPlan(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		plan.Version = 1
	case err != nil:
		return store.StoredPlan{}, fmt.Errorf("latest plan: %w", err)
	default:
		plan.Version = latest.Version + 1
	}
	stored, err := s.Plans.CommitRevision(ctx, userID, plan, nil, s.now())
	if err != nil {
		return store.StoredPlan{}, fmt.Errorf("commit plan: %w", err)
	}
	return stored, nil
}

/* ─── Revise ─────────────────────────────────────────────────────────── */

// ReviseResult is the outcome of MaybeRevise. Stored is only set when a new
// version was written.
type ReviseResult struct {
	engine.RevisionResult
	Stored     *store.StoredPlan `json:"stored,omitempty"`
	Content    *PlanContent      `json:"content,omitempty"`
	ContentErr error             `json:"-"`
}

// MaybeRevise revises the user's latest plan from the trailing week of logs
// when a revision is due. Calling it again inside the interval is a no-op
// that reports StatusNotDue. When the revised plan cannot be stored the
// error wraps ErrNotSaved and the result still carries the computed plan.
func (s *Service) MaybeRevise(ctx context.Context, userID int, raw engine.RawProfile) (ReviseResult, error) {
	ctx, span := tracer.Start(ctx, "planservice.MaybeRevise")
	defer span.End()

	profile, err := engine.Normalize(raw)
	if err != nil {
		return ReviseResult{}, spanErr(span, err)
	}

	unlock, err := s.Locker.Lock(ctx, userID)
	if err != nil {
		return ReviseResult{}, spanErr(span, fmt.Errorf("lock user: %w", err))
	}
	res, err := s.reviseLocked(ctx, userID, profile)
	unlock()
	if errors.Is(err, ErrNotSaved) {
		s.log().Error("revised plan not saved", "component", "planservice", "user_id", userID, "error", err)
		res.Content = FallbackContent(engine.ContentRequest(res.Plan))
		return res, spanErr(span, err)
	}
	if err != nil {
		return ReviseResult{}, spanErr(span, err)
	}
	span.SetAttributes(attribute.String("revision.status", string(res.Status)))

	if res.Status != engine.StatusRevised {
		return res, nil
	}

	recs := make([]string, 0, len(res.Recommendations))
	for _, r := range res.Recommendations {
		recs = append(recs, r.Code)
	}
	s.log().Info("plan revised",
		"component", "planservice",
		"user_id", userID,
		"version", res.Stored.Version,
		"adherence_score", res.Record.AdherenceScore,
		"calorie_delta", res.Record.ProposedDeltas.CalorieDelta,
		"recommendations", recs,
	)

	res.Content, res.ContentErr = s.enrich(ctx, res.Stored.Plan)
	return res, nil
}

func (s *Service) reviseLocked(ctx context.Context, userID int, profile engine.Profile) (ReviseResult, error) {
	now := s.now()
	last, err := s.Plans.LastRevisionAt(ctx, userID)
	if err != nil {
		return ReviseResult{}, fmt.Errorf("last revision: %w", err)
	}
	if !engine.IsRevisionDue(last, now) {
		return ReviseResult{RevisionResult: engine.RevisionResult{
			Status:         engine.StatusNotDue,
			NextRevisionAt: last.Add(engine.RevisionInterval),
		}}, nil
	}

	latest, err := s.Plans.LatestPlan(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ReviseResult{}, engine.ErrNoCurrentPlan
	}
	if err != nil {
		return ReviseResult{}, fmt.Errorf("latest plan: %w", err)
	}
	history, err := s.Plans.AdherenceHistory(ctx, userID, historyLimit)
	if err != nil {
		return ReviseResult{}, fmt.Errorf("adherence history: %w", err)
	}
	logs, err := s.Logs.Window(ctx, userID, now.Add(-engine.RevisionInterval), now)
	if err != nil {
		return ReviseResult{}, fmt.Errorf("log window: %w", err)
	}

	result, err := engine.Revise(engine.RevisionInput{
		Profile:        profile,
		Current:        latest.Plan,
		Logs:           logs,
		History:        history,
		LastRevisionAt: last,
		Now:            now,
	})
	if err != nil {
		return ReviseResult{}, err
	}

	stored, err := s.Plans.CommitRevision(ctx, userID, result.Plan, &result.Record, now)
	if err != nil {
		return ReviseResult{RevisionResult: result}, fmt.Errorf("%w: commit revision: %w", ErrNotSaved, err)
	}
	return ReviseResult{RevisionResult: result, Stored: &stored}, nil
}

/* ─── Sweep ──────────────────────────────────────────────────────────── */

// SweepStats counts the outcomes of one sweep.
type SweepStats struct {
	Revised int64 `json:"revised"`
	NotDue  int64 `json:"not_due"`
	Failed  int64 `json:"failed"`
}

// Sweep runs MaybeRevise for every user in userIDs, reading answers from
// Profiles. One user's failure is logged and counted but never stops the
// others.
func (s *Service) Sweep(ctx context.Context, userIDs []int) (SweepStats, error) {
	if s.Profiles == nil {
		return SweepStats{}, errors.New("planservice: sweep needs a profile source")
	}
	limit := s.SweepConcurrency
	if limit <= 0 {
		limit = defaultSweepConcurrency
	}

	var stats SweepStats
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, id := range userIDs {
		g.Go(func() error {
			status, err := s.sweepOne(gctx, id)
			switch {
			case err != nil:
				atomic.AddInt64(&stats.Failed, 1)
				s.log().Warn("sweep revision failed", "component", "planservice", "user_id", id, "error", err)
			case status == engine.StatusRevised:
				atomic.AddInt64(&stats.Revised, 1)
			default:
				atomic.AddInt64(&stats.NotDue, 1)
			}
			return nil
		})
	}
	g.Wait()

	s.log().Info("revision sweep finished",
		"component", "planservice",
		"users", len(userIDs),
		"revised", stats.Revised,
		"not_due", stats.NotDue,
		"failed", stats.Failed,
	)
	return stats, ctx.Err()
}

func (s *Service) sweepOne(ctx context.Context, userID int) (engine.RevisionStatus, error) {
	raw, err := s.Profiles.RawProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("profile: %w", err)
	}
	res, err := s.MaybeRevise(ctx, userID, raw)
	if err != nil {
		return "", err
	}
	return res.Status, nil
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
