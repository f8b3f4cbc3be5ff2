package planservice

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lg/stride-api/engine"
	"lg/stride-api/internal/contentgen"
	"lg/stride-api/internal/store"
)

var testNow = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

/* ─── Fakes ──────────────────────────────────────────────────────────── */

type fakeLogs struct {
	window engine.LogWindow
	err    error
}

func (f fakeLogs) Window(ctx context.Context, userID int, from, to time.Time) (engine.LogWindow, error) {
	return f.window, f.err
}

type fakeProfiles map[int]engine.RawProfile

func (f fakeProfiles) RawProfile(ctx context.Context, userID int) (engine.RawProfile, error) {
	raw, ok := f[userID]
	if !ok {
		return engine.RawProfile{}, errors.New("no profile")
	}
	return raw, nil
}

type fakeContent struct {
	err   error
	delay time.Duration
}

func (f fakeContent) wait(ctx context.Context) error {
	if f.delay == 0 {
		return f.err
	}
	select {
	case <-time.After(f.delay):
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f fakeContent) MealIdeas(ctx context.Context, brief engine.ContentBrief) ([]contentgen.MealIdea, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	out := make([]contentgen.MealIdea, len(brief.Meals))
	for i, m := range brief.Meals {
		out[i] = contentgen.MealIdea{Slot: string(m.Slot), Title: "generated " + string(m.Slot), Calories: m.Calories}
	}
	return out, nil
}

func (f fakeContent) WorkoutNotes(ctx context.Context, brief engine.ContentBrief) ([]contentgen.WorkoutNote, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	out := make([]contentgen.WorkoutNote, len(brief.Focus))
	for i, focus := range brief.Focus {
		out[i] = contentgen.WorkoutNote{Focus: focus, Notes: "generated"}
	}
	return out, nil
}

// failingCommits fails the next n CommitRevision calls.
type failingCommits struct {
	*store.SQLite
	n int
}

func (f *failingCommits) CommitRevision(ctx context.Context, userID int, plan engine.Plan, rec *engine.AdherenceRecord, at time.Time) (store.StoredPlan, error) {
	if f.n > 0 {
		f.n--
		return store.StoredPlan{}, errors.New("disk full")
	}
	return f.SQLite.CommitRevision(ctx, userID, plan, rec, at)
}

/* ─── Helpers ────────────────────────────────────────────────────────── */

func ptrInt(v int) *int           { return &v }
func ptrFloat(v float64) *float64 { return &v }

// testRaw is a 95 kg very active male on a weight-loss goal.
func testRaw() engine.RawProfile {
	return engine.RawProfile{
		Sex:           "Male",
		Age:           ptrInt(30),
		Weight:        ptrFloat(95),
		Height:        ptrFloat(175),
		ActivityLevel: "very active",
		Goal:          "lose weight",
	}
}

// newTestService returns a service backed by a temp SQLite store and a clock
// the test can move.
func newTestService(t *testing.T) (*Service, *time.Time) {
	t.Helper()
	plans, err := store.NewSQLite(filepath.Join(t.TempDir(), "plans.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { plans.Close() })

	clock := testNow
	svc := &Service{
		Plans:  plans,
		Locker: store.NewLocalLocker(),
		Logs:   fakeLogs{},
		Now:    func() time.Time { return clock },
	}
	return svc, &clock
}

/* ─── Generate ───────────────────────────────────────────────────────── */

// TestGenerate_StoresVersionsAndRestartsClock stores consecutive versions and
// records the generation time as the last revision.
func TestGenerate_StoresVersionsAndRestartsClock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.Generate(ctx, 1, testRaw())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first.Plan.Version != 1 || first.Plan.Plan.Version != 1 {
		t.Errorf("expected version 1, got %+v", first.Plan)
	}
	second, err := svc.Generate(ctx, 1, testRaw())
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if second.Plan.Version != 2 {
		t.Errorf("expected version 2, got %d", second.Plan.Version)
	}
	last, err := svc.Plans.LastRevisionAt(ctx, 1)
	if err != nil || !last.Equal(testNow) {
		t.Errorf("expected last revision %v, got %v (%v)", testNow, last, err)
	}
}

// TestGenerate_InvalidProfile rejects bad answers without storing anything.
func TestGenerate_InvalidProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	raw := testRaw()
	raw.Age = ptrInt(7)
	_, err := svc.Generate(ctx, 1, raw)
	var cfgErr *engine.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "age" {
		t.Fatalf("expected an age ConfigurationError, got %v", err)
	}
	if _, err := svc.Plans.LatestPlan(ctx, 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected nothing stored, got %v", err)
	}
}

// TestGenerate_ConcurrentSameUser never loses or duplicates a version.
func TestGenerate_ConcurrentSameUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	const n = 6
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Generate(ctx, 1, testRaw()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("generate: %v", err)
	}
	latest, err := svc.Plans.LatestPlan(ctx, 1)
	if err != nil || latest.Version != n {
		t.Errorf("expected latest version %d, got %d (%v)", n, latest.Version, err)
	}
}

/* ─── Content ────────────────────────────────────────────────────────── */

// TestGenerate_Content covers the generator outcomes: none configured, success,
// failure and timeout. The plan is stored in every case.
func TestGenerate_Content(t *testing.T) {
	tests := []struct {
		name       string
		content    ContentGenerator
		wantSource string
		wantErr    bool
	}{
		{"no generator", nil, SourceFallback, false},
		{"generated", fakeContent{}, SourceGenerated, false},
		{"upstream error", fakeContent{err: errors.New("boom")}, SourceFallback, true},
		{"timeout", fakeContent{delay: time.Second}, SourceFallback, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			svc.Content = tt.content
			svc.ContentTimeout = 30 * time.Millisecond

			res, err := svc.Generate(context.Background(), 1, testRaw())
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if res.Content == nil || res.Content.Source != tt.wantSource {
				t.Fatalf("expected %s content, got %+v", tt.wantSource, res.Content)
			}
			if tt.wantErr != errors.Is(res.ContentErr, ErrUpstream) {
				t.Errorf("unexpected content error %v", res.ContentErr)
			}
			if len(res.Content.Meals) != len(res.Plan.Plan.Nutrition.MealTemplates) {
				t.Errorf("expected one meal per slot, got %d", len(res.Content.Meals))
			}
			if len(res.Content.Workouts) != len(res.Plan.Plan.Fitness.WeeklySchedule) {
				t.Errorf("expected one note per training day, got %d", len(res.Content.Workouts))
			}
		})
	}
}

// TestFallbackContent uses the template numbers and tags.
func TestFallbackContent(t *testing.T) {
	brief := engine.ContentBrief{
		Meals: []engine.MealBrief{
			{Slot: engine.SlotBreakfast, Calories: 600, ProteinG: 40, Tags: []string{"oatmeal", "eggs"}},
		},
		Focus:  []string{"Upper"},
		Volume: engine.Volume{Sets: 4, Reps: 8, RestSeconds: 90},
	}
	c := FallbackContent(brief)
	if c.Meals[0].Title != "oatmeal, eggs" || c.Meals[0].Calories != 600 {
		t.Errorf("unexpected meal %+v", c.Meals[0])
	}
	if c.Workouts[0].Notes != "4 sets of 8 reps, 90 seconds rest between sets." {
		t.Errorf("unexpected note %q", c.Workouts[0].Notes)
	}
}

/* ─── Revise ─────────────────────────────────────────────────────────── */

// TestMaybeRevise_DueOncePerInterval revises a week after generation and is a
// no-op on the immediate retry.
func TestMaybeRevise_DueOncePerInterval(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	if _, err := svc.Generate(ctx, 1, testRaw()); err != nil {
		t.Fatalf("generate: %v", err)
	}

	res, err := svc.MaybeRevise(ctx, 1, testRaw())
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if res.Status != engine.StatusNotDue || !res.NextRevisionAt.Equal(testNow.Add(engine.RevisionInterval)) {
		t.Errorf("expected not_due until %v, got %+v", testNow.Add(engine.RevisionInterval), res.RevisionResult)
	}

	*clock = testNow.Add(engine.RevisionInterval)
	res, err = svc.MaybeRevise(ctx, 1, testRaw())
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if res.Status != engine.StatusRevised || res.Stored == nil || res.Stored.Version != 2 {
		t.Fatalf("expected a stored version 2, got %+v", res)
	}
	if res.Content == nil {
		t.Error("expected content for the revised plan")
	}

	again, err := svc.MaybeRevise(ctx, 1, testRaw())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if again.Status != engine.StatusNotDue {
		t.Errorf("expected retry to be not_due, got %s", again.Status)
	}
	history, _ := svc.Plans.AdherenceHistory(ctx, 1, 0)
	latest, _ := svc.Plans.LatestPlan(ctx, 1)
	if len(history) != 1 || latest.Version != 2 {
		t.Errorf("expected one record and version 2, got %d records and version %d", len(history), latest.Version)
	}
}

// TestMaybeRevise_NoPlan reports the missing plan.
func TestMaybeRevise_NoPlan(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.MaybeRevise(context.Background(), 1, testRaw()); !errors.Is(err, engine.ErrNoCurrentPlan) {
		t.Errorf("expected ErrNoCurrentPlan, got %v", err)
	}
}

// TestMaybeRevise_LogSourceError stores nothing when logs cannot be read.
func TestMaybeRevise_LogSourceError(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	if _, err := svc.Generate(ctx, 1, testRaw()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	svc.Logs = fakeLogs{err: errors.New("db down")}
	*clock = testNow.Add(engine.RevisionInterval)

	if _, err := svc.MaybeRevise(ctx, 1, testRaw()); err == nil {
		t.Fatal("expected an error")
	}
	last, _ := svc.Plans.LastRevisionAt(ctx, 1)
	if !last.Equal(testNow) {
		t.Errorf("revision clock moved on failure: %v", last)
	}
}

// TestMaybeRevise_StallCutsAfterTwoCycles feeds two flat weeks and expects a
// calorie cut on the second.
func TestMaybeRevise_StallCutsAfterTwoCycles(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	gen, err := svc.Generate(ctx, 1, testRaw())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	target := gen.Plan.Plan.Nutrition.Energy.CalorieTarget
	sessions := len(gen.Plan.Plan.Fitness.WeeklySchedule)

	for week := 1; week <= 2; week++ {
		*clock = testNow.Add(time.Duration(week) * engine.RevisionInterval)
		var w engine.LogWindow
		for d := 1; d <= 7; d++ {
			day := clock.AddDate(0, 0, -d)
			w.Meals = append(w.Meals, engine.MealLog{Date: day, Calories: target, ProteinG: 150})
			if d <= sessions {
				w.Workouts = append(w.Workouts, engine.WorkoutLog{Date: day, Name: "session", DurationMinutes: 45})
			}
		}
		w.Weights = []engine.WeightLog{
			{Date: clock.AddDate(0, 0, -7), WeightKg: 95},
			{Date: clock.AddDate(0, 0, -1), WeightKg: 95},
		}
		svc.Logs = fakeLogs{window: w}

		res, err := svc.MaybeRevise(ctx, 1, testRaw())
		if err != nil {
			t.Fatalf("week %d: %v", week, err)
		}
		delta := res.Record.ProposedDeltas.CalorieDelta
		if week == 1 && delta != 0 {
			t.Errorf("week 1: expected no cut, got %d", delta)
		}
		if week == 2 && (delta < -150 || delta > -120) {
			t.Errorf("week 2: expected a 120-150 kcal cut, got %d", delta)
		}
	}
}

/* ─── Sweep ──────────────────────────────────────────────────────────── */

// TestSweep counts revised, not-due and failed users without aborting.
func TestSweep(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	svc.Profiles = fakeProfiles{1: testRaw(), 2: testRaw()}
	svc.SweepConcurrency = 2

	if _, err := svc.Generate(ctx, 1, testRaw()); err != nil {
		t.Fatalf("generate 1: %v", err)
	}
	*clock = testNow.Add(engine.RevisionInterval)
	if _, err := svc.Generate(ctx, 2, testRaw()); err != nil {
		t.Fatalf("generate 2: %v", err)
	}

	// User 1 is due, user 2 was just generated, user 3 has no profile.
	stats, err := svc.Sweep(ctx, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if stats != (SweepStats{Revised: 1, NotDue: 1, Failed: 1}) {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// TestSweep_NeedsProfiles fails fast without a profile source.
func TestSweep_NeedsProfiles(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Sweep(context.Background(), []int{1}); err == nil {
		t.Error("expected an error")
	}
}

/* ─── Storage failures ───────────────────────────────────────────────── */

// TestGenerate_NotSavedReturnsPlan hands back the computed plan when it
// cannot be stored.
func TestGenerate_NotSavedReturnsPlan(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	svc.Plans = &failingCommits{SQLite: svc.Plans.(*store.SQLite), n: 1}

	res, err := svc.Generate(ctx, 1, testRaw())
	if !errors.Is(err, ErrNotSaved) {
		t.Fatalf("expected ErrNotSaved, got %v", err)
	}
	if res.Plan.Plan.Nutrition.Energy.CalorieTarget <= 0 || res.Plan.ID != "" {
		t.Errorf("expected an unsaved plan with a target, got %+v", res.Plan)
	}
	if res.Content == nil || res.Content.Source != SourceFallback {
		t.Errorf("expected fallback content, got %+v", res.Content)
	}
	if _, err := svc.Plans.LatestPlan(ctx, 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected nothing stored, got %v", err)
	}
}

// TestMaybeRevise_FailedCommitRetriesOnce keeps one version and one record
// per cycle when the first commit fails.
func TestMaybeRevise_FailedCommitRetriesOnce(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	if _, err := svc.Generate(ctx, 1, testRaw()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	plans := &failingCommits{SQLite: svc.Plans.(*store.SQLite), n: 1}
	svc.Plans = plans
	*clock = testNow.Add(engine.RevisionInterval)

	res, err := svc.MaybeRevise(ctx, 1, testRaw())
	if !errors.Is(err, ErrNotSaved) {
		t.Fatalf("expected ErrNotSaved, got %v", err)
	}
	if res.Status != engine.StatusRevised || res.Stored != nil || res.Plan.Version != 2 {
		t.Errorf("expected the unsaved revision, got status %s stored %v version %d", res.Status, res.Stored, res.Plan.Version)
	}
	if res.Content == nil {
		t.Error("expected fallback content for the unsaved revision")
	}

	if _, err := svc.MaybeRevise(ctx, 1, testRaw()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	again, err := svc.MaybeRevise(ctx, 1, testRaw())
	if err != nil || again.Status != engine.StatusNotDue {
		t.Fatalf("expected not_due after the retry, got %s (%v)", again.Status, err)
	}

	latest, _ := svc.Plans.LatestPlan(ctx, 1)
	history, _ := svc.Plans.AdherenceHistory(ctx, 1, 0)
	if latest.Version != 2 || len(history) != 1 {
		t.Errorf("expected version 2 and one record, got version %d and %d records", latest.Version, len(history))
	}
}
