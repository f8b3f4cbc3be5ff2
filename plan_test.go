package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"lg/stride-api/engine"
	"lg/stride-api/internal/logger"
	"lg/stride-api/internal/planservice"
	"lg/stride-api/internal/store"
)

type emptyLogs struct{}

func (emptyLogs) Window(ctx context.Context, userID int, from, to time.Time) (engine.LogWindow, error) {
	return engine.LogWindow{}, nil
}

// setupPlanTest wires the plan routes to a service backed by a temp SQLite
// store. The X-User header stands in for the auth middleware.
func setupPlanTest(t *testing.T, profiles stubProfiles) (*gin.Engine, *time.Time) {
	t.Helper()
	plans, err := store.NewSQLite(filepath.Join(t.TempDir(), "plans.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { plans.Close() })

	clock := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	svc := &planservice.Service{
		Plans:    plans,
		Locker:   store.NewLocalLocker(),
		Logs:     emptyLogs{},
		Profiles: profiles,
		Log:      logger.Nop(),
		Now:      func() time.Time { return clock },
	}
	h := &Handler{log: logger.Nop(), plans: svc}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api", func(c *gin.Context) {
		if c.GetHeader("X-User") == "2" {
			c.Set("user_id", 2)
		} else {
			c.Set("user_id", 1)
		}
		c.Next()
	})
	api.POST("/plans/generate", h.generatePlan)
	api.GET("/plans/latest", h.getLatestPlan)
	api.POST("/plans/revise", h.revisePlan)
	api.GET("/plans/adherence", h.getAdherenceHistory)
	return router, &clock
}

func doPlanRequest(router *gin.Engine, method, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validProfiles() stubProfiles {
	age, weight, height := 30, 80.0, 178.0
	return stubProfiles{
		1: {Sex: "male", Age: &age, Weight: &weight, Height: &height, ActivityLevel: "moderately active", Goal: "build muscle"},
	}
}

// TestPlans_GenerateThenLatest stores version 1 with fallback content and
// serves it from /latest.
func TestPlans_GenerateThenLatest(t *testing.T) {
	router, _ := setupPlanTest(t, validProfiles())

	if w := doPlanRequest(router, "GET", "/api/plans/latest", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before generating, got %d", w.Code)
	}

	w := doPlanRequest(router, "POST", "/api/plans/generate", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var gen struct {
		Plan         store.StoredPlan         `json:"plan"`
		Content      *planservice.PlanContent `json:"content"`
		ContentError string                   `json:"content_error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &gen); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if gen.Plan.Version != 1 || gen.Plan.Plan.Nutrition.Energy.CalorieTarget == 0 {
		t.Errorf("unexpected stored plan %+v", gen.Plan)
	}
	if gen.Content == nil || gen.Content.Source != planservice.SourceFallback {
		t.Errorf("expected fallback content, got %+v", gen.Content)
	}
	if gen.ContentError != "" {
		t.Errorf("expected no content error without a generator, got %q", gen.ContentError)
	}

	w = doPlanRequest(router, "GET", "/api/plans/latest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var latest store.StoredPlan
	json.Unmarshal(w.Body.Bytes(), &latest)
	if latest.ID != gen.Plan.ID || latest.Version != 1 {
		t.Errorf("latest %+v does not match generated %+v", latest, gen.Plan)
	}
}

// TestPlans_GenerateProfileErrors rejects missing and invalid profiles.
func TestPlans_GenerateProfileErrors(t *testing.T) {
	young := 7
	weight, height := 40.0, 140.0
	profiles := stubProfiles{2: {Sex: "female", Age: &young, Weight: &weight, Height: &height}}
	router, _ := setupPlanTest(t, profiles)

	w := doPlanRequest(router, "POST", "/api/plans/generate", "1")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 with no profile, got %d", w.Code)
	}

	w = doPlanRequest(router, "POST", "/api/plans/generate", "2")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid profile, got %d", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["field"] != "age" {
		t.Errorf("expected field 'age', got %q", resp["field"])
	}
}

// TestPlans_Revise walks not_due, then a revision once a week has passed.
func TestPlans_Revise(t *testing.T) {
	router, clock := setupPlanTest(t, validProfiles())

	if w := doPlanRequest(router, "POST", "/api/plans/revise", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with no plan, got %d: %s", w.Code, w.Body.String())
	}
	if w := doPlanRequest(router, "POST", "/api/plans/generate", ""); w.Code != http.StatusCreated {
		t.Fatalf("generate: %d", w.Code)
	}

	w := doPlanRequest(router, "POST", "/api/plans/revise", "")
	var notDue struct {
		Status         string    `json:"status"`
		NextRevisionAt time.Time `json:"next_revision_at"`
	}
	json.Unmarshal(w.Body.Bytes(), &notDue)
	if w.Code != http.StatusOK || notDue.Status != "not_due" {
		t.Fatalf("expected not_due, got %d: %s", w.Code, w.Body.String())
	}
	if want := clock.Add(engine.RevisionInterval); !notDue.NextRevisionAt.Equal(want) {
		t.Errorf("expected next revision %v, got %v", want, notDue.NextRevisionAt)
	}

	*clock = clock.Add(engine.RevisionInterval)
	w = doPlanRequest(router, "POST", "/api/plans/revise", "")
	var revised struct {
		Status string                 `json:"status"`
		Plan   store.StoredPlan       `json:"plan"`
		Record engine.AdherenceRecord `json:"record"`
	}
	json.Unmarshal(w.Body.Bytes(), &revised)
	if w.Code != http.StatusOK || revised.Status != "revised" {
		t.Fatalf("expected revised, got %d: %s", w.Code, w.Body.String())
	}
	if revised.Plan.Version != 2 {
		t.Errorf("expected version 2, got %d", revised.Plan.Version)
	}

	w = doPlanRequest(router, "GET", "/api/plans/adherence", "")
	var records []engine.AdherenceRecord
	json.Unmarshal(w.Body.Bytes(), &records)
	if w.Code != http.StatusOK || len(records) != 1 {
		t.Errorf("expected one adherence record, got %d: %s", w.Code, w.Body.String())
	}
}

// TestPlans_AdherenceHistory returns [] for a new user and validates limit.
func TestPlans_AdherenceHistory(t *testing.T) {
	router, _ := setupPlanTest(t, validProfiles())

	w := doPlanRequest(router, "GET", "/api/plans/adherence", "")
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("expected 200 [], got %d %s", w.Code, w.Body.String())
	}

	for _, limit := range []string{"0", "53", "abc"} {
		w := doPlanRequest(router, "GET", "/api/plans/adherence?limit="+limit, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", limit, w.Code)
		}
	}
}

// readOnlyPlans rejects every plan write.
type readOnlyPlans struct{ *store.SQLite }

func (readOnlyPlans) CommitRevision(ctx context.Context, userID int, plan engine.Plan, rec *engine.AdherenceRecord, at time.Time) (store.StoredPlan, error) {
	return store.StoredPlan{}, errors.New("read-only transaction")
}

// TestPlans_GenerateNotSaved still returns the computed plan, flagged as
// unsaved, when storage fails.
func TestPlans_GenerateNotSaved(t *testing.T) {
	plans, err := store.NewSQLite(filepath.Join(t.TempDir(), "plans.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { plans.Close() })
	svc := &planservice.Service{
		Plans:    readOnlyPlans{plans},
		Locker:   store.NewLocalLocker(),
		Logs:     emptyLogs{},
		Profiles: validProfiles(),
		Log:      logger.Nop(),
	}
	h := &Handler{log: logger.Nop(), plans: svc}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/plans/generate", func(c *gin.Context) { c.Set("user_id", 1) }, h.generatePlan)

	w := doPlanRequest(router, "POST", "/api/plans/generate", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Plan struct {
			Plan engine.Plan `json:"plan"`
		} `json:"plan"`
		Saved   bool   `json:"saved"`
		Warning string `json:"warning"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Saved || resp.Warning == "" || resp.Plan.Plan.Nutrition.Energy.CalorieTarget <= 0 {
		t.Errorf("expected an unsaved plan with a warning, got %s", w.Body.String())
	}
}
