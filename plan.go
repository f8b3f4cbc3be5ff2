package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lg/stride-api/engine"
	"lg/stride-api/internal/planservice"
	"lg/stride-api/internal/store"
)

const maxAdherenceHistory = 52

// loadRawProfile reads the user's answers through the plan service's profile
// source, writing the error response itself when that fails.
func (h *Handler) loadRawProfile(c *gin.Context, userID int) (engine.RawProfile, bool) {
	raw, err := h.plans.Profiles.RawProfile(c, userID)
	if errors.Is(err, errProfileNotFound) {
		apiError(c, http.StatusBadRequest, "complete your profile before generating a plan")
		return raw, false
	}
	if err != nil {
		h.log.Error("load profile failed", "component", "plans", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return raw, false
	}
	return raw, true
}

// generatePlan builds a fresh plan from the stored profile and saves it as
// the next version. POST /api/plans/generate.
// Content generation is best effort: on failure the response still has the
// plan, fallback content and "content_error".
func (h *Handler) generatePlan(c *gin.Context) {
	userID := c.GetInt("user_id")
	raw, ok := h.loadRawProfile(c, userID)
	if !ok {
		return
	}

	res, err := h.plans.Generate(c, userID, raw)
	if notSaved(err) {
		c.JSON(http.StatusOK, gin.H{"plan": res.Plan, "content": res.Content, "saved": false, "warning": unsavedWarning})
		return
	}
	if err != nil {
		h.planError(c, userID, "generate", err)
		return
	}

	resp := gin.H{"plan": res.Plan, "content": res.Content, "saved": true}
	if res.ContentErr != nil {
		resp["content_error"] = "content generation unavailable"
	}
	c.JSON(http.StatusCreated, resp)
}

// getLatestPlan returns the newest stored plan version.
// GET /api/plans/latest.
func (h *Handler) getLatestPlan(c *gin.Context) {
	userID := c.GetInt("user_id")

	latest, err := h.plans.Plans.LatestPlan(c, userID)
	if errors.Is(err, store.ErrNotFound) {
		apiError(c, http.StatusNotFound, "no plan yet")
		return
	}
	if err != nil {
		h.log.Error("load latest plan failed", "component", "plans", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to fetch plan")
		return
	}
	c.JSON(http.StatusOK, latest)
}

// revisePlan runs a revision if one is due. POST /api/plans/revise.
// Inside the seven-day interval the response is {"status":"not_due"} with the
// next eligible time; nothing is written.
func (h *Handler) revisePlan(c *gin.Context) {
	userID := c.GetInt("user_id")
	raw, ok := h.loadRawProfile(c, userID)
	if !ok {
		return
	}

	res, err := h.plans.MaybeRevise(c, userID, raw)
	if notSaved(err) {
		c.JSON(http.StatusOK, gin.H{
			"status":          res.Status,
			"plan":            res.Plan,
			"record":          res.Record,
			"recommendations": res.Recommendations,
			"content":         res.Content,
			"saved":           false,
			"warning":         unsavedWarning,
		})
		return
	}
	if err != nil {
		h.planError(c, userID, "revise", err)
		return
	}
	if res.Status == engine.StatusNotDue {
		c.JSON(http.StatusOK, gin.H{"status": res.Status, "next_revision_at": res.NextRevisionAt})
		return
	}

	resp := gin.H{
		"status":           res.Status,
		"plan":             res.Stored,
		"record":           res.Record,
		"recommendations":  res.Recommendations,
		"next_revision_at": res.NextRevisionAt,
		"content":          res.Content,
		"saved":            true,
	}
	if res.ContentErr != nil {
		resp["content_error"] = "content generation unavailable"
	}
	c.JSON(http.StatusOK, resp)
}

// getAdherenceHistory returns past adherence records, oldest first.
// GET /api/plans/adherence?limit=N (default 12, max 52).
func (h *Handler) getAdherenceHistory(c *gin.Context) {
	userID := c.GetInt("user_id")

	limit := 12
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxAdherenceHistory {
			apiError(c, http.StatusBadRequest, "limit must be between 1 and 52")
			return
		}
		limit = n
	}

	records, err := h.plans.Plans.AdherenceHistory(c, userID, limit)
	if err != nil {
		h.log.Error("load adherence history failed", "component", "plans", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to fetch adherence history")
		return
	}
	if records == nil {
		records = []engine.AdherenceRecord{}
	}
	c.JSON(http.StatusOK, records)
}

const unsavedWarning = "plan could not be saved, try again later"

// notSaved reports a computed plan that failed to store. A version conflict
// is left to planError so the client retries.
func notSaved(err error) bool {
	return errors.Is(err, planservice.ErrNotSaved) && !errors.Is(err, store.ErrVersionConflict)
}

// planError maps plan service errors onto HTTP statuses.
func (h *Handler) planError(c *gin.Context, userID int, op string, err error) {
	if configError(c, err) {
		return
	}
	switch {
	case errors.Is(err, engine.ErrNoCurrentPlan):
		apiError(c, http.StatusNotFound, "no plan to revise, generate one first")
	case errors.Is(err, store.ErrVersionConflict):
		apiError(c, http.StatusConflict, "plan was changed concurrently, retry")
	default:
		h.log.Error("plan "+op+" failed", "component", "plans", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to "+op+" plan")
	}
}
