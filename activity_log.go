package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

/* ─── Workouts ───────────────────────────────────────────────────────── */

// createWorkoutEntry logs a completed or skipped session.
// POST /api/workout-log. Body: { "date"?, "name", "duration_minutes", "skipped"? }.
func (h *Handler) createWorkoutEntry(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Date            string `json:"date"`
		Name            string `json:"name"`
		DurationMinutes int    `json:"duration_minutes"`
		Skipped         bool   `json:"skipped"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		apiError(c, http.StatusBadRequest, "name is required")
		return
	}
	if body.DurationMinutes < 0 || body.DurationMinutes > 600 {
		apiError(c, http.StatusBadRequest, "duration_minutes must be between 0 and 600")
		return
	}
	date, ok := dateOrToday(body.Date)
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	entry, err := queryOne[workoutEntry](c, h.db,
		`INSERT INTO workout_log (user_id, date, name, duration_minutes, skipped)
		 VALUES (@userID, @date, @name, @duration, @skipped)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "date": date, "name": strings.TrimSpace(body.Name),
			"duration": body.DurationMinutes, "skipped": body.Skipped,
		})
	if err != nil {
		h.log.Error("create workout entry failed", "component", "activity_log", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to create workout entry")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

/* ─── Sleep ──────────────────────────────────────────────────────────── */

// upsertSleepEntry records the hours slept for the night ending on date.
// POST /api/sleep-log. Posting the same date again replaces the value.
func (h *Handler) upsertSleepEntry(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Date  string  `json:"date"`
		Hours float64 `json:"hours"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Hours < 0 || body.Hours > 24 {
		apiError(c, http.StatusBadRequest, "hours must be between 0 and 24")
		return
	}
	date, ok := dateOrToday(body.Date)
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	entry, err := queryOne[sleepEntry](c, h.db,
		`INSERT INTO sleep_log (user_id, date, hours)
		 VALUES (@userID, @date, @hours)
		 ON CONFLICT (user_id, date) DO UPDATE SET hours = EXCLUDED.hours
		 RETURNING *`,
		pgx.NamedArgs{"userID": userID, "date": date, "hours": body.Hours})
	if err != nil {
		h.log.Error("upsert sleep entry failed", "component", "activity_log", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to save sleep entry")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

/* ─── Mood ───────────────────────────────────────────────────────────── */

// createMoodEntry logs a mood check-in from 1 (low) to 5 (great).
// POST /api/mood-log. Several check-ins per day are allowed.
func (h *Handler) createMoodEntry(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Date string  `json:"date"`
		Mood int     `json:"mood"`
		Note *string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Mood < 1 || body.Mood > 5 {
		apiError(c, http.StatusBadRequest, "mood must be between 1 and 5")
		return
	}
	date, ok := dateOrToday(body.Date)
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	entry, err := queryOne[moodEntry](c, h.db,
		`INSERT INTO mood_log (user_id, date, mood, note)
		 VALUES (@userID, @date, @mood, @note)
		 RETURNING *`,
		pgx.NamedArgs{"userID": userID, "date": date, "mood": body.Mood, "note": body.Note})
	if err != nil {
		h.log.Error("create mood entry failed", "component", "activity_log", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to create mood entry")
		return
	}

	c.JSON(http.StatusCreated, entry)
}
