package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"lg/stride-api/internal/store"
)

// validItemTypes is the set of allowed values for the meal_log_item_type enum.
// Unknown values get a 400 instead of a constraint error from the DB.
var validItemTypes = map[string]bool{
	"breakfast": true,
	"lunch":     true,
	"dinner":    true,
	"snack":     true,
	"exercise":  true,
}

// dateOrToday validates a YYYY-MM-DD string, defaulting to today (UTC).
func dateOrToday(s string) (string, bool) {
	if s == "" {
		return time.Now().UTC().Format("2006-01-02"), true
	}
	_, err := time.Parse("2006-01-02", s)
	return s, err == nil
}

// createMealLogItem inserts a new meal log entry.
// POST /api/meal-log/items. Defaults date to today if omitted.
func (h *Handler) createMealLogItem(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body createMealLogItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ItemName == "" {
		apiError(c, http.StatusBadRequest, "item_name is required")
		return
	}
	if !validItemTypes[body.Type] {
		apiError(c, http.StatusBadRequest, "type must be one of: breakfast, lunch, dinner, snack, exercise")
		return
	}
	if body.Calories < 0 {
		apiError(c, http.StatusBadRequest, "calories must not be negative")
		return
	}
	date, ok := dateOrToday(body.Date)
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	item, err := queryOne[mealLogItem](c, h.db,
		`INSERT INTO meal_log_items (user_id, date, item_name, type, qty, uom, calories, protein_g, carbs_g, fat_g)
		 VALUES (@userID, @date, @itemName, @type, @qty, @uom, @calories, @proteinG, @carbsG, @fatG)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "date": date, "itemName": body.ItemName,
			"type": body.Type, "qty": body.Qty, "uom": body.Uom,
			"calories": body.Calories, "proteinG": body.ProteinG,
			"carbsG": body.CarbsG, "fatG": body.FatG,
		})
	if err != nil {
		h.log.Error("create meal log item failed", "component", "meal_log", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to create item")
		return
	}

	c.JSON(http.StatusCreated, item)
}

// deleteMealLogItem removes a meal log entry. Returns 204 on success.
// DELETE /api/meal-log/items/:id.
func (h *Handler) deleteMealLogItem(c *gin.Context) {
	userID := c.GetInt("user_id")

	result, err := h.db.Exec(c,
		"DELETE FROM meal_log_items WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": c.Param("id"), "userID": userID})
	if err != nil {
		h.log.Error("delete meal log item failed", "component", "meal_log", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to delete item")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "item not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// getWeekSummary returns per-day totals for the Mon–Sun week containing
// week_start, measured against the latest plan's calorie target. Days with no
// logged items are included with has_data=false.
// GET /api/meal-log/week-summary?week_start=YYYY-MM-DD (defaults to current week).
func (h *Handler) getWeekSummary(c *gin.Context) {
	userID := c.GetInt("user_id")

	weekStart := currentMonday()
	if s := c.Query("week_start"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid week_start, expected YYYY-MM-DD")
			return
		}
		weekStart = mondayOf(t)
	}
	weekEnd := weekStart.AddDate(0, 0, 6)

	budget, err := h.calorieBudget(c, userID)
	if err != nil {
		h.log.Error("load plan for week summary failed", "component", "meal_log", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to fetch plan")
		return
	}

	// Exercise calories are positive in the DB; the type column decides
	// direction (food adds, exercise subtracts).
	rows, err := queryMany[weekDayDBRow](c, h.db,
		`SELECT
			date,
			SUM(CASE WHEN type != 'exercise' THEN calories ELSE 0 END) AS calories_food,
			SUM(CASE WHEN type  = 'exercise' THEN calories ELSE 0 END) AS calories_exercise,
			COALESCE(SUM(protein_g), 0) AS protein_g,
			COALESCE(SUM(carbs_g),   0) AS carbs_g,
			COALESCE(SUM(fat_g),     0) AS fat_g
		 FROM meal_log_items
		 WHERE user_id = @userID AND date >= @weekStart AND date <= @weekEnd
		 GROUP BY date`,
		pgx.NamedArgs{
			"userID":    userID,
			"weekStart": weekStart.Format("2006-01-02"),
			"weekEnd":   weekEnd.Format("2006-01-02"),
		})
	if err != nil {
		h.log.Error("week summary query failed", "component", "meal_log", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to fetch week data")
		return
	}

	c.JSON(http.StatusOK, buildWeek(weekStart, budget, rows))
}

// buildWeek fills a seven-day summary from the grouped rows.
func buildWeek(weekStart time.Time, budget int, rows []weekDayDBRow) []weekDaySummary {
	byDate := make(map[string]weekDayDBRow, len(rows))
	for _, r := range rows {
		byDate[r.Date.Time.Format("2006-01-02")] = r
	}

	week := make([]weekDaySummary, 7)
	for i := range week {
		d := weekStart.AddDate(0, 0, i)
		day := weekDaySummary{Date: DateOnly{d}, CalorieBudget: budget}
		if row, ok := byDate[d.Format("2006-01-02")]; ok {
			day.HasData = true
			day.CaloriesFood = row.CaloriesFood
			day.CaloriesExercise = row.CaloriesExercise
			day.ProteinG = row.ProteinG
			day.CarbsG = row.CarbsG
			day.FatG = row.FatG
		}
		day.NetCalories = day.CaloriesFood - day.CaloriesExercise
		day.CaloriesLeft = budget - day.NetCalories
		week[i] = day
	}
	return week
}

// calorieBudget is the latest plan's calorie target, 0 without a plan.
func (h *Handler) calorieBudget(ctx context.Context, userID int) (int, error) {
	latest, err := h.plans.Plans.LatestPlan(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return latest.Plan.Nutrition.Energy.CalorieTarget, nil
}
