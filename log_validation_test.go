package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"lg/stride-api/internal/logger"
)

// TestLogHandlers_Validation rejects bad bodies before touching the database,
// so a nil pool is never dereferenced.
func TestLogHandlers_Validation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{log: logger.Nop()}
	router := gin.New()
	api := router.Group("/api", func(c *gin.Context) { c.Set("user_id", 1) })
	api.POST("/meal-log/items", h.createMealLogItem)
	api.GET("/meal-log/week-summary", h.getWeekSummary)
	api.GET("/weight-log", h.getWeightLog)
	api.POST("/weight-log", h.upsertWeightEntry)
	api.POST("/workout-log", h.createWorkoutEntry)
	api.POST("/sleep-log", h.upsertSleepEntry)
	api.POST("/mood-log", h.createMoodEntry)

	cases := []struct {
		name, method, path, body string
	}{
		{"meal missing name", "POST", "/api/meal-log/items", `{"type":"lunch","calories":500}`},
		{"meal bad type", "POST", "/api/meal-log/items", `{"item_name":"Soup","type":"brunch","calories":300}`},
		{"meal negative calories", "POST", "/api/meal-log/items", `{"item_name":"Soup","type":"lunch","calories":-1}`},
		{"meal bad date", "POST", "/api/meal-log/items", `{"item_name":"Soup","type":"lunch","calories":300,"date":"03/02/2026"}`},
		{"week bad start", "GET", "/api/meal-log/week-summary?week_start=monday", ""},
		{"weight missing range", "GET", "/api/weight-log?start=2026-03-01", ""},
		{"weight reversed range", "GET", "/api/weight-log?start=2026-03-09&end=2026-03-01", ""},
		{"weight bad unit", "POST", "/api/weight-log", `{"weight":80,"unit":"stone"}`},
		{"weight zero", "POST", "/api/weight-log", `{"weight":0}`},
		{"workout missing name", "POST", "/api/workout-log", `{"duration_minutes":30}`},
		{"workout too long", "POST", "/api/workout-log", `{"name":"Run","duration_minutes":601}`},
		{"sleep too long", "POST", "/api/sleep-log", `{"hours":25}`},
		{"mood out of range", "POST", "/api/mood-log", `{"mood":6}`},
		{"mood malformed", "POST", "/api/mood-log", `{"mood":"great"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestDateOrToday(t *testing.T) {
	if d, ok := dateOrToday(""); !ok || len(d) != 10 {
		t.Errorf("expected today's date, got %q %v", d, ok)
	}
	if d, ok := dateOrToday("2026-03-02"); !ok || d != "2026-03-02" {
		t.Errorf("expected the given date, got %q %v", d, ok)
	}
	if _, ok := dateOrToday("2026-13-40"); ok {
		t.Error("expected an invalid date to be rejected")
	}
}
