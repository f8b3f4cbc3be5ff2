package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lg/stride-api/engine"
	"lg/stride-api/internal/contentgen"
)

/* ─── Request / Response types ───────────────────────────────────────── */

// suggestRequest is the request body for POST /api/meal-log/suggest.
type suggestRequest struct {
	Description string `json:"description"`
	Type        string `json:"type"`
}

// suggestionResponse is the structured entry parsed from a free-text
// description. Exercise entries only carry ItemName, Qty, Uom and Calories.
// Confidence runs from 1 (guess) to 5 (known values).
type suggestionResponse struct {
	ItemName   string  `json:"item_name"`
	Qty        float64 `json:"qty"`
	Uom        string  `json:"uom"`
	Calories   int     `json:"calories"`
	ProteinG   float64 `json:"protein_g"`
	CarbsG     float64 `json:"carbs_g"`
	FatG       float64 `json:"fat_g"`
	Confidence int     `json:"confidence"`
}

/* ─── Prompts ────────────────────────────────────────────────────────── */

const suggestFields = `Return a JSON object with:
- "item_name" (string, title case)
- "qty" (number)
- "uom" (one of: each, g, miles, km, minutes)
- "calories" (integer, total for the full quantity)
- "protein_g", "carbs_g", "fat_g" (integers, totals for the full quantity; always 0 for exercise)
- "confidence" (integer 1-5: 5=exact known values, 3=reasonable estimate, 1=very uncertain)
Return only valid JSON, no explanation.`

const foodSystemPrompt = `You are a nutrition assistant. Parse the food description into a log entry.
Always give your best estimate for vague or unfamiliar foods. Only return {"error": "unrecognized"} if the input is not food at all.
` + suggestFields

// exercisePromptTemplate takes sex, age, weight in kg and height in cm.
const exercisePromptTemplate = `You are a fitness calorie-burn estimator for a %s, %d years old, %.0f kg, %.0f cm.
Parse the exercise description and estimate calories burned. Only return {"error": "unrecognized"} if the input is not an exercise at all.
` + suggestFields

const exercisePromptFallback = `You are a fitness calorie-burn estimator. No body stats are available, so assume an average adult.
Parse the exercise description and estimate calories burned. Only return {"error": "unrecognized"} if the input is not an exercise at all.
` + suggestFields

/* ─── Handler ────────────────────────────────────────────────────────── */

// suggestMealLogItem turns a food or exercise description into a log entry
// via the content generator. POST /api/meal-log/suggest.
func (h *Handler) suggestMealLogItem(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		apiError(c, http.StatusBadRequest, "description is required")
		return
	}
	if h.content == nil {
		apiError(c, http.StatusServiceUnavailable, "suggestions are not configured")
		return
	}

	systemPrompt := foodSystemPrompt
	if req.Type == "exercise" {
		systemPrompt = h.exercisePrompt(c)
	}

	content, err := h.content.Complete(c.Request.Context(), []contentgen.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: req.Description},
	})
	if err != nil {
		h.log.Warn("suggest request failed", "component", "suggest", "error", err)
		apiError(c, http.StatusInternalServerError, "suggestion request failed")
		return
	}

	var parsed struct {
		suggestionResponse
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		h.log.Warn("suggest response unparseable", "component", "suggest", "error", err)
		apiError(c, http.StatusInternalServerError, "suggestion request failed")
		return
	}
	// A usable entry needs at least a name and calories.
	if parsed.Error == "unrecognized" || parsed.ItemName == "" || parsed.Calories == 0 {
		c.JSON(http.StatusOK, gin.H{"error": "unrecognized"})
		return
	}

	c.JSON(http.StatusOK, parsed.suggestionResponse)
}

// exercisePrompt personalizes the calorie-burn prompt with the user's
// normalized body stats, falling back to a generic prompt.
func (h *Handler) exercisePrompt(c *gin.Context) string {
	if h.plans == nil || h.plans.Profiles == nil {
		return exercisePromptFallback
	}
	raw, err := h.plans.Profiles.RawProfile(c, c.GetInt("user_id"))
	if err != nil {
		if !errors.Is(err, errProfileNotFound) {
			h.log.Warn("load profile for suggest failed", "component", "suggest", "error", err)
		}
		return exercisePromptFallback
	}
	p, err := engine.Normalize(raw)
	if err != nil {
		return exercisePromptFallback
	}
	return fmt.Sprintf(exercisePromptTemplate, p.Sex, p.Age, p.WeightKg, p.HeightCm)
}
