package contentgen

import (
	"context"
	"fmt"

	"lg/stride-api/engine"
)

/* ─── Generated content types ────────────────────────────────────────── */

// MealIdea is one generated meal for a plan slot.
type MealIdea struct {
	Slot        string `json:"slot"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Calories    int    `json:"calories"`
	ProteinG    int    `json:"protein_g"`
	CarbsG      int    `json:"carbs_g"`
	FatG        int    `json:"fat_g"`
}

// WorkoutNote is generated coaching text for one training day.
type WorkoutNote struct {
	Focus  string `json:"focus"`
	Warmup string `json:"warmup"`
	Notes  string `json:"notes"`
}

/* ─── Prompts ────────────────────────────────────────────────────────── */

const mealIdeasSystemPrompt = `You are a meal planner. The user message is a JSON object with a daily calorie target, macro targets in grams, a list of meals (slot, calories, protein_g, carbs_g, fat_g, tags) and recipe tags.
For every meal in the list, suggest one simple dish that fits its calories and macros within about 10% and matches its tags and the recipe tags.
Return a JSON object: {"meals": [{"slot", "title", "description" (one sentence), "calories", "protein_g", "carbs_g", "fat_g"}]} with the meals in the same order.
Return only valid JSON, no explanation.`

const workoutNotesSystemPrompt = `You are a strength and conditioning coach. The user message is a JSON object with a program name, a list of training-day focus labels and the set/rep/rest prescription.
For every focus label, write a short warm-up and one or two sentences of coaching notes for that session.
Return a JSON object: {"days": [{"focus", "warmup", "notes"}]} with the days in the same order.
Return only valid JSON, no explanation.`

/* ─── Calls ──────────────────────────────────────────────────────────── */

// MealIdeas asks for one dish per meal slot in brief.
func (c *Client) MealIdeas(ctx context.Context, brief engine.ContentBrief) ([]MealIdea, error) {
	var out struct {
		Meals []MealIdea `json:"meals"`
	}
	if err := c.completeJSON(ctx, mealIdeasSystemPrompt, brief, &out); err != nil {
		return nil, fmt.Errorf("meal ideas: %w", err)
	}
	if len(out.Meals) == 0 {
		return nil, fmt.Errorf("meal ideas: empty response")
	}
	return out.Meals, nil
}

// WorkoutNotes asks for coaching notes per training day in brief.
func (c *Client) WorkoutNotes(ctx context.Context, brief engine.ContentBrief) ([]WorkoutNote, error) {
	req := struct {
		ProgramType string        `json:"program_type"`
		Focus       []string      `json:"focus"`
		Volume      engine.Volume `json:"volume"`
	}{brief.ProgramType, brief.Focus, brief.Volume}

	var out struct {
		Days []WorkoutNote `json:"days"`
	}
	if err := c.completeJSON(ctx, workoutNotesSystemPrompt, req, &out); err != nil {
		return nil, fmt.Errorf("workout notes: %w", err)
	}
	if len(out.Days) == 0 {
		return nil, fmt.Errorf("workout notes: empty response")
	}
	return out.Days, nil
}
