package engine

import (
	"math"
	"testing"
)

var dietPreferences = []string{"balanced", "high-protein", "low-carb", "keto", "plant-based", "vegan", "mediterranean", "flexible", "intermittent-fasting", "unknown"}

/* ─── Macro allocator ────────────────────────────────────────────────── */

// TestAllocateMacros_RoundTrip checks the macro grams convert back to within
// 2% of the calorie target for every diet, with and without the muscle
// override.
func TestAllocateMacros_RoundTrip(t *testing.T) {
	for _, diet := range dietPreferences {
		for _, goal := range []Goal{GoalMaintain, GoalBuildMuscle} {
			for cal := 500; cal <= 6000; cal += 37 {
				m := AllocateMacros(cal, diet, goal)
				if m.ProteinG < 0 || m.CarbsG < 0 || m.FatG < 0 {
					t.Fatalf("%s/%s/%d: negative macros %+v", diet, goal, cal, m)
				}
				if diff := math.Abs(float64(m.Calories() - cal)); diff > 0.02*float64(cal) {
					t.Fatalf("%s/%s/%d: macros total %d kcal", diet, goal, cal, m.Calories())
				}
			}
		}
	}
}

// TestAllocateMacros_Balanced checks the default split at 2000 kcal.
func TestAllocateMacros_Balanced(t *testing.T) {
	m := AllocateMacros(2000, "balanced", GoalMaintain)
	want := MacroTargets{ProteinG: 125, CarbsG: 249, FatG: 56}
	if m != want {
		t.Errorf("expected %+v, got %+v", want, m)
	}
}

// TestAllocateMacros_ZeroCalories returns zero grams instead of negatives.
func TestAllocateMacros_ZeroCalories(t *testing.T) {
	if m := AllocateMacros(0, "balanced", GoalMaintain); m != (MacroTargets{}) {
		t.Errorf("expected zero macros, got %+v", m)
	}
}

// TestRatiosFor_MuscleOverride raises protein to 30% and keeps fat:carb
// proportional.
func TestRatiosFor_MuscleOverride(t *testing.T) {
	r := RatiosFor("plant-based", GoalBuildMuscle)
	if r.Protein != 0.30 {
		t.Errorf("expected protein 0.30, got %v", r.Protein)
	}
	if math.Abs(r.Fat/r.Carbs-0.25/0.55) > 1e-9 {
		t.Errorf("fat:carb ratio changed: %v", r.Fat/r.Carbs)
	}
	if math.Abs(r.Protein+r.Fat+r.Carbs-1) > 1e-9 {
		t.Errorf("ratios do not sum to 1: %+v", r)
	}
	if hp := RatiosFor("high-protein", GoalBuildMuscle); hp.Protein != 0.35 {
		t.Errorf("expected high-protein to keep 0.35, got %v", hp.Protein)
	}
}

/* ─── Meal templates ─────────────────────────────────────────────────── */

func sumCalories(meals []MealTemplate) int {
	total := 0
	for _, m := range meals {
		total += m.Calories
	}
	return total
}

// TestMealTemplates_SumsExactly verifies 3meals and 5meals split the whole
// target with no rounding drift.
func TestMealTemplates_SumsExactly(t *testing.T) {
	for cal := 1200; cal <= 4000; cal += 13 {
		macros := AllocateMacros(cal, "balanced", GoalMaintain)
		for _, mode := range []MealFrequencyMode{Mode3Meals, Mode5Meals} {
			meals := MealTemplates(cal, macros, mode, "balanced")
			if got := sumCalories(meals); got != cal {
				t.Fatalf("%s at %d kcal: meals sum to %d", mode, cal, got)
			}
		}
	}
}

// TestMealTemplates_Slots checks slot order and count per mode.
func TestMealTemplates_Slots(t *testing.T) {
	cases := []struct {
		mode  MealFrequencyMode
		slots []MealSlot
	}{
		{Mode3Meals, []MealSlot{SlotBreakfast, SlotLunch, SlotDinner, SlotSnack}},
		{Mode5Meals, []MealSlot{SlotBreakfast, SlotMorningSnack, SlotLunch, SlotAfternoonSnack, SlotDinner}},
		{ModeIntermittent, []MealSlot{SlotLunch, SlotDinner}},
	}
	for _, tc := range cases {
		meals := MealTemplates(2000, AllocateMacros(2000, "balanced", GoalMaintain), tc.mode, "balanced")
		if len(meals) != len(tc.slots) {
			t.Fatalf("%s: expected %d meals, got %d", tc.mode, len(tc.slots), len(meals))
		}
		for i, m := range meals {
			if m.Slot != tc.slots[i] {
				t.Errorf("%s: slot %d = %s, want %s", tc.mode, i, m.Slot, tc.slots[i])
			}
			if len(m.SuggestionTags) == 0 || len(m.SuggestionTags) > 3 {
				t.Errorf("%s/%s: expected 1-3 tags, got %v", tc.mode, m.Slot, m.SuggestionTags)
			}
		}
	}
}

// TestMealTemplates_Intermittent keeps the 30%/20% split of the daily total.
func TestMealTemplates_Intermittent(t *testing.T) {
	meals := MealTemplates(2000, AllocateMacros(2000, "balanced", GoalMaintain), ModeIntermittent, "intermittent fasting")
	if meals[0].Calories != 600 || meals[1].Calories != 400 {
		t.Errorf("expected lunch 600 / dinner 400, got %d / %d", meals[0].Calories, meals[1].Calories)
	}
	if meals[0].SuggestionTags[0] != "time-restricted-eating" {
		t.Errorf("expected diet tag first, got %v", meals[0].SuggestionTags)
	}
}

// TestSelectMealMode covers the preference keywords.
func TestSelectMealMode(t *testing.T) {
	cases := []struct {
		freq, diet string
		want       MealFrequencyMode
	}{
		{"3", "balanced", Mode3Meals},
		{"5", "balanced", Mode5Meals},
		{"5-small-meals", "intermittent-fasting", Mode5Meals},
		{"3", "intermittent-fasting", ModeIntermittent},
	}
	for _, tc := range cases {
		if got := SelectMealMode(tc.freq, tc.diet); got != tc.want {
			t.Errorf("SelectMealMode(%q, %q) = %s, want %s", tc.freq, tc.diet, got, tc.want)
		}
	}
}

// TestWaterGoalOz_Clamped keeps very light and very heavy users inside
// [64, 128] oz.
func TestWaterGoalOz_Clamped(t *testing.T) {
	for _, w := range []float64{40, 200} {
		for level := range activityMultipliers {
			oz := WaterGoalOz(w, level)
			if oz < 64 || oz > 128 {
				t.Errorf("WaterGoalOz(%v, %s) = %d, outside [64,128]", w, level, oz)
			}
		}
	}
}

// TestRecipeTags returns a sorted, de-duplicated set.
func TestRecipeTags(t *testing.T) {
	got := RecipeTags("high-protein", GoalBuildMuscle, []string{"gluten-free", "gluten-free"})
	want := []string{"gluten-free", "high-protein"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}
