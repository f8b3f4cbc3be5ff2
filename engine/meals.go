package engine

import (
	"math"
	"sort"
	"strings"
)

// MealFrequencyMode selects how the daily budget is spread across meals.
type MealFrequencyMode string

const (
	Mode3Meals       MealFrequencyMode = "3meals"
	Mode5Meals       MealFrequencyMode = "5meals"
	ModeIntermittent MealFrequencyMode = "intermittent"
)

// MealSlot names a meal in the day.
type MealSlot string

const (
	SlotBreakfast      MealSlot = "breakfast"
	SlotMorningSnack   MealSlot = "morning-snack"
	SlotLunch          MealSlot = "lunch"
	SlotAfternoonSnack MealSlot = "afternoon-snack"
	SlotDinner         MealSlot = "dinner"
	SlotSnack          MealSlot = "snack"
)

const maxSuggestionTags = 3

// MealTemplate is one meal's share of the daily budget plus static
// suggestion tags for it.
type MealTemplate struct {
	Slot           MealSlot `json:"slot"`
	Calories       int      `json:"calories"`
	ProteinG       int      `json:"protein_g"`
	CarbsG         int      `json:"carbs_g"`
	FatG           int      `json:"fat_g"`
	SuggestionTags []string `json:"suggestion_tags"`
}

// NutritionPlan is the nutrition branch of an assembled plan.
type NutritionPlan struct {
	Energy            EnergyTargets     `json:"energy"`
	Macros            MacroTargets      `json:"macros"`
	MealFrequencyMode MealFrequencyMode `json:"meal_frequency_mode"`
	MealTemplates     []MealTemplate    `json:"meal_templates"`
	WaterGoalOz       int               `json:"water_goal_oz"`
	RecipeTags        []string          `json:"recipe_tags"`
}

type slotShare struct {
	slot     MealSlot
	perMille int
}

// mealShares are per-mille of the daily total. The intermittent split is
// 60/40 of half the day's calories, which is 30% and 20% of the full total.
var mealShares = map[MealFrequencyMode][]slotShare{
	Mode3Meals: {
		{SlotBreakfast, 300}, {SlotLunch, 300}, {SlotDinner, 300}, {SlotSnack, 100},
	},
	Mode5Meals: {
		{SlotBreakfast, 250}, {SlotMorningSnack, 125}, {SlotLunch, 250},
		{SlotAfternoonSnack, 125}, {SlotDinner, 250},
	},
	ModeIntermittent: {
		{SlotLunch, 600 / 2}, {SlotDinner, 400 / 2},
	},
}

var slotDefaultTags = map[MealSlot][]string{
	SlotBreakfast:      {"oatmeal", "eggs", "smoothies"},
	SlotLunch:          {"salads", "grain-bowls", "wraps"},
	SlotDinner:         {"lean-protein", "roasted-vegetables", "stir-fry"},
	SlotSnack:          {"greek-yogurt", "nuts", "fruit"},
	SlotMorningSnack:   {"fruit", "nuts", "greek-yogurt"},
	SlotAfternoonSnack: {"hummus", "greek-yogurt", "nuts"},
}

// dietTagRules maps diet-preference keywords to recipe tags.
var dietTagRules = []struct {
	keys []string
	tag  string
}{
	{[]string{"high-protein", "protein"}, "high-protein"},
	{[]string{"low-carb", "keto"}, "low-carb"},
	{[]string{"vegan"}, "vegan"},
	{[]string{"plant", "vegetarian"}, "plant-based"},
	{[]string{"mediterranean"}, "mediterranean"},
	{[]string{"fasting"}, "time-restricted-eating"},
}

var goalTags = map[Goal]string{
	GoalLoseWeight:    "low-calorie",
	GoalBuildMuscle:   "high-protein",
	GoalEndurance:     "energy-dense",
	GoalMaintain:      "balanced",
	GoalGeneralHealth: "whole-foods",
}

// SelectMealMode picks the meal-frequency mode from the user's preferences.
func SelectMealMode(mealFrequency, dietPreference string) MealFrequencyMode {
	switch {
	case strings.Contains(mealFrequency, "5"):
		return Mode5Meals
	case strings.Contains(strings.ToLower(dietPreference), "fasting"):
		return ModeIntermittent
	default:
		return Mode3Meals
	}
}

// MealTemplates distributes the daily calories and macros across the meals
// of mode. Per-slot values are rounded and the largest slot absorbs the
// rounding residue, so 3meals and 5meals sum exactly to the daily target.
func MealTemplates(calorieTarget int, macros MacroTargets, mode MealFrequencyMode, dietPreference string) []MealTemplate {
	shares, ok := mealShares[mode]
	if !ok {
		shares = mealShares[Mode3Meals]
	}
	cal := splitByShares(calorieTarget, shares)
	protein := splitByShares(macros.ProteinG, shares)
	carbs := splitByShares(macros.CarbsG, shares)
	fat := splitByShares(macros.FatG, shares)

	diet := dietTags(dietPreference)
	out := make([]MealTemplate, len(shares))
	for i, s := range shares {
		out[i] = MealTemplate{
			Slot:           s.slot,
			Calories:       cal[i],
			ProteinG:       protein[i],
			CarbsG:         carbs[i],
			FatG:           fat[i],
			SuggestionTags: suggestionTags(diet, s.slot),
		}
	}
	return out
}

// splitByShares rounds total×share for every slot and moves the residue
// between round(total×Σshares) and the rounded parts onto the largest share.
func splitByShares(total int, shares []slotShare) []int {
	parts := make([]int, len(shares))
	sumShares, sumParts, largest := 0, 0, 0
	for i, s := range shares {
		parts[i] = int(math.Round(float64(total) * float64(s.perMille) / 1000))
		sumShares += s.perMille
		sumParts += parts[i]
		if s.perMille > shares[largest].perMille {
			largest = i
		}
	}
	expected := int(math.Round(float64(total) * float64(sumShares) / 1000))
	parts[largest] += expected - sumParts
	return parts
}

func dietTags(dietPreference string) []string {
	pref := strings.ToLower(dietPreference)
	var tags []string
	for _, r := range dietTagRules {
		if containsAny(pref, r.keys...) {
			tags = append(tags, r.tag)
		}
	}
	return tags
}

func suggestionTags(diet []string, slot MealSlot) []string {
	tags := make([]string, 0, maxSuggestionTags)
	seen := make(map[string]bool)
	for _, group := range [][]string{diet, slotDefaultTags[slot]} {
		for _, t := range group {
			if len(tags) == maxSuggestionTags {
				return tags
			}
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// RecipeTags returns the sorted, de-duplicated tag set handed to recipe
// search or content generation: diet tags, a goal tag and any dietary
// restrictions.
func RecipeTags(dietPreference string, goal Goal, restrictions []string) []string {
	set := make(map[string]bool)
	for _, t := range dietTags(dietPreference) {
		set[t] = true
	}
	if t, ok := goalTags[goal]; ok {
		set[t] = true
	}
	for _, r := range restrictions {
		if r != "" {
			set[r] = true
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// WaterGoalOz is the daily water goal in ounces, weightKg × 0.67 × 33.814,
// scaled up for the more active tiers and clamped to [64, 128].
func WaterGoalOz(weightKg float64, level ActivityLevel) int {
	adj := 1.0
	switch level {
	case ActivityVery, ActivityExtreme:
		adj = 1.2
	case ActivityModerate:
		adj = 1.1
	}
	oz := int(math.Round(weightKg * 0.67 * 33.814 * adj))
	if oz < 64 {
		return 64
	}
	if oz > 128 {
		return 128
	}
	return oz
}

// BuildNutrition assembles the nutrition branch for p around the given
// energy targets. Revisions pass an adjusted CalorieTarget through energy.
func BuildNutrition(p Profile, energy EnergyTargets) NutritionPlan {
	macros := AllocateMacros(energy.CalorieTarget, p.DietPreference, p.Goal)
	mode := SelectMealMode(p.MealFrequency, p.DietPreference)
	return NutritionPlan{
		Energy:            energy,
		Macros:            macros,
		MealFrequencyMode: mode,
		MealTemplates:     MealTemplates(energy.CalorieTarget, macros, mode, p.DietPreference),
		WaterGoalOz:       WaterGoalOz(p.WeightKg, p.ActivityLevel),
		RecipeTags:        RecipeTags(p.DietPreference, p.Goal, p.DietaryRestrictions),
	}
}
