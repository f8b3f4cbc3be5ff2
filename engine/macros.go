package engine

import (
	"math"
	"strings"
)

// Caloric density in kcal per gram.
const (
	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9

	muscleMinProteinRatio = 0.30
)

// MacroRatios is the share of calories assigned to each macro. Shares sum to 1.
type MacroRatios struct {
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
	Carbs   float64 `json:"carbs"`
}

// MacroTargets holds daily macro targets in grams.
type MacroTargets struct {
	ProteinG int `json:"protein_g"`
	CarbsG   int `json:"carbs_g"`
	FatG     int `json:"fat_g"`
}

// Calories returns the energy the macro grams represent.
func (m MacroTargets) Calories() int {
	return m.ProteinG*kcalPerGramProtein + m.CarbsG*kcalPerGramCarbs + m.FatG*kcalPerGramFat
}

var balancedRatios = MacroRatios{Protein: 0.25, Fat: 0.25, Carbs: 0.50}

// dietRatios is checked in order; the first key contained in the diet
// preference wins.
var dietRatios = []struct {
	keys   []string
	ratios MacroRatios
}{
	{[]string{"high-protein", "protein"}, MacroRatios{Protein: 0.35, Fat: 0.25, Carbs: 0.40}},
	{[]string{"low-carb", "keto"}, MacroRatios{Protein: 0.30, Fat: 0.45, Carbs: 0.25}},
	{[]string{"plant", "vegan", "vegetarian"}, MacroRatios{Protein: 0.20, Fat: 0.25, Carbs: 0.55}},
	{[]string{"mediterranean"}, MacroRatios{Protein: 0.20, Fat: 0.35, Carbs: 0.45}},
	{[]string{"flexible"}, MacroRatios{Protein: 0.25, Fat: 0.25, Carbs: 0.50}},
}

// RatiosFor returns the macro split for a diet preference and goal. Unknown
// preferences get the balanced split. Muscle gain raises protein to at least
// 30%, with fat and carbs sharing the remainder in their original proportion.
func RatiosFor(dietPreference string, goal Goal) MacroRatios {
	r := balancedRatios
	pref := strings.ToLower(dietPreference)
	for _, d := range dietRatios {
		if containsAny(pref, d.keys...) {
			r = d.ratios
			break
		}
	}
	if goal == GoalBuildMuscle && r.Protein < muscleMinProteinRatio {
		rest := r.Fat + r.Carbs
		remainder := 1 - muscleMinProteinRatio
		r = MacroRatios{
			Protein: muscleMinProteinRatio,
			Fat:     r.Fat / rest * remainder,
			Carbs:   r.Carbs / rest * remainder,
		}
	}
	return r
}

// AllocateMacros splits a calorie target into macro grams. Protein and fat
// come straight from their ratios; carbs take whatever energy remains so the
// rounded grams stay within a few kcal of the target. A remaining pool that
// is zero or negative yields zero carbs.
func AllocateMacros(calorieTarget int, dietPreference string, goal Goal) MacroTargets {
	if calorieTarget <= 0 {
		return MacroTargets{}
	}
	r := RatiosFor(dietPreference, goal)
	cal := float64(calorieTarget)
	protein := int(math.Round(cal * r.Protein / kcalPerGramProtein))
	fat := int(math.Round(cal * r.Fat / kcalPerGramFat))
	remaining := cal - float64(protein*kcalPerGramProtein) - float64(fat*kcalPerGramFat)
	if remaining < 0 {
		remaining = 0
	}
	carbs := int(math.Round(remaining / kcalPerGramCarbs))
	return MacroTargets{ProteinG: protein, CarbsG: carbs, FatG: fat}
}
