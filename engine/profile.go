// Package engine computes energy and macro targets, nutrition, workout and
// wellness plans from a user profile, and revises them from logged adherence.
// Everything here is a pure function of its inputs: no I/O, no clock, no
// randomness. Callers own persistence, content generation and scheduling.
package engine

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Sex is the biological sex used by the Mifflin-St Jeor equation.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ActivityLevel is one of five ordinal activity tiers.
type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "lightly-active"
	ActivityModerate  ActivityLevel = "moderately-active"
	ActivityVery      ActivityLevel = "very-active"
	ActivityExtreme   ActivityLevel = "extremely-active"
)

// Goal is the user's primary goal.
type Goal string

const (
	GoalLoseWeight    Goal = "lose-weight"
	GoalBuildMuscle   Goal = "build-muscle"
	GoalMaintain      Goal = "maintain"
	GoalEndurance     Goal = "improve-endurance"
	GoalGeneralHealth Goal = "general-health"
)

// Experience is the user's training experience tier.
type Experience string

const (
	ExperienceBeginner     Experience = "beginner"
	ExperienceIntermediate Experience = "intermediate"
	ExperienceAdvanced     Experience = "advanced"
)

// StressLevel is the self-reported stress tier.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
	StressVeryHigh StressLevel = "very-high"
)

// Workout time-availability buckets (hours per week).
const (
	TimeUnder2h = "<2h"
	Time2to4h   = "2-4h"
	Time4to6h   = "4-6h"
	Time5plus   = "5+h"
)

// Defaults applied by Normalize when an optional answer is missing.
const (
	DefaultActivity      = ActivitySedentary
	DefaultGoal          = GoalGeneralHealth
	DefaultExperience    = ExperienceBeginner
	DefaultWorkoutTime   = Time2to4h
	DefaultWorkoutStyle  = "gym"
	DefaultDiet          = "balanced"
	DefaultMealFrequency = "3"
	DefaultSleepHours    = 7.5
	DefaultStress        = StressModerate

	minAge, maxAge     = 13, 100
	minSleep, maxSleep = 3.0, 14.0
	lbsPerKg           = 2.20462
	cmPerInch          = 2.54
)

// RawProfile holds onboarding answers as the client sends them. Pointer
// fields distinguish "not answered" from zero.
type RawProfile struct {
	Sex                 string   `json:"sex" yaml:"sex"`
	Age                 *int     `json:"age" yaml:"age"`
	Weight              *float64 `json:"weight" yaml:"weight"`
	WeightUnit          string   `json:"weight_unit" yaml:"weight_unit"`
	Height              *float64 `json:"height" yaml:"height"`
	HeightUnit          string   `json:"height_unit" yaml:"height_unit"`
	ActivityLevel       string   `json:"activity_level" yaml:"activity_level"`
	Goal                string   `json:"goal" yaml:"goal"`
	Experience          string   `json:"experience" yaml:"experience"`
	WorkoutTime         string   `json:"workout_time" yaml:"workout_time"`
	WorkoutStyle        string   `json:"workout_style" yaml:"workout_style"`
	DietPreference      string   `json:"diet_preference" yaml:"diet_preference"`
	MealFrequency       string   `json:"meal_frequency" yaml:"meal_frequency"`
	SleepHours          *float64 `json:"sleep_hours" yaml:"sleep_hours"`
	StressLevel         string   `json:"stress_level" yaml:"stress_level"`
	Equipment           []string `json:"equipment" yaml:"equipment"`
	TargetWeightKg      *float64 `json:"target_weight_kg" yaml:"target_weight_kg"`
	DietaryRestrictions []string `json:"dietary_restrictions" yaml:"dietary_restrictions"`
}

// Profile is the canonical, unit-consistent snapshot every component reads.
// GoalText keeps the normalized wording of the goal because program
// selection matches on it ("build strength" and "build muscle" share a Goal).
type Profile struct {
	Sex                 Sex           `json:"sex"`
	Age                 int           `json:"age"`
	WeightKg            float64       `json:"weight_kg"`
	HeightCm            float64       `json:"height_cm"`
	ActivityLevel       ActivityLevel `json:"activity_level"`
	Goal                Goal          `json:"goal"`
	GoalText            string        `json:"goal_text"`
	Experience          Experience    `json:"experience"`
	WorkoutTime         string        `json:"workout_time"`
	WorkoutStyle        string        `json:"workout_style"`
	DietPreference      string        `json:"diet_preference"`
	MealFrequency       string        `json:"meal_frequency"`
	SleepHours          float64       `json:"sleep_hours"`
	StressLevel         StressLevel   `json:"stress_level"`
	Equipment           []string      `json:"equipment"`
	TargetWeightKg      float64       `json:"target_weight_kg"`
	DietaryRestrictions []string      `json:"dietary_restrictions"`
}

var sexAliases = map[string]Sex{
	"male": SexMale, "m": SexMale, "man": SexMale,
	"female": SexFemale, "f": SexFemale, "woman": SexFemale,
}

// activityAliases accepts the tier names used by older clients
// (light/moderate/active/very_active) alongside the canonical ones.
var activityAliases = map[string]ActivityLevel{
	"sedentary":         ActivitySedentary,
	"light":             ActivityLight,
	"lightly-active":    ActivityLight,
	"moderate":          ActivityModerate,
	"moderately-active": ActivityModerate,
	"active":            ActivityVery,
	"very-active":       ActivityVery,
	"very":              ActivityVery,
	"extra":             ActivityExtreme,
	"extra-active":      ActivityExtreme,
	"extremely-active":  ActivityExtreme,
}

var experienceAliases = map[string]Experience{
	"beginner": ExperienceBeginner, "novice": ExperienceBeginner, "new": ExperienceBeginner,
	"intermediate": ExperienceIntermediate,
	"advanced":     ExperienceAdvanced, "expert": ExperienceAdvanced,
}

var stressAliases = map[string]StressLevel{
	"low":       StressLow,
	"moderate":  StressModerate,
	"medium":    StressModerate,
	"high":      StressHigh,
	"very-high": StressVeryHigh,
	"extreme":   StressVeryHigh,
}

// Normalize validates raw onboarding answers and resolves them into a
// canonical Profile. Required fields that are missing or out of range fail
// with a *ConfigurationError naming the field.
func Normalize(raw RawProfile) (Profile, error) {
	var p Profile

	sex, ok := sexAliases[canon(raw.Sex)]
	if !ok {
		return Profile{}, configErr("sex", raw.Sex, "must be male or female")
	}
	p.Sex = sex

	if raw.Age == nil {
		return Profile{}, configErr("age", nil, "is required")
	}
	if *raw.Age < minAge || *raw.Age > maxAge {
		return Profile{}, configErr("age", *raw.Age, fmt.Sprintf("must be between %d and %d", minAge, maxAge))
	}
	p.Age = *raw.Age

	weightKg, err := weightInKg(raw.Weight, raw.WeightUnit)
	if err != nil {
		return Profile{}, err
	}
	p.WeightKg = weightKg

	heightCm, err := heightInCm(raw.Height, raw.HeightUnit)
	if err != nil {
		return Profile{}, err
	}
	p.HeightCm = heightCm

	p.ActivityLevel = DefaultActivity
	if a := canon(raw.ActivityLevel); a != "" {
		level, ok := activityAliases[a]
		if !ok {
			return Profile{}, configErr("activity_level", raw.ActivityLevel, "unrecognized activity level")
		}
		p.ActivityLevel = level
	}

	p.Goal, p.GoalText = DefaultGoal, string(DefaultGoal)
	if g := canon(raw.Goal); g != "" {
		goal, ok := parseGoal(g)
		if !ok {
			return Profile{}, configErr("goal", raw.Goal, "unrecognized goal")
		}
		p.Goal, p.GoalText = goal, g
	}

	p.Experience = DefaultExperience
	if e := canon(raw.Experience); e != "" {
		exp, ok := experienceAliases[e]
		if !ok {
			return Profile{}, configErr("experience", raw.Experience, "unrecognized experience level")
		}
		p.Experience = exp
	}

	p.StressLevel = DefaultStress
	if s := canon(raw.StressLevel); s != "" {
		stress, ok := stressAliases[s]
		if !ok {
			return Profile{}, configErr("stress_level", raw.StressLevel, "unrecognized stress level")
		}
		p.StressLevel = stress
	}

	p.WorkoutTime = DefaultWorkoutTime
	if t := canon(raw.WorkoutTime); t != "" {
		if bucket := TimeBucket(t); bucket != "" {
			p.WorkoutTime = bucket
		} else {
			p.WorkoutTime = t
		}
	}

	p.WorkoutStyle = orDefault(canon(raw.WorkoutStyle), DefaultWorkoutStyle)
	p.DietPreference = orDefault(canon(raw.DietPreference), DefaultDiet)
	p.MealFrequency = orDefault(canon(raw.MealFrequency), DefaultMealFrequency)

	p.SleepHours = DefaultSleepHours
	if raw.SleepHours != nil {
		if !isFinite(*raw.SleepHours) {
			return Profile{}, configErr("sleep_hours", *raw.SleepHours, "must be a number")
		}
		p.SleepHours = clampFloat(*raw.SleepHours, minSleep, maxSleep)
	}

	p.TargetWeightKg = p.WeightKg
	if raw.TargetWeightKg != nil {
		if !positive(*raw.TargetWeightKg) || *raw.TargetWeightKg > maxWeightKg {
			return Profile{}, configErr("target_weight_kg", *raw.TargetWeightKg, "must be between 0 and 700 kg")
		}
		p.TargetWeightKg = *raw.TargetWeightKg
	}

	p.Equipment = canonList(raw.Equipment)
	p.DietaryRestrictions = canonList(raw.DietaryRestrictions)
	return p, nil
}

func weightInKg(v *float64, unit string) (float64, error) {
	if v == nil {
		return 0, configErr("weight", nil, "is required")
	}
	if !positive(*v) {
		return 0, configErr("weight", *v, "must be positive")
	}
	var kg float64
	switch canon(unit) {
	case "", "kg", "kgs", "kilograms":
		kg = *v
	case "lb", "lbs", "pounds":
		kg = *v / lbsPerKg
	default:
		return 0, configErr("weight_unit", unit, "must be kg or lb")
	}
	if kg > maxWeightKg {
		return 0, configErr("weight", *v, "must be at most 700 kg")
	}
	return kg, nil
}

func heightInCm(v *float64, unit string) (float64, error) {
	if v == nil {
		return 0, configErr("height", nil, "is required")
	}
	if !positive(*v) {
		return 0, configErr("height", *v, "must be positive")
	}
	var cm float64
	switch canon(unit) {
	case "", "cm":
		cm = *v
	case "in", "inches":
		cm = *v * cmPerInch
	case "m":
		cm = *v * 100
	default:
		return 0, configErr("height_unit", unit, "must be cm, m or in")
	}
	if cm > maxHeightCm {
		return 0, configErr("height", *v, "must be at most 300 cm")
	}
	return cm, nil
}

// Upper bounds on body measurements, so energy figures stay finite.
const (
	maxWeightKg = 700
	maxHeightCm = 300
)

// positive is false for NaN and infinities as well as v <= 0.
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// parseGoal maps free-text goal wording onto a Goal. Matching is by
// substring so "Lose Weight" and "weight_loss" land on the same value.
func parseGoal(g string) (Goal, bool) {
	switch Goal(g) {
	case GoalLoseWeight, GoalBuildMuscle, GoalMaintain, GoalEndurance, GoalGeneralHealth:
		return Goal(g), true
	}
	switch {
	case containsAny(g, "lose", "loss", "fat", "cut", "slim"):
		return GoalLoseWeight, true
	case containsAny(g, "muscle", "build", "gain", "bulk", "strength", "power"):
		return GoalBuildMuscle, true
	case containsAny(g, "endurance", "cardio", "run", "stamina"):
		return GoalEndurance, true
	case containsAny(g, "maintain", "maintenance"):
		return GoalMaintain, true
	case containsAny(g, "health", "wellness", "fit", "general"):
		return GoalGeneralHealth, true
	}
	return "", false
}

// timePattern matches canonicalized availability text such as "4-6-hours",
// "<-2-hours", "less-than-2h" or "5+-hours".
var timePattern = regexp.MustCompile(`^(<|under-|less-than-)?-?(\d+)(\+|-plus|-(\d+))?`)

// TimeBucket maps free-text weekly time availability ("4-6 hours",
// "< 2 hrs/week") onto one of the canonical buckets. Returns "" when the
// text does not name one.
func TimeBucket(text string) string {
	m := timePattern.FindStringSubmatch(canon(strings.ReplaceAll(text, "–", "-")))
	if m == nil {
		return ""
	}
	lo, _ := strconv.Atoi(m[2])
	switch {
	case m[1] != "":
		if lo <= 2 {
			return TimeUnder2h
		}
	case m[3] == "+" || m[3] == "-plus":
		if lo >= 5 {
			return Time5plus
		}
	case m[4] != "":
		hi, _ := strconv.Atoi(m[4])
		switch {
		case hi <= 2:
			return TimeUnder2h
		case lo == 2 && hi == 4:
			return Time2to4h
		case lo == 4 && hi == 6:
			return Time4to6h
		}
	}
	return ""
}

// canon lower-cases, trims and joins words with dashes:
// "Lightly Active" and "lightly_active" both become "lightly-active".
func canon(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}

func canonList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		c := canon(s)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
