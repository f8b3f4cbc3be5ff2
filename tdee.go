package main

import (
	"math"
	"time"

	"lg/stride-api/engine"
)

// rawProfile converts the stored answers into the engine's input. Missing
// answers stay nil or empty so the normalizer applies its defaults.
func (p userProfile) rawProfile() engine.RawProfile {
	return engine.RawProfile{
		Sex:                 deref(p.Sex),
		Age:                 p.Age,
		Weight:              p.Weight,
		WeightUnit:          p.WeightUnit,
		Height:              p.Height,
		HeightUnit:          p.HeightUnit,
		ActivityLevel:       deref(p.ActivityLevel),
		Goal:                deref(p.Goal),
		Experience:          deref(p.Experience),
		WorkoutTime:         deref(p.WorkoutTime),
		WorkoutStyle:        deref(p.WorkoutStyle),
		DietPreference:      deref(p.DietPreference),
		MealFrequency:       deref(p.MealFrequency),
		SleepHours:          p.SleepHours,
		StressLevel:         deref(p.StressLevel),
		Equipment:           p.Equipment,
		TargetWeightKg:      p.TargetWeightKg,
		DietaryRestrictions: p.DietaryRestrictions,
	}
}

// computeEnergy normalizes the answers and returns BMR, TDEE and the daily
// calorie target, rounded for display. The error is the normalizer's
// *engine.ConfigurationError when an answer is missing or out of range.
func computeEnergy(p userProfile) (*energySummary, error) {
	profile, err := engine.Normalize(p.rawProfile())
	if err != nil {
		return nil, err
	}
	e, err := engine.ComputeEnergy(profile)
	if err != nil {
		return nil, err
	}
	return &energySummary{
		BMR:           int(math.Round(e.BMR)),
		TDEE:          int(math.Round(e.TDEE)),
		CalorieTarget: e.CalorieTarget,
	}, nil
}

// applyPatch copies every non-nil field of body onto p.
func (p *userProfile) applyPatch(body patchProfileRequest) {
	setIf(&p.Sex, body.Sex)
	if body.Age != nil {
		p.Age = body.Age
	}
	if body.Weight != nil {
		p.Weight = body.Weight
	}
	if body.WeightUnit != nil {
		p.WeightUnit = *body.WeightUnit
	}
	if body.Height != nil {
		p.Height = body.Height
	}
	if body.HeightUnit != nil {
		p.HeightUnit = *body.HeightUnit
	}
	setIf(&p.ActivityLevel, body.ActivityLevel)
	setIf(&p.Goal, body.Goal)
	setIf(&p.Experience, body.Experience)
	setIf(&p.WorkoutTime, body.WorkoutTime)
	setIf(&p.WorkoutStyle, body.WorkoutStyle)
	setIf(&p.DietPreference, body.DietPreference)
	setIf(&p.MealFrequency, body.MealFrequency)
	if body.SleepHours != nil {
		p.SleepHours = body.SleepHours
	}
	setIf(&p.StressLevel, body.StressLevel)
	if body.Equipment != nil {
		p.Equipment = *body.Equipment
	}
	if body.TargetWeightKg != nil {
		p.TargetWeightKg = body.TargetWeightKg
	}
	if body.DietaryRestrictions != nil {
		p.DietaryRestrictions = *body.DietaryRestrictions
	}
}

func setIf(dst **string, v *string) {
	if v != nil {
		*dst = v
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// currentMonday returns the Monday of the current week at midnight UTC.
// AddDate handles month and year boundaries.
func currentMonday() time.Time {
	return mondayOf(time.Now().UTC())
}

func mondayOf(t time.Time) time.Time {
	weekday := int(t.Weekday()) // 0=Sun
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, -(weekday - 1)).Truncate(24 * time.Hour)
}
