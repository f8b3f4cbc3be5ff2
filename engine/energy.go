package engine

import "math"

// activityMultipliers maps each activity tier to its TDEE multiplier. This is
// the single source of truth for valid tiers.
var activityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary: 1.2,
	ActivityLight:     1.375,
	ActivityModerate:  1.55,
	ActivityVery:      1.725,
	ActivityExtreme:   1.9,
}

// EnergyTargets holds the resting and total daily energy expenditure and the
// goal-adjusted calorie target derived from them.
type EnergyTargets struct {
	BMR           float64 `json:"bmr"`
	TDEE          float64 `json:"tdee"`
	CalorieTarget int     `json:"calorie_target"`
}

// ActivityMultiplier returns the TDEE multiplier for level.
func ActivityMultiplier(level ActivityLevel) (float64, error) {
	m, ok := activityMultipliers[level]
	if !ok {
		return 0, configErr("activity_level", string(level), "unrecognized activity level")
	}
	return m, nil
}

// BMR computes basal metabolic rate with the Mifflin-St Jeor equation.
// Only male and female are modeled; anything else is a ConfigurationError.
func BMR(sex Sex, weightKg, heightCm float64, age int) (float64, error) {
	base := 10*weightKg + 6.25*heightCm - 5*float64(age)
	switch sex {
	case SexMale:
		return base + 5, nil
	case SexFemale:
		return base - 161, nil
	default:
		return 0, configErr("sex", string(sex), "must be male or female")
	}
}

// ComputeEnergy returns BMR, TDEE and the goal-adjusted calorie target for p.
func ComputeEnergy(p Profile) (EnergyTargets, error) {
	bmr, err := BMR(p.Sex, p.WeightKg, p.HeightCm, p.Age)
	if err != nil {
		return EnergyTargets{}, err
	}
	mult, err := ActivityMultiplier(p.ActivityLevel)
	if err != nil {
		return EnergyTargets{}, err
	}
	bmr = math.Max(bmr, 0)
	tdee := bmr * mult
	return EnergyTargets{
		BMR:           bmr,
		TDEE:          tdee,
		CalorieTarget: CalorieTarget(tdee, mult, p.Goal, p.WeightKg),
	}, nil
}
