package engine

import "math"

// heavyWeightKg is the body weight above which weight loss uses the larger deficit.
const heavyWeightKg = 90

// goalMultipliers scale TDEE for goals with a fixed adjustment. Weight loss
// depends on body weight and is handled in goalCalories.
var goalMultipliers = map[Goal]float64{
	GoalBuildMuscle:   1.15,
	GoalMaintain:      1.0,
	GoalGeneralHealth: 1.0,
	GoalEndurance:     1.05,
}

// CalorieFloor is the lowest calorie target any goal may produce: 110% of the
// sedentary-equivalent baseline (tdee / multiplier, i.e. BMR).
func CalorieFloor(tdee, multiplier float64) float64 {
	if multiplier <= 0 {
		return 0
	}
	return tdee / multiplier * 1.1
}

func goalCalories(tdee float64, goal Goal, weightKg float64) float64 {
	if goal == GoalLoseWeight {
		deficit := 0.20
		if weightKg > heavyWeightKg {
			deficit = 0.25
		}
		return tdee * (1 - deficit)
	}
	if m, ok := goalMultipliers[goal]; ok {
		return tdee * m
	}
	return tdee
}

// CalorieTarget maps TDEE and goal to a daily calorie target, never below
// CalorieFloor. Rounding is to the nearest integer unless that would land
// under the floor, in which case the floor is rounded up.
func CalorieTarget(tdee, multiplier float64, goal Goal, weightKg float64) int {
	floor := CalorieFloor(tdee, multiplier)
	target := math.Round(math.Max(goalCalories(tdee, goal, weightKg), floor))
	if target < floor {
		target = math.Ceil(floor)
	}
	return int(target)
}

// clampToFloor raises target to the floor (rounded up) when it falls below it.
func clampToFloor(target int, floor float64) int {
	if float64(target) < floor {
		return int(math.Ceil(floor))
	}
	return target
}
