package engine

import "strings"

// EquipmentClass groups the equipment a user can train with.
type EquipmentClass string

const (
	EquipmentGym        EquipmentClass = "gym"
	EquipmentDumbbells  EquipmentClass = "dumbbells"
	EquipmentBodyweight EquipmentClass = "bodyweight"
)

// exerciseRecommendations are standalone suggestions surfaced next to the
// plan. They are independent of the weekly schedule's exercise lists.
var exerciseRecommendations = map[Goal]map[EquipmentClass][]string{
	GoalLoseWeight: {
		EquipmentGym:        {"Rowing Machine Intervals", "Incline Treadmill Walk", "Kettlebell Swing", "Sled Push"},
		EquipmentDumbbells:  {"Dumbbell Thruster", "Renegade Row", "Dumbbell Complex", "Farmer's Carry"},
		EquipmentBodyweight: {"Burpee", "Jump Squat", "Mountain Climber", "High Knees"},
	},
	GoalBuildMuscle: {
		EquipmentGym:        {"Barbell Back Squat", "Bench Press", "Weighted Pull-Up", "Romanian Deadlift"},
		EquipmentDumbbells:  {"Dumbbell Bench Press", "Bulgarian Split Squat", "One-Arm Dumbbell Row", "Dumbbell Romanian Deadlift"},
		EquipmentBodyweight: {"Archer Push-Up", "Pistol Squat Progression", "Inverted Row", "Nordic Curl Negative"},
	},
	GoalEndurance: {
		EquipmentGym:        {"Tempo Run", "Stationary Bike Intervals", "Rowing Steady State", "Stair Climber"},
		EquipmentDumbbells:  {"Dumbbell Step-Up", "Walking Lunge", "Dumbbell Snatch", "Farmer's Carry"},
		EquipmentBodyweight: {"Easy Run", "Jump Rope", "Bear Crawl", "Shuttle Run"},
	},
	GoalMaintain: {
		EquipmentGym:        {"Trap Bar Deadlift", "Cable Row", "Leg Press", "Landmine Press"},
		EquipmentDumbbells:  {"Goblet Squat", "Dumbbell Floor Press", "Dumbbell Row", "Suitcase Carry"},
		EquipmentBodyweight: {"Push-Up", "Split Squat", "Glute Bridge", "Plank"},
	},
	GoalGeneralHealth: {
		EquipmentGym:        {"Brisk Incline Walk", "Goblet Squat", "Seated Cable Row", "Pallof Press"},
		EquipmentDumbbells:  {"Goblet Squat", "Dumbbell Row", "Farmer's Carry", "Dead Bug"},
		EquipmentBodyweight: {"Brisk Walk", "Bodyweight Squat", "Incline Push-Up", "Bird Dog"},
	},
}

// ClassifyEquipment derives an equipment class from the workout style and
// the equipment list. A home or bodyweight style without free weights is
// bodyweight; dumbbells or kettlebells outside a gym are dumbbells.
func ClassifyEquipment(workoutStyle string, equipment []string) EquipmentClass {
	style := strings.ToLower(workoutStyle)
	if strings.Contains(style, "gym") {
		return EquipmentGym
	}
	hasWeights := false
	for _, e := range equipment {
		e = strings.ToLower(e)
		if containsAny(e, "barbell", "rack", "machine", "cable") {
			return EquipmentGym
		}
		if containsAny(e, "dumbbell", "kettlebell") {
			hasWeights = true
		}
	}
	if hasWeights {
		return EquipmentDumbbells
	}
	if containsAny(style, "home", "bodyweight", "outdoor") || len(equipment) > 0 {
		return EquipmentBodyweight
	}
	return EquipmentGym
}

// RecommendExercises returns the static exercise suggestions for a goal and
// equipment class.
func RecommendExercises(goal Goal, class EquipmentClass) []string {
	byClass, ok := exerciseRecommendations[goal]
	if !ok {
		byClass = exerciseRecommendations[GoalGeneralHealth]
	}
	return append([]string(nil), byClass[class]...)
}
