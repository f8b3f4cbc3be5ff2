package engine

import (
	"math"
	"sort"
	"time"
)

const (
	calorieWeight = 30
	workoutWeight = 20

	lowIntakeRatio = 0.75
)

// MealLog is one logged food entry.
type MealLog struct {
	Date     time.Time `json:"date" yaml:"date"`
	Calories int       `json:"calories" yaml:"calories"`
	ProteinG float64   `json:"protein_g" yaml:"protein_g"`
	CarbsG   float64   `json:"carbs_g" yaml:"carbs_g"`
	FatG     float64   `json:"fat_g" yaml:"fat_g"`
}

// WorkoutLog is one logged workout. Skipped entries record a planned
// session the user chose not to do.
type WorkoutLog struct {
	Date            time.Time `json:"date" yaml:"date"`
	Name            string    `json:"name" yaml:"name"`
	DurationMinutes int       `json:"duration_minutes" yaml:"duration_minutes"`
	Skipped         bool      `json:"skipped" yaml:"skipped"`
}

// SleepLog is one night of sleep.
type SleepLog struct {
	Date  time.Time `json:"date" yaml:"date"`
	Hours float64   `json:"hours" yaml:"hours"`
}

// MoodLog is one mood check-in on a 1 (low) to 5 (great) scale.
type MoodLog struct {
	Date time.Time `json:"date" yaml:"date"`
	Mood int       `json:"mood" yaml:"mood"`
}

// WeightLog is one weigh-in.
type WeightLog struct {
	Date     time.Time `json:"date" yaml:"date"`
	WeightKg float64   `json:"weight_kg" yaml:"weight_kg"`
}

// LogWindow is the trailing seven days of logged behavior a revision reads.
type LogWindow struct {
	Meals    []MealLog    `json:"meals" yaml:"meals"`
	Workouts []WorkoutLog `json:"workouts" yaml:"workouts"`
	Sleep    []SleepLog   `json:"sleep" yaml:"sleep"`
	Mood     []MoodLog    `json:"mood" yaml:"mood"`
	Weights  []WeightLog  `json:"weights" yaml:"weights"`
}

// WindowSummary aggregates a LogWindow. Nutrition averages are per day over
// days that have at least one meal logged.
type WindowSummary struct {
	DaysLogged        int
	CaloriesAvg       float64
	ProteinAvg        float64
	CarbsAvg          float64
	FatAvg            float64
	DaysUnderIntake   int
	WorkoutsLogged    int
	WorkoutsCompleted int
	SleepAvg          float64
	MoodAvg           float64
	WeighIns          int
	WeightChangeKg    float64
}

// Summarize aggregates w against the active calorie target. DaysUnderIntake
// counts logged days whose total is below 75% of the target.
func Summarize(w LogWindow, calorieTarget int) WindowSummary {
	var s WindowSummary

	type dayTotals struct{ cal, protein, carbs, fat float64 }
	days := make(map[string]*dayTotals)
	for _, m := range w.Meals {
		key := m.Date.Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &dayTotals{}
			days[key] = d
		}
		d.cal += float64(m.Calories)
		d.protein += m.ProteinG
		d.carbs += m.CarbsG
		d.fat += m.FatG
	}
	s.DaysLogged = len(days)
	for _, d := range days {
		s.CaloriesAvg += d.cal
		s.ProteinAvg += d.protein
		s.CarbsAvg += d.carbs
		s.FatAvg += d.fat
		if calorieTarget > 0 && d.cal < lowIntakeRatio*float64(calorieTarget) {
			s.DaysUnderIntake++
		}
	}
	if s.DaysLogged > 0 {
		n := float64(s.DaysLogged)
		s.CaloriesAvg /= n
		s.ProteinAvg /= n
		s.CarbsAvg /= n
		s.FatAvg /= n
	}

	s.WorkoutsLogged = len(w.Workouts)
	for _, wo := range w.Workouts {
		if !wo.Skipped {
			s.WorkoutsCompleted++
		}
	}

	if len(w.Sleep) > 0 {
		for _, sl := range w.Sleep {
			s.SleepAvg += sl.Hours
		}
		s.SleepAvg /= float64(len(w.Sleep))
	}

	if len(w.Mood) > 0 {
		for _, m := range w.Mood {
			s.MoodAvg += float64(m.Mood)
		}
		s.MoodAvg /= float64(len(w.Mood))
	}

	s.WeighIns = len(w.Weights)
	if s.WeighIns >= 2 {
		weights := append([]WeightLog(nil), w.Weights...)
		sort.Slice(weights, func(i, j int) bool { return weights[i].Date.Before(weights[j].Date) })
		s.WeightChangeKg = weights[len(weights)-1].WeightKg - weights[0].WeightKg
	}
	return s
}

// ScoreAdherence starts at 100 and subtracts a calorie penalty
// (|avg − target| / target × 30) and, when workouts were planned, a workout
// penalty ((1 − completed/targeted) × 20). A window with no meals logged
// averages zero calories and takes the full calorie penalty. The result is
// clamped to [0, 100] and rounded to one decimal.
func ScoreAdherence(s WindowSummary, calorieTarget, workoutsTargeted int) float64 {
	score := 100.0
	if calorieTarget > 0 {
		score -= math.Abs(s.CaloriesAvg-float64(calorieTarget)) / float64(calorieTarget) * calorieWeight
	}
	if workoutsTargeted > 0 {
		ratio := math.Min(float64(s.WorkoutsCompleted)/float64(workoutsTargeted), 1)
		score -= (1 - ratio) * workoutWeight
	}
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*10) / 10
}
