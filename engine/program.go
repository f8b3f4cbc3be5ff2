package engine

import (
	"fmt"
	"strings"
)

// ProgressionType describes how load increases week to week.
type ProgressionType string

const (
	ProgressionLinear        ProgressionType = "linear"
	ProgressionPeriodized    ProgressionType = "periodized"
	ProgressionAutoRegulated ProgressionType = "auto-regulated"
)

// minSets is the lowest set count a revision may reduce volume to.
const minSets = 2

// Volume is the per-exercise prescription shared by a program's days.
type Volume struct {
	Sets        int `json:"sets" yaml:"sets"`
	Reps        int `json:"reps" yaml:"reps"`
	RestSeconds int `json:"rest_seconds" yaml:"rest_seconds"`
}

// WorkoutDay is one training day of a weekly schedule.
type WorkoutDay struct {
	Day             string   `json:"day" yaml:"day"`
	Focus           string   `json:"focus" yaml:"focus"`
	ExerciseNames   []string `json:"exercise_names" yaml:"exercises"`
	DurationMinutes int      `json:"duration_minutes" yaml:"duration_minutes"`
}

// FitnessPlan is the workout branch of an assembled plan.
type FitnessPlan struct {
	ProgramType       string          `json:"program_type"`
	WeeklySchedule    []WorkoutDay    `json:"weekly_schedule"`
	Volume            Volume          `json:"volume"`
	ProgressionType   ProgressionType `json:"progression_type"`
	WeeklyIncreasePct float64         `json:"weekly_increase_pct"`
}

// simplerPrograms is the downgrade path used when workouts are skipped.
var simplerPrograms = map[string]string{
	ProgramPPL:        ProgramUpperLower,
	ProgramUpperLower: ProgramFullBody,
	ProgramStrength:   ProgramFullBody,
}

// SelectProgramName evaluates the program decision table top to bottom;
// the first matching rule wins.
func SelectProgramName(goalText, workoutTime, workoutStyle string) string {
	goal := strings.ToLower(goalText)
	style := strings.ToLower(workoutStyle)
	switch {
	case containsAny(goal, "muscle", "build"):
		switch TimeBucket(workoutTime) {
		case TimeUnder2h, Time2to4h:
			return ProgramFullBody
		case Time4to6h, Time5plus:
			return ProgramPPL
		default:
			return ProgramUpperLower
		}
	case containsAny(goal, "lose", "weight"):
		return ProgramWeightLoss
	case containsAny(style, "home", "bodyweight"):
		return ProgramHome
	case containsAny(goal, "strength", "power"):
		return ProgramStrength
	default:
		return ProgramFullBody
	}
}

// Progression returns the progression model and weekly load increase for an
// experience tier.
func Progression(exp Experience) (ProgressionType, float64) {
	pt := ProgressionPeriodized
	if exp == ExperienceBeginner {
		pt = ProgressionLinear
	}
	pct := 2.5
	if exp == ExperienceIntermediate {
		pct = 5
	}
	return pt, pct
}

// ProgramFor builds the fitness plan for a named template and experience tier.
func ProgramFor(name string, exp Experience) (FitnessPlan, error) {
	days, vol, ok := programTemplateFor(name)
	if !ok {
		return FitnessPlan{}, fmt.Errorf("unknown program template %q", name)
	}
	pt, pct := Progression(exp)
	return FitnessPlan{
		ProgramType:       name,
		WeeklySchedule:    days,
		Volume:            vol,
		ProgressionType:   pt,
		WeeklyIncreasePct: pct,
	}, nil
}

// SelectProgram picks and builds the fitness plan for p.
func SelectProgram(p Profile) (FitnessPlan, error) {
	return ProgramFor(SelectProgramName(p.GoalText, p.WorkoutTime, p.WorkoutStyle), p.Experience)
}

// SimplerProgram returns the template a skipped-workout revision downgrades
// to, if the program has one.
func SimplerProgram(name string) (string, bool) {
	s, ok := simplerPrograms[name]
	return s, ok
}

// ReduceVolume drops one set per exercise, never below minSets. It reports
// whether anything changed.
func ReduceVolume(v Volume) (Volume, bool) {
	if v.Sets <= minSets {
		return v, false
	}
	v.Sets--
	return v, true
}

// Clone returns a copy of f that shares no slices with it.
func (f FitnessPlan) Clone() FitnessPlan {
	days := make([]WorkoutDay, len(f.WeeklySchedule))
	for i, d := range f.WeeklySchedule {
		d.ExerciseNames = append([]string(nil), d.ExerciseNames...)
		days[i] = d
	}
	f.WeeklySchedule = days
	return f
}
