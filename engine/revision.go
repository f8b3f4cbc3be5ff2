package engine

import (
	"errors"
	"math"
	"time"
)

// RevisionInterval is the minimum time between two revisions for a user.
const RevisionInterval = 7 * 24 * time.Hour

const (
	stallThresholdKg   = -0.2
	stallCyclesNeeded  = 2
	stallDeltaRatio    = 0.06
	minStallDelta      = 120
	maxStallDelta      = 150
	maxCalorieDelta    = 150
	minLowIntakeDays   = 4
	lowMoodThreshold   = 2
	skipDowngradeBelow = 0.50
	skipReduceBelow    = 0.75
)

// RevisionStatus reports what a revision call did.
type RevisionStatus string

const (
	StatusNotDue  RevisionStatus = "not_due"
	StatusRevised RevisionStatus = "revised"
)

// Recommendation codes.
const (
	RecCalorieAdjustment = "calorie-adjustment"
	RecAdherenceStrategy = "adherence-strategy"
	RecSleepFocus        = "sleep-focus"
	RecStressSupport     = "stress-support"
	RecProgramDowngrade  = "program-downgrade"
	RecVolumeReduction   = "volume-reduction"
	RecOnTrack           = "on-track"
)

// ErrNoCurrentPlan is returned by Revise when there is no plan to revise.
var ErrNoCurrentPlan = errors.New("engine: no current plan to revise")

// Recommendation is a coded, human-readable note attached to a revision.
type Recommendation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Deltas are the target changes a revision made.
type Deltas struct {
	CalorieDelta int `json:"calorie_delta"`
	ProteinDelta int `json:"protein_delta"`
	CarbsDelta   int `json:"carbs_delta"`
	FatDelta     int `json:"fat_delta"`
}

// AdherenceRecord summarizes one completed revision cycle. Records are
// append-only.
type AdherenceRecord struct {
	WeekStart         time.Time `json:"week_start"`
	WeekEnd           time.Time `json:"week_end"`
	AdherenceScore    float64   `json:"adherence_score"`
	CaloriesAvg       float64   `json:"calories_avg"`
	ProteinAvg        float64   `json:"protein_avg"`
	WorkoutsCompleted int       `json:"workouts_completed"`
	WorkoutsTargeted  int       `json:"workouts_targeted"`
	SleepAvg          float64   `json:"sleep_avg"`
	MoodAvg           float64   `json:"mood_avg"`
	WeightChangeKg    float64   `json:"weight_change_kg"`
	WeightStalled     bool      `json:"weight_stalled"`
	CalorieAdjusted   bool      `json:"calorie_adjusted"`
	ProposedDeltas    Deltas    `json:"proposed_deltas"`
}

// RevisionInput is everything one revision reads. History is oldest first.
type RevisionInput struct {
	Profile        Profile
	Current        Plan
	Logs           LogWindow
	History        []AdherenceRecord
	LastRevisionAt time.Time
	Now            time.Time
}

// RevisionResult is the outcome of Revise. Plan and Record are only set when
// Status is StatusRevised.
type RevisionResult struct {
	Status          RevisionStatus   `json:"status"`
	Plan            Plan             `json:"plan"`
	Record          AdherenceRecord  `json:"record"`
	Recommendations []Recommendation `json:"recommendations"`
	NextRevisionAt  time.Time        `json:"next_revision_at"`
}

// IsRevisionDue reports whether a revision may run at now. A user who has
// never been revised is always due.
func IsRevisionDue(lastRevisionAt, now time.Time) bool {
	if lastRevisionAt.IsZero() {
		return true
	}
	return !now.Before(lastRevisionAt.Add(RevisionInterval))
}

// Revise scores the trailing log window against the current plan and emits
// the next plan version. Calling it before the revision is due returns
// StatusNotDue and no error.
func Revise(in RevisionInput) (RevisionResult, error) {
	if !IsRevisionDue(in.LastRevisionAt, in.Now) {
		return RevisionResult{
			Status:         StatusNotDue,
			NextRevisionAt: in.LastRevisionAt.Add(RevisionInterval),
		}, nil
	}
	if in.Current.Version == 0 {
		return RevisionResult{}, ErrNoCurrentPlan
	}

	p := in.Profile
	current := in.Current
	target := current.Nutrition.Energy.CalorieTarget
	targeted := len(current.Fitness.WeeklySchedule)
	sum := Summarize(in.Logs, target)

	var recs []Recommendation
	record := AdherenceRecord{
		WeekStart:         in.Now.Add(-RevisionInterval),
		WeekEnd:           in.Now,
		AdherenceScore:    ScoreAdherence(sum, target, targeted),
		CaloriesAvg:       round1(sum.CaloriesAvg),
		ProteinAvg:        round1(sum.ProteinAvg),
		WorkoutsCompleted: sum.WorkoutsCompleted,
		WorkoutsTargeted:  targeted,
		SleepAvg:          round1(sum.SleepAvg),
		MoodAvg:           round1(sum.MoodAvg),
		WeightChangeKg:    round1(sum.WeightChangeKg),
	}

	// Calories.
	mult, err := ActivityMultiplier(p.ActivityLevel)
	if err != nil {
		return RevisionResult{}, err
	}
	energy, err := ComputeEnergy(p)
	if err != nil {
		return RevisionResult{}, err
	}
	lowIntake := isLowIntake(sum, target)
	record.WeightStalled = p.Goal == GoalLoseWeight && sum.WeighIns >= 2 && sum.WeightChangeKg > stallThresholdKg

	delta := 0
	if record.WeightStalled && stalledCycles(in.History)+1 >= stallCyclesNeeded && !lowIntake {
		delta = -stallDelta(target)
	}
	delta = clampInt(delta, -maxCalorieDelta, maxCalorieDelta)
	newTarget := clampToFloor(target+delta, CalorieFloor(energy.TDEE, mult))
	record.CalorieAdjusted = newTarget != target

	switch {
	case lowIntake:
		recs = append(recs, Recommendation{
			Code:    RecAdherenceStrategy,
			Message: "You logged well under your calorie target most days. Keep the target and focus on regular, planned meals.",
		})
	case delta != 0 && record.CalorieAdjusted:
		recs = append(recs, Recommendation{
			Code:    RecCalorieAdjustment,
			Message: "Your weight has held steady for two check-ins, so your daily target is slightly lower this week.",
		})
	}

	// Wellness inputs for the next cycle. A signal missing from this window
	// keeps the value the current plan was built with.
	inputs := WellnessInputsFor(p)
	prev := current.WellnessInputs
	if len(in.Logs.Sleep) > 0 {
		inputs.SleepHours = round1(clampFloat(sum.SleepAvg, minSleep, maxSleep))
		if inputs.SleepHours < shortSleepHours {
			recs = append(recs, Recommendation{
				Code:    RecSleepFocus,
				Message: "You averaged under seven hours of sleep. This week's routine starts winding down earlier.",
			})
		}
	} else if prev.SleepHours > 0 {
		inputs.SleepHours = prev.SleepHours
	}
	if len(in.Logs.Mood) == 0 && IsStressed(prev.StressLevel) && !IsStressed(inputs.StressLevel) {
		inputs.StressLevel = prev.StressLevel
	}
	if len(in.Logs.Mood) > 0 && sum.MoodAvg <= lowMoodThreshold {
		if !IsStressed(inputs.StressLevel) {
			inputs.StressLevel = StressHigh
		}
		recs = append(recs, Recommendation{
			Code:    RecStressSupport,
			Message: "Your mood has been low. Extra breathing and wind-down time is included this week.",
		})
	}

	// Training.
	opts := assembleOptions{calorieTarget: newTarget, wellness: &inputs, program: current.Fitness.ProgramType}
	volume := current.Fitness.Volume
	// No workout entries at all is no signal, not a week of skips.
	if targeted > 0 && sum.WorkoutsLogged > 0 {
		completion := float64(sum.WorkoutsCompleted) / float64(targeted)
		switch {
		case completion < skipDowngradeBelow:
			if simpler, ok := SimplerProgram(current.Fitness.ProgramType); ok {
				opts.program = simpler
				recs = append(recs, Recommendation{
					Code:    RecProgramDowngrade,
					Message: "Most workouts were skipped, so you are moving to the " + simpler + " program.",
				})
				break
			}
			volume = reduceVolume(volume, &recs)
		case completion < skipReduceBelow:
			volume = reduceVolume(volume, &recs)
		}
	}
	if opts.program == current.Fitness.ProgramType {
		opts.volume = &volume
	}

	if len(recs) == 0 {
		recs = append(recs, Recommendation{Code: RecOnTrack, Message: "You are on track. Your targets stay the same this week."})
	}

	next, err := assemble(p, opts)
	if err != nil {
		return RevisionResult{}, err
	}
	next.Version = current.Version + 1

	record.ProposedDeltas = Deltas{
		CalorieDelta: next.Nutrition.Energy.CalorieTarget - target,
		ProteinDelta: next.Nutrition.Macros.ProteinG - current.Nutrition.Macros.ProteinG,
		CarbsDelta:   next.Nutrition.Macros.CarbsG - current.Nutrition.Macros.CarbsG,
		FatDelta:     next.Nutrition.Macros.FatG - current.Nutrition.Macros.FatG,
	}

	return RevisionResult{
		Status:          StatusRevised,
		Plan:            next,
		Record:          record,
		Recommendations: recs,
		NextRevisionAt:  in.Now.Add(RevisionInterval),
	}, nil
}

// isLowIntake is true when at least four logged days, and most of them, fell
// under 75% of target and the window average did too.
func isLowIntake(s WindowSummary, target int) bool {
	if target <= 0 || s.DaysLogged == 0 {
		return false
	}
	return s.DaysUnderIntake >= minLowIntakeDays &&
		s.DaysUnderIntake*2 > s.DaysLogged &&
		s.CaloriesAvg < lowIntakeRatio*float64(target)
}

// stalledCycles counts the trailing run of stalled cycles in history since
// the last calorie adjustment.
func stalledCycles(history []AdherenceRecord) int {
	n := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].CalorieAdjusted || !history[i].WeightStalled {
			break
		}
		n++
	}
	return n
}

func stallDelta(target int) int {
	return clampInt(int(math.Round(float64(target)*stallDeltaRatio)), minStallDelta, maxStallDelta)
}

func reduceVolume(v Volume, recs *[]Recommendation) Volume {
	reduced, changed := ReduceVolume(v)
	if changed {
		*recs = append(*recs, Recommendation{
			Code:    RecVolumeReduction,
			Message: "Workouts were missed this week, so each exercise drops one set.",
		})
	}
	return reduced
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
