package engine

import (
	"errors"
	"math"
	"testing"
)

/* ─── Energy model ───────────────────────────────────────────────────── */

// TestBMR_MaleWorkedExample checks Mifflin-St Jeor for a 30 year old,
// 75 kg, 175 cm male: 750 + 1093.75 - 150 + 5.
func TestBMR_MaleWorkedExample(t *testing.T) {
	bmr, err := BMR(SexMale, 75, 175, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bmr != 1698.75 {
		t.Errorf("expected BMR 1698.75, got %v", bmr)
	}
}

// TestBMR_FemaleOffset verifies the female constant is 166 below the male one.
func TestBMR_FemaleOffset(t *testing.T) {
	male, _ := BMR(SexMale, 60, 165, 40)
	female, err := BMR(SexFemale, 60, 165, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if male-female != 166 {
		t.Errorf("expected a 166 kcal gap, got %v", male-female)
	}
}

// TestBMR_UnknownSex verifies an unmodeled sex is a ConfigurationError on the
// sex field rather than a silent default.
func TestBMR_UnknownSex(t *testing.T) {
	_, err := BMR(Sex("other"), 75, 175, 30)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %v", err)
	}
	if cfgErr.Field != "sex" {
		t.Errorf("expected field sex, got %q", cfgErr.Field)
	}
}

// TestComputeEnergy_TDEEWorkedExample applies the lightly-active multiplier
// to the worked BMR example.
func TestComputeEnergy_TDEEWorkedExample(t *testing.T) {
	p := Profile{Sex: SexMale, Age: 30, WeightKg: 75, HeightCm: 175, ActivityLevel: ActivityLight, Goal: GoalMaintain}
	e, err := ComputeEnergy(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(e.TDEE-2335.78) > 0.01 {
		t.Errorf("expected TDEE ≈ 2335.78, got %.4f", e.TDEE)
	}
	if e.CalorieTarget != 2336 {
		t.Errorf("expected maintenance target 2336, got %d", e.CalorieTarget)
	}
}

/* ─── Goal adjuster ──────────────────────────────────────────────────── */

// TestCalorieTarget_Goals checks each goal's multiplier on a TDEE well above
// the floor.
func TestCalorieTarget_Goals(t *testing.T) {
	const tdee, mult = 3000.0, 1.9
	cases := []struct {
		goal   Goal
		weight float64
		want   int
	}{
		{GoalLoseWeight, 80, 2400},
		{GoalLoseWeight, 95, 2250},
		{GoalBuildMuscle, 80, 3450},
		{GoalMaintain, 80, 3000},
		{GoalGeneralHealth, 80, 3000},
		{GoalEndurance, 80, 3150},
	}
	for _, tc := range cases {
		t.Run(string(tc.goal), func(t *testing.T) {
			got := CalorieTarget(tdee, mult, tc.goal, tc.weight)
			if got != tc.want {
				t.Errorf("CalorieTarget(%s, %.0fkg) = %d, want %d", tc.goal, tc.weight, got, tc.want)
			}
		})
	}
}

// TestCalorieTarget_FloorWins verifies a deep deficit on a sedentary profile
// is lifted to 110% of BMR.
func TestCalorieTarget_FloorWins(t *testing.T) {
	bmr := 1898.75
	tdee := bmr * 1.2
	got := CalorieTarget(tdee, 1.2, GoalLoseWeight, 95)
	if got != int(math.Ceil(bmr*1.1)) {
		t.Errorf("expected floor %d, got %d", int(math.Ceil(bmr*1.1)), got)
	}
}

// TestCalorieTarget_FloorInvariant sweeps sex, age, weight, height, activity
// and goal and checks the target never falls below the floor, including the
// 25% deficit for heavier users.
func TestCalorieTarget_FloorInvariant(t *testing.T) {
	for _, sex := range []Sex{SexMale, SexFemale} {
		for _, age := range []int{13, 30, 55, 100} {
			for _, w := range []float64{40, 75, 91, 150, 220} {
				for _, h := range []float64{140, 175, 210} {
					for level, mult := range activityMultipliers {
						for _, goal := range []Goal{GoalLoseWeight, GoalBuildMuscle, GoalMaintain, GoalEndurance, GoalGeneralHealth} {
							p := Profile{Sex: sex, Age: age, WeightKg: w, HeightCm: h, ActivityLevel: level, Goal: goal}
							e, err := ComputeEnergy(p)
							if err != nil {
								t.Fatalf("unexpected error: %v", err)
							}
							floor := CalorieFloor(e.TDEE, mult)
							if float64(e.CalorieTarget) < floor {
								t.Fatalf("%+v: target %d below floor %.2f", p, e.CalorieTarget, floor)
							}
						}
					}
				}
			}
		}
	}
}
