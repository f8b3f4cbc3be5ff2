package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan date columns into
// DateOnly. NULL zeroes the time so *DateOnly fields can be set to nil.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Accounts and profile ───────────────────────────────────────────── */

// user maps to the users table. AuthToken and Password are hidden from JSON responses.
type user struct {
	ID        int        `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	AuthToken string     `json:"-" db:"auth_token"`
	Password  string     `json:"-" db:"password"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// userProfile maps to user_profiles: the onboarding answers exactly as the
// client sent them. Units are stored next to the numbers and only converted
// when a plan is built.
type userProfile struct {
	UserID              int        `json:"user_id"              db:"user_id"`
	Sex                 *string    `json:"sex"                  db:"sex"`
	Age                 *int       `json:"age"                  db:"age"`
	Weight              *float64   `json:"weight"               db:"weight"`
	WeightUnit          string     `json:"weight_unit"          db:"weight_unit"`
	Height              *float64   `json:"height"               db:"height"`
	HeightUnit          string     `json:"height_unit"          db:"height_unit"`
	ActivityLevel       *string    `json:"activity_level"       db:"activity_level"`
	Goal                *string    `json:"goal"                 db:"goal"`
	Experience          *string    `json:"experience"           db:"experience"`
	WorkoutTime         *string    `json:"workout_time"         db:"workout_time"`
	WorkoutStyle        *string    `json:"workout_style"        db:"workout_style"`
	DietPreference      *string    `json:"diet_preference"      db:"diet_preference"`
	MealFrequency       *string    `json:"meal_frequency"       db:"meal_frequency"`
	SleepHours          *float64   `json:"sleep_hours"          db:"sleep_hours"`
	StressLevel         *string    `json:"stress_level"         db:"stress_level"`
	Equipment           []string   `json:"equipment"            db:"equipment"`
	TargetWeightKg      *float64   `json:"target_weight_kg"     db:"target_weight_kg"`
	DietaryRestrictions []string   `json:"dietary_restrictions" db:"dietary_restrictions"`
	UpdatedAt           *time.Time `json:"updated_at"           db:"updated_at"`
}

// patchProfileRequest is the body for PATCH /api/profile. Only non-nil
// fields change.
type patchProfileRequest struct {
	Sex                 *string   `json:"sex"`
	Age                 *int      `json:"age"`
	Weight              *float64  `json:"weight"`
	WeightUnit          *string   `json:"weight_unit"`
	Height              *float64  `json:"height"`
	HeightUnit          *string   `json:"height_unit"`
	ActivityLevel       *string   `json:"activity_level"`
	Goal                *string   `json:"goal"`
	Experience          *string   `json:"experience"`
	WorkoutTime         *string   `json:"workout_time"`
	WorkoutStyle        *string   `json:"workout_style"`
	DietPreference      *string   `json:"diet_preference"`
	MealFrequency       *string   `json:"meal_frequency"`
	SleepHours          *float64  `json:"sleep_hours"`
	StressLevel         *string   `json:"stress_level"`
	Equipment           *[]string `json:"equipment"`
	TargetWeightKg      *float64  `json:"target_weight_kg"`
	DietaryRestrictions *[]string `json:"dietary_restrictions"`
}

// profileResponse is GET/PATCH /api/profile. Energy is present once the
// answers are complete enough to compute it.
type profileResponse struct {
	Profile userProfile    `json:"profile"`
	Energy  *energySummary `json:"energy,omitempty"`
}

// energySummary is the rounded energy picture shown on the profile screen.
type energySummary struct {
	BMR           int `json:"bmr"`
	TDEE          int `json:"tdee"`
	CalorieTarget int `json:"calorie_target"`
}

/* ─── Logs ───────────────────────────────────────────────────────────── */

// mealLogItem maps to meal_log_items. Nullable numeric fields use pointers
// so pgx can scan NULLs and JSON omits them naturally.
type mealLogItem struct {
	ID        int        `json:"id" db:"id"`
	UserID    int        `json:"user_id" db:"user_id"`
	Date      DateOnly   `json:"date" db:"date"`
	ItemName  string     `json:"item_name" db:"item_name"`
	Type      string     `json:"type" db:"type"`
	Qty       *float64   `json:"qty" db:"qty"`
	Uom       *string    `json:"uom" db:"uom"`
	Calories  int        `json:"calories" db:"calories"`
	ProteinG  *float64   `json:"protein_g" db:"protein_g"`
	CarbsG    *float64   `json:"carbs_g" db:"carbs_g"`
	FatG      *float64   `json:"fat_g" db:"fat_g"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// createMealLogItemRequest is the request body for POST /api/meal-log/items.
type createMealLogItemRequest struct {
	Date     string   `json:"date"`
	ItemName string   `json:"item_name"`
	Type     string   `json:"type"`
	Qty      *float64 `json:"qty"`
	Uom      *string  `json:"uom"`
	Calories int      `json:"calories"`
	ProteinG *float64 `json:"protein_g"`
	CarbsG   *float64 `json:"carbs_g"`
	FatG     *float64 `json:"fat_g"`
}

// weekDayDBRow is the shape of each row returned by the week-summary GROUP BY query.
type weekDayDBRow struct {
	Date             DateOnly `db:"date"`
	CaloriesFood     int      `db:"calories_food"`
	CaloriesExercise int      `db:"calories_exercise"`
	ProteinG         float64  `db:"protein_g"`
	CarbsG           float64  `db:"carbs_g"`
	FatG             float64  `db:"fat_g"`
}

// weekDaySummary is one day of GET /api/meal-log/week-summary. The budget is
// the latest plan's calorie target, 0 when the user has no plan yet.
type weekDaySummary struct {
	Date             DateOnly `json:"date"`
	CalorieBudget    int      `json:"calorie_budget"`
	CaloriesFood     int      `json:"calories_food"`
	CaloriesExercise int      `json:"calories_exercise"`
	NetCalories      int      `json:"net_calories"`
	CaloriesLeft     int      `json:"calories_left"`
	ProteinG         float64  `json:"protein_g"`
	CarbsG           float64  `json:"carbs_g"`
	FatG             float64  `json:"fat_g"`
	HasData          bool     `json:"has_data"`
}

// weightEntry maps to weight_log. One entry per user per date.
type weightEntry struct {
	ID        int        `json:"id" db:"id"`
	UserID    int        `json:"user_id" db:"user_id"`
	Date      DateOnly   `json:"date" db:"date"`
	WeightKg  float64    `json:"weight_kg" db:"weight_kg"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// workoutEntry maps to workout_log.
type workoutEntry struct {
	ID              int        `json:"id" db:"id"`
	UserID          int        `json:"user_id" db:"user_id"`
	Date            DateOnly   `json:"date" db:"date"`
	Name            string     `json:"name" db:"name"`
	DurationMinutes int        `json:"duration_minutes" db:"duration_minutes"`
	Skipped         bool       `json:"skipped" db:"skipped"`
	CreatedAt       *time.Time `json:"created_at" db:"created_at"`
}

// sleepEntry maps to sleep_log. One entry per user per night, keyed by the
// date the user woke up.
type sleepEntry struct {
	ID        int        `json:"id" db:"id"`
	UserID    int        `json:"user_id" db:"user_id"`
	Date      DateOnly   `json:"date" db:"date"`
	Hours     float64    `json:"hours" db:"hours"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// moodEntry maps to mood_log. Mood is 1 (low) to 5 (great).
type moodEntry struct {
	ID        int        `json:"id" db:"id"`
	UserID    int        `json:"user_id" db:"user_id"`
	Date      DateOnly   `json:"date" db:"date"`
	Mood      int        `json:"mood" db:"mood"`
	Note      *string    `json:"note" db:"note"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}
