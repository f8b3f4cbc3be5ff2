package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lg/stride-api/engine"
)

// pgLogSource reads profiles and logs from Postgres for the plan service.
type pgLogSource struct {
	db *pgxpool.Pool
}

// RawProfile implements planservice.ProfileSource.
func (s pgLogSource) RawProfile(ctx context.Context, userID int) (engine.RawProfile, error) {
	p, err := loadProfile(ctx, s.db, userID)
	if err != nil {
		return engine.RawProfile{}, err
	}
	return p.rawProfile(), nil
}

// Window implements planservice.LogSource. Log rows are keyed by calendar
// date, so the window covers dates in [from, to); the day of to is excluded.
func (s pgLogSource) Window(ctx context.Context, userID int, from, to time.Time) (engine.LogWindow, error) {
	args := pgx.NamedArgs{
		"userID": userID,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}
	var w engine.LogWindow

	meals, err := queryMany[mealLogItem](ctx, s.db,
		`SELECT * FROM meal_log_items
		 WHERE user_id = @userID AND type != 'exercise' AND date >= @from AND date < @to
		 ORDER BY date, created_at`, args)
	if err != nil {
		return w, fmt.Errorf("meal log: %w", err)
	}
	for _, m := range meals {
		w.Meals = append(w.Meals, engine.MealLog{
			Date:     m.Date.Time,
			Calories: m.Calories,
			ProteinG: orZero(m.ProteinG),
			CarbsG:   orZero(m.CarbsG),
			FatG:     orZero(m.FatG),
		})
	}

	workouts, err := queryMany[workoutEntry](ctx, s.db,
		`SELECT * FROM workout_log
		 WHERE user_id = @userID AND date >= @from AND date < @to
		 ORDER BY date, created_at`, args)
	if err != nil {
		return w, fmt.Errorf("workout log: %w", err)
	}
	for _, e := range workouts {
		w.Workouts = append(w.Workouts, engine.WorkoutLog{
			Date:            e.Date.Time,
			Name:            e.Name,
			DurationMinutes: e.DurationMinutes,
			Skipped:         e.Skipped,
		})
	}

	sleep, err := queryMany[sleepEntry](ctx, s.db,
		`SELECT * FROM sleep_log
		 WHERE user_id = @userID AND date >= @from AND date < @to
		 ORDER BY date`, args)
	if err != nil {
		return w, fmt.Errorf("sleep log: %w", err)
	}
	for _, e := range sleep {
		w.Sleep = append(w.Sleep, engine.SleepLog{Date: e.Date.Time, Hours: e.Hours})
	}

	moods, err := queryMany[moodEntry](ctx, s.db,
		`SELECT * FROM mood_log
		 WHERE user_id = @userID AND date >= @from AND date < @to
		 ORDER BY date, created_at`, args)
	if err != nil {
		return w, fmt.Errorf("mood log: %w", err)
	}
	for _, e := range moods {
		w.Mood = append(w.Mood, engine.MoodLog{Date: e.Date.Time, Mood: e.Mood})
	}

	weights, err := queryMany[weightEntry](ctx, s.db,
		`SELECT * FROM weight_log
		 WHERE user_id = @userID AND date >= @from AND date < @to
		 ORDER BY date`, args)
	if err != nil {
		return w, fmt.Errorf("weight log: %w", err)
	}
	for _, e := range weights {
		w.Weights = append(w.Weights, engine.WeightLog{Date: e.Date.Time, WeightKg: e.WeightKg})
	}

	return w, nil
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
