package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"lg/stride-api/engine"
)

// errProfileNotFound is returned when the user never saved any answers.
var errProfileNotFound = errors.New("profile not found")

// loadProfile reads the stored onboarding answers for userID.
func loadProfile(ctx context.Context, q querier, userID int) (userProfile, error) {
	p, err := queryOne[userProfile](ctx, q,
		"SELECT * FROM user_profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if errors.Is(err, pgx.ErrNoRows) {
		return userProfile{}, errProfileNotFound
	}
	return p, err
}

// getProfile returns the stored answers plus the computed energy picture.
// GET /api/profile.
func (h *Handler) getProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	p, err := loadProfile(c, h.db, userID)
	if errors.Is(err, errProfileNotFound) {
		apiError(c, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		h.log.Error("load profile failed", "component", "profile", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, profileResponse{Profile: p, Energy: h.profileEnergy(userID, p)})
}

// profileEnergy returns the energy figures for display, or nil when the
// answers can't produce them. Unanswered questions are expected during
// onboarding; a stored answer the normalizer rejects is logged.
func (h *Handler) profileEnergy(userID int, p userProfile) *energySummary {
	energy, err := computeEnergy(p)
	if err != nil && !isMissingAnswer(err) {
		h.log.Warn("stored profile has an invalid answer", "component", "profile", "user_id", userID, "error", err)
	}
	return energy
}

// patchProfile merges the provided answers into the stored profile and saves
// it. PATCH /api/profile. Pointer fields distinguish "not provided" from zero.
// Answers are checked by the same normalizer that builds plans; an answer
// that is present but invalid is rejected with 400 and the field name, while
// a profile that is still missing required answers is saved as-is.
func (h *Handler) patchProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body patchProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := loadProfile(c, h.db, userID)
	if err != nil && !errors.Is(err, errProfileNotFound) {
		h.log.Error("load profile failed", "component", "profile", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		return
	}
	p.UserID = userID
	p.applyPatch(body)

	energy, err := computeEnergy(p)
	if err != nil && !isMissingAnswer(err) {
		if !configError(c, err) {
			apiError(c, http.StatusInternalServerError, "failed to compute energy")
		}
		return
	}

	saved, err := queryOne[userProfile](c, h.db,
		`INSERT INTO user_profiles (
			user_id, sex, age, weight, weight_unit, height, height_unit, activity_level, goal,
			experience, workout_time, workout_style, diet_preference, meal_frequency, sleep_hours,
			stress_level, equipment, target_weight_kg, dietary_restrictions, updated_at)
		 VALUES (
			@userID, @sex, @age, @weight, @weightUnit, @height, @heightUnit, @activityLevel, @goal,
			@experience, @workoutTime, @workoutStyle, @dietPreference, @mealFrequency, @sleepHours,
			@stressLevel, @equipment, @targetWeightKg, @dietaryRestrictions, now())
		 ON CONFLICT (user_id) DO UPDATE SET
			sex = EXCLUDED.sex, age = EXCLUDED.age,
			weight = EXCLUDED.weight, weight_unit = EXCLUDED.weight_unit,
			height = EXCLUDED.height, height_unit = EXCLUDED.height_unit,
			activity_level = EXCLUDED.activity_level, goal = EXCLUDED.goal,
			experience = EXCLUDED.experience, workout_time = EXCLUDED.workout_time,
			workout_style = EXCLUDED.workout_style, diet_preference = EXCLUDED.diet_preference,
			meal_frequency = EXCLUDED.meal_frequency, sleep_hours = EXCLUDED.sleep_hours,
			stress_level = EXCLUDED.stress_level, equipment = EXCLUDED.equipment,
			target_weight_kg = EXCLUDED.target_weight_kg,
			dietary_restrictions = EXCLUDED.dietary_restrictions,
			updated_at = now()
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "sex": p.Sex, "age": p.Age,
			"weight": p.Weight, "weightUnit": p.WeightUnit,
			"height": p.Height, "heightUnit": p.HeightUnit,
			"activityLevel": p.ActivityLevel, "goal": p.Goal, "experience": p.Experience,
			"workoutTime": p.WorkoutTime, "workoutStyle": p.WorkoutStyle,
			"dietPreference": p.DietPreference, "mealFrequency": p.MealFrequency,
			"sleepHours": p.SleepHours, "stressLevel": p.StressLevel,
			"equipment": nonNil(p.Equipment), "targetWeightKg": p.TargetWeightKg,
			"dietaryRestrictions": nonNil(p.DietaryRestrictions),
		})
	if err != nil {
		h.log.Error("save profile failed", "component", "profile", "user_id", userID, "error", err)
		apiError(c, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, profileResponse{Profile: saved, Energy: energy})
}

// isMissingAnswer reports whether err is a required answer that was never
// given, as opposed to one given with a bad value.
func isMissingAnswer(err error) bool {
	var cfgErr *engine.ConfigurationError
	if !errors.As(err, &cfgErr) {
		return false
	}
	return cfgErr.Value == nil || cfgErr.Value == ""
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
