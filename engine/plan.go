package engine

// Plan is one assembled version of a user's nutrition, fitness and wellness
// plans. Versions start at 1 and each revision replaces the whole plan.
type Plan struct {
	Version             int            `json:"version"`
	Nutrition           NutritionPlan  `json:"nutrition"`
	Fitness             FitnessPlan    `json:"fitness"`
	Wellness            WellnessPlan   `json:"wellness"`
	ExerciseSuggestions []string       `json:"exercise_suggestions"`
	WellnessInputs      WellnessInputs `json:"wellness_inputs"`
}

// assembleOptions override what the builders would derive from the profile
// alone. The zero value reproduces a fresh generation.
type assembleOptions struct {
	calorieTarget int
	program       string
	volume        *Volume
	wellness      *WellnessInputs
}

// Generate builds version 1 of the plan for p.
func Generate(p Profile) (Plan, error) {
	plan, err := assemble(p, assembleOptions{})
	if err != nil {
		return Plan{}, err
	}
	plan.Version = 1
	return plan, nil
}

func assemble(p Profile, opts assembleOptions) (Plan, error) {
	energy, err := ComputeEnergy(p)
	if err != nil {
		return Plan{}, err
	}
	if opts.calorieTarget > 0 {
		energy.CalorieTarget = opts.calorieTarget
	}

	var fitness FitnessPlan
	if opts.program != "" {
		fitness, err = ProgramFor(opts.program, p.Experience)
	} else {
		fitness, err = SelectProgram(p)
	}
	if err != nil {
		return Plan{}, err
	}
	if opts.volume != nil {
		fitness.Volume = *opts.volume
	}

	inputs := WellnessInputsFor(p)
	if opts.wellness != nil {
		inputs = *opts.wellness
	}

	return Plan{
		Nutrition:           BuildNutrition(p, energy),
		Fitness:             fitness,
		Wellness:            ComposeWellness(inputs),
		ExerciseSuggestions: RecommendExercises(p.Goal, ClassifyEquipment(p.WorkoutStyle, p.Equipment)),
		WellnessInputs:      inputs,
	}, nil
}

// MealBrief is the numeric part of one meal template.
type MealBrief struct {
	Slot     MealSlot `json:"slot"`
	Calories int      `json:"calories"`
	ProteinG int      `json:"protein_g"`
	CarbsG   int      `json:"carbs_g"`
	FatG     int      `json:"fat_g"`
	Tags     []string `json:"tags"`
}

// ContentBrief is everything a content generator is allowed to see of a
// plan: targets, tags and the program's shape. It carries no profile data.
type ContentBrief struct {
	CalorieTarget int          `json:"calorie_target"`
	Macros        MacroTargets `json:"macros"`
	Meals         []MealBrief  `json:"meals"`
	RecipeTags    []string     `json:"recipe_tags"`
	ProgramType   string       `json:"program_type"`
	Focus         []string     `json:"focus"`
	Volume        Volume       `json:"volume"`
}

// ContentRequest extracts the content brief for plan.
func ContentRequest(plan Plan) ContentBrief {
	b := ContentBrief{
		CalorieTarget: plan.Nutrition.Energy.CalorieTarget,
		Macros:        plan.Nutrition.Macros,
		RecipeTags:    append([]string(nil), plan.Nutrition.RecipeTags...),
		ProgramType:   plan.Fitness.ProgramType,
		Volume:        plan.Fitness.Volume,
	}
	for _, m := range plan.Nutrition.MealTemplates {
		b.Meals = append(b.Meals, MealBrief{
			Slot:     m.Slot,
			Calories: m.Calories,
			ProteinG: m.ProteinG,
			CarbsG:   m.CarbsG,
			FatG:     m.FatG,
			Tags:     append([]string(nil), m.SuggestionTags...),
		})
	}
	for _, d := range plan.Fitness.WeeklySchedule {
		b.Focus = append(b.Focus, d.Focus)
	}
	return b
}
