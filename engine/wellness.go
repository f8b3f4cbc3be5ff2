package engine

import "math"

const shortSleepHours = 7

// WellnessInputs are the signals the wellness composer reads. Generation
// takes them from the profile; revisions replace them with logged sleep and
// mood.
type WellnessInputs struct {
	StressLevel      StressLevel `json:"stress_level"`
	SleepHours       float64     `json:"sleep_hours"`
	AvailableMinutes int         `json:"available_minutes,omitempty"`
	WeightKg         float64     `json:"weight_kg"`
}

// Practice is a recurring daily mindfulness practice.
type Practice struct {
	Name        string `json:"name"`
	DurationMin int    `json:"duration_min"`
	TimeOfDay   string `json:"time_of_day"`
}

// Breathwork is the prescribed breathing exercise.
type Breathwork struct {
	Technique   string `json:"technique"`
	Frequency   string `json:"frequency"`
	DurationMin int    `json:"duration_min"`
}

// HydrationReminder is one scheduled drink reminder.
type HydrationReminder struct {
	Time     string `json:"time"`
	AmountOz int    `json:"amount_oz"`
	Message  string `json:"message"`
}

// BedtimeRoutine is the evening wind-down prescription.
type BedtimeRoutine struct {
	Steps       []string `json:"steps"`
	Soundscape  string   `json:"soundscape"`
	DurationMin int      `json:"duration_min"`
}

// WellnessPlan is the wellness branch of an assembled plan.
type WellnessPlan struct {
	DailyPractices     []Practice          `json:"daily_practices"`
	Breathwork         Breathwork          `json:"breathwork"`
	JournalingPrompts  []string            `json:"journaling_prompts"`
	HydrationReminders []HydrationReminder `json:"hydration_reminders"`
	HabitSuggestions   []string            `json:"habit_suggestions"`
	BedtimeRoutine     BedtimeRoutine      `json:"bedtime_routine"`
	SoundscapeTags     []string            `json:"soundscape_tags"`
	MeditationTags     []string            `json:"meditation_tags"`
}

var (
	stressedPractices = []Practice{
		{Name: "Morning Meditation", DurationMin: 5, TimeOfDay: "morning"},
		{Name: "Evening Wind-Down", DurationMin: 10, TimeOfDay: "evening"},
	}
	calmPractices = []Practice{
		{Name: "Quick Mindfulness", DurationMin: 3, TimeOfDay: "afternoon"},
	}

	stressPrompts = []string{
		"What is weighing on you most today, and what part of it is within your control?",
		"Describe one moment today when you felt calm. What made it possible?",
		"What is one thing you can let go of before tomorrow?",
	}
	gratitudePrompts = []string{
		"List three things you are grateful for today.",
		"Who made your day better, and how?",
		"What small win from today are you proud of?",
	}

	hydrationSlots = []struct {
		time    string
		perCent int
		message string
	}{
		{"09:00", 20, "Start the day with a glass of water."},
		{"12:00", 30, "Midday refill: drink before lunch."},
		{"15:00", 30, "Afternoon slump? Hydrate first."},
		{"18:00", 20, "Last big glass before the evening."},
	}

	shortSleepRoutine = BedtimeRoutine{
		Steps: []string{
			"Put screens away 60 minutes before bed",
			"Dim the lights and lower the room temperature",
			"Take a warm shower or do light stretching",
			"Read or listen to a calming soundscape in bed",
		},
		Soundscape:  "brown-noise-rain",
		DurationMin: 30,
	}
	lightRoutine = BedtimeRoutine{
		Steps: []string{
			"Put screens away 30 minutes before bed",
			"Dim the lights",
			"Spend five minutes reading or journaling",
		},
		Soundscape:  "gentle-ambient",
		DurationMin: 20,
	}

	stressedSoundscapes = []string{"brown-noise", "rain", "ocean-waves"}
	calmSoundscapes     = []string{"forest", "gentle-ambient", "birdsong"}
	stressedMeditations = []string{"stress-relief", "body-scan", "anxiety"}
	calmMeditations     = []string{"focus", "gratitude", "mindful-breathing"}
)

// IsStressed reports whether a stress tier triggers the stress-focused plan.
func IsStressed(s StressLevel) bool {
	return s == StressHigh || s == StressVeryHigh
}

// WellnessInputsFor derives the composer's inputs from a profile.
func WellnessInputsFor(p Profile) WellnessInputs {
	return WellnessInputs{StressLevel: p.StressLevel, SleepHours: p.SleepHours, WeightKg: p.WeightKg}
}

// ComposeWellness builds the wellness plan for in.
func ComposeWellness(in WellnessInputs) WellnessPlan {
	stressed := IsStressed(in.StressLevel)
	shortSleep := in.SleepHours < shortSleepHours

	plan := WellnessPlan{
		DailyPractices:     fitPractices(stressed, in.AvailableMinutes),
		HydrationReminders: hydrationReminders(in.WeightKg),
	}

	if stressed {
		plan.Breathwork = Breathwork{Technique: "box-breathing", Frequency: "twice daily", DurationMin: 10}
		plan.JournalingPrompts = append([]string(nil), stressPrompts...)
		plan.SoundscapeTags = append([]string(nil), stressedSoundscapes...)
		plan.MeditationTags = append([]string(nil), stressedMeditations...)
	} else {
		plan.Breathwork = Breathwork{Technique: "deep-breathing", Frequency: "daily", DurationMin: 5}
		plan.JournalingPrompts = append([]string(nil), gratitudePrompts...)
		plan.SoundscapeTags = append([]string(nil), calmSoundscapes...)
		plan.MeditationTags = append([]string(nil), calmMeditations...)
	}

	if shortSleep {
		plan.HabitSuggestions = append(plan.HabitSuggestions, "Consistent Sleep Schedule")
		plan.BedtimeRoutine = copyRoutine(shortSleepRoutine)
	} else {
		plan.BedtimeRoutine = copyRoutine(lightRoutine)
	}
	if stressed {
		plan.HabitSuggestions = append(plan.HabitSuggestions, "Daily Meditation")
	}
	plan.HabitSuggestions = append(plan.HabitSuggestions, "Morning Stretch")
	return plan
}

// fitPractices drops trailing practices that do not fit the available
// minutes. The first practice is always kept.
func fitPractices(stressed bool, availableMinutes int) []Practice {
	src := calmPractices
	if stressed {
		src = stressedPractices
	}
	out := []Practice{src[0]}
	used := src[0].DurationMin
	for _, p := range src[1:] {
		if availableMinutes > 0 && used+p.DurationMin > availableMinutes {
			break
		}
		used += p.DurationMin
		out = append(out, p)
	}
	return out
}

// hydrationReminders splits the wellness water goal across the four
// reminder slots; the last slot absorbs rounding.
func hydrationReminders(weightKg float64) []HydrationReminder {
	total := int(math.Round(weightKg * 0.67 * 33.814 * 1.1))
	out := make([]HydrationReminder, len(hydrationSlots))
	assigned := 0
	for i, s := range hydrationSlots {
		amount := int(math.Round(float64(total) * float64(s.perCent) / 100))
		if i == len(hydrationSlots)-1 {
			amount = total - assigned
		}
		assigned += amount
		out[i] = HydrationReminder{Time: s.time, AmountOz: amount, Message: s.message}
	}
	return out
}

func copyRoutine(r BedtimeRoutine) BedtimeRoutine {
	r.Steps = append([]string(nil), r.Steps...)
	return r
}
