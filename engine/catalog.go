package engine

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Program template names, as they appear in catalog.yaml.
const (
	ProgramFullBody   = "3-Day Full Body"
	ProgramUpperLower = "4-Day Upper/Lower"
	ProgramPPL        = "5-Day Push/Pull/Legs"
	ProgramWeightLoss = "Weight Loss + Cardio"
	ProgramHome       = "Home Bodyweight"
	ProgramStrength   = "Strength/Power"
)

// DefaultVolume applies to every program that does not set its own.
var DefaultVolume = Volume{Sets: 3, Reps: 10, RestSeconds: 60}

//go:embed catalog.yaml
var catalogYAML []byte

type programTemplate struct {
	Name   string       `yaml:"name"`
	Volume *Volume      `yaml:"volume"`
	Days   []WorkoutDay `yaml:"days"`
}

// catalog is parsed once at init; a malformed embedded file is a build defect.
var catalog = mustLoadCatalog(catalogYAML)

func mustLoadCatalog(raw []byte) map[string]programTemplate {
	c, err := loadCatalog(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func loadCatalog(raw []byte) (map[string]programTemplate, error) {
	var doc struct {
		Programs []programTemplate `yaml:"programs"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse program catalog: %w", err)
	}
	out := make(map[string]programTemplate, len(doc.Programs))
	for _, p := range doc.Programs {
		if p.Name == "" || len(p.Days) == 0 {
			return nil, fmt.Errorf("program catalog: template %q has no name or days", p.Name)
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("program catalog: duplicate template %q", p.Name)
		}
		out[p.Name] = p
	}
	return out, nil
}

// programTemplateFor returns a deep copy of the named template's schedule and
// its volume (DefaultVolume when the template sets none).
func programTemplateFor(name string) ([]WorkoutDay, Volume, bool) {
	t, ok := catalog[name]
	if !ok {
		return nil, Volume{}, false
	}
	days := make([]WorkoutDay, len(t.Days))
	for i, d := range t.Days {
		d.ExerciseNames = append([]string(nil), d.ExerciseNames...)
		days[i] = d
	}
	vol := DefaultVolume
	if t.Volume != nil {
		vol = *t.Volume
	}
	return days, vol, true
}

// ProgramNames lists the catalogue's template names.
func ProgramNames() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	return names
}
