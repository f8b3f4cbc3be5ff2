package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"lg/stride-api/engine"
)

const profileYAML = `sex: female
age: 34
weight: 68
height: 165
activity_level: lightly active
goal: lose weight
experience: intermediate
equipment: [dumbbells]
`

// execute runs plangen with args against dir's database and returns stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--db", filepath.Join(dir, "plans.db")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// TestGenerateShowDue stores a plan, reads it back and reports the clock.
func TestGenerateShowDue(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", profileYAML)

	out, err := execute(t, dir, "--now", "2026-03-02", "generate", "--profile", profile)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var gen struct {
		Plan struct {
			Version int         `json:"version"`
			Plan    engine.Plan `json:"plan"`
		} `json:"plan"`
		Content struct {
			Source string `json:"source"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(out), &gen); err != nil {
		t.Fatalf("parse generate output: %v\n%s", err, out)
	}
	if gen.Plan.Version != 1 || gen.Content.Source != "fallback" {
		t.Errorf("unexpected generate output: %+v", gen)
	}

	out, err = execute(t, dir, "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, `"version": 1`) {
		t.Errorf("expected version 1 in show output:\n%s", out)
	}

	out, err = execute(t, dir, "--now", "2026-03-05", "due")
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	var due dueStatus
	json.Unmarshal([]byte(out), &due)
	if due.Due || due.NextRevisionAt == nil || *due.NextRevisionAt != "2026-03-09T00:00:00Z" {
		t.Errorf("unexpected due status %+v", due)
	}
}

// TestRevise_FromLogFile revises once a week has passed and skips repeats.
func TestRevise_FromLogFile(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", profileYAML)
	logs := writeFile(t, dir, "logs.json", `{
		"meals": [{"date": "2026-03-03T00:00:00Z", "calories": 1700, "protein_g": 110, "carbs_g": 170, "fat_g": 55}],
		"workouts": [{"date": "2026-03-04T00:00:00Z", "name": "Upper body", "duration_minutes": 45}],
		"sleep": [{"date": "2026-03-04T00:00:00Z", "hours": 7}]
	}`)

	if _, err := execute(t, dir, "--now", "2026-03-02", "generate", "-p", profile); err != nil {
		t.Fatalf("generate: %v", err)
	}
	out, err := execute(t, dir, "--now", "2026-03-09", "revise", "-p", profile, "-l", logs)
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	var res struct {
		Status string                 `json:"status"`
		Record engine.AdherenceRecord `json:"record"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("parse revise output: %v\n%s", err, out)
	}
	if res.Status != "revised" {
		t.Fatalf("expected revised, got %q", res.Status)
	}

	out, err = execute(t, dir, "--now", "2026-03-10", "revise", "-p", profile, "-l", logs)
	if err != nil {
		t.Fatalf("second revise: %v", err)
	}
	if !strings.Contains(out, `"not_due"`) {
		t.Errorf("expected not_due on the second call:\n%s", out)
	}

	out, err = execute(t, dir, "--format", "yaml", "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var records []map[string]any
	if err := yaml.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("parse yaml history: %v\n%s", err, out)
	}
	if len(records) != 1 {
		t.Errorf("expected one adherence record, got %d", len(records))
	}
}

func TestRevise_NoPlan(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", profileYAML)

	_, err := execute(t, dir, "revise", "-p", profile)
	if err == nil || !strings.Contains(err.Error(), "run generate first") {
		t.Errorf("expected a no-plan error, got %v", err)
	}
}

// TestSweep revises every stored user with the shared profile.
func TestSweep(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "profile.yaml", profileYAML)
	for _, user := range []string{"1", "2"} {
		if _, err := execute(t, dir, "--now", "2026-03-02", "--user", user, "generate", "-p", profile); err != nil {
			t.Fatalf("generate user %s: %v", user, err)
		}
	}

	out, err := execute(t, dir, "--now", "2026-03-09", "sweep", "-p", profile)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out, `"revised": 2`) {
		t.Errorf("expected two revisions:\n%s", out)
	}
}

func TestInvalidFlags(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, dir, "--now", "yesterday", "show"); err == nil {
		t.Error("expected an error for a bad --now")
	}
	if _, err := execute(t, dir, "--format", "xml", "history"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

// TestFileLogs_Window keeps entries in [from, to) by calendar date.
func TestFileLogs_Window(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC) }
	logs := fileLogs{
		Meals: []engine.MealLog{{Date: day(1)}, {Date: day(2)}, {Date: day(8)}, {Date: day(9)}},
		Mood:  []engine.MoodLog{{Date: day(5), Mood: 4}},
	}

	w, err := logs.Window(context.Background(), 1, day(2), day(9))
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Meals) != 2 || !w.Meals[0].Date.Equal(day(2)) || !w.Meals[1].Date.Equal(day(8)) {
		t.Errorf("unexpected meals in window: %+v", w.Meals)
	}
	if len(w.Mood) != 1 {
		t.Errorf("expected the mood entry, got %+v", w.Mood)
	}
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	var fromYAML, fromJSON engine.RawProfile

	if err := readInput(writeFile(t, dir, "p.yml", "sex: male\nage: 40\n"), &fromYAML); err != nil {
		t.Fatal(err)
	}
	if err := readInput(writeFile(t, dir, "p.json", `{"sex":"male","age":40}`), &fromJSON); err != nil {
		t.Fatal(err)
	}
	if fromYAML.Sex != "male" || fromYAML.Age == nil || *fromYAML.Age != 40 {
		t.Errorf("unexpected yaml profile %+v", fromYAML)
	}
	if fromJSON.Sex != fromYAML.Sex || *fromJSON.Age != *fromYAML.Age {
		t.Errorf("json and yaml disagree: %+v vs %+v", fromJSON, fromYAML)
	}
	if err := readInput(writeFile(t, dir, "bad.json", `{`), &fromJSON); err == nil {
		t.Error("expected a parse error")
	}
}

// TestGenerate_RejectsNonFiniteYAML refuses YAML's .inf and .nan numbers.
func TestGenerate_RejectsNonFiniteYAML(t *testing.T) {
	dir := t.TempDir()
	for name, weight := range map[string]string{"inf.yaml": ".inf", "nan.yaml": ".nan"} {
		profile := writeFile(t, dir, name, strings.Replace(profileYAML, "weight: 68", "weight: "+weight, 1))
		_, err := execute(t, dir, "--now", "2026-03-02", "generate", "-p", profile)
		if err == nil || !strings.Contains(err.Error(), "invalid weight") {
			t.Errorf("%s: expected a weight error, got %v", name, err)
		}
	}
}
