package main

import (
	"context"
	"time"

	"lg/stride-api/engine"
)

// staticProfile answers every user with the same profile read from a file.
type staticProfile engine.RawProfile

func (p staticProfile) RawProfile(ctx context.Context, userID int) (engine.RawProfile, error) {
	return engine.RawProfile(p), nil
}

// fileLogs serves a log window loaded from a file. Entries outside the
// requested dates are dropped, matching the server's [from, to) window.
type fileLogs engine.LogWindow

func (f fileLogs) Window(ctx context.Context, userID int, from, to time.Time) (engine.LogWindow, error) {
	from, to = truncateDay(from), truncateDay(to)
	in := func(d time.Time) bool {
		d = truncateDay(d)
		return !d.Before(from) && d.Before(to)
	}

	var w engine.LogWindow
	for _, m := range f.Meals {
		if in(m.Date) {
			w.Meals = append(w.Meals, m)
		}
	}
	for _, e := range f.Workouts {
		if in(e.Date) {
			w.Workouts = append(w.Workouts, e)
		}
	}
	for _, e := range f.Sleep {
		if in(e.Date) {
			w.Sleep = append(w.Sleep, e)
		}
	}
	for _, e := range f.Mood {
		if in(e.Date) {
			w.Mood = append(w.Mood, e)
		}
	}
	for _, e := range f.Weights {
		if in(e.Date) {
			w.Weights = append(w.Weights, e)
		}
	}
	return w, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
