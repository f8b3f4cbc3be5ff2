package planservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"lg/stride-api/engine"
	"lg/stride-api/internal/contentgen"
)

const defaultContentTimeout = 15 * time.Second

// ContentGenerator produces free-text content from a plan's content brief.
// *contentgen.Client satisfies it.
type ContentGenerator interface {
	MealIdeas(ctx context.Context, brief engine.ContentBrief) ([]contentgen.MealIdea, error)
	WorkoutNotes(ctx context.Context, brief engine.ContentBrief) ([]contentgen.WorkoutNote, error)
}

// Content sources.
const (
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
)

// PlanContent is the meal and workout text shown next to a plan.
type PlanContent struct {
	Source   string                   `json:"source"`
	Meals    []contentgen.MealIdea    `json:"meals"`
	Workouts []contentgen.WorkoutNote `json:"workouts"`
}

// enrich asks the generator for meal ideas and workout notes in parallel.
// On any failure, or with no generator, it returns content built from the
// plan's own tags; the error is wrapped in ErrUpstream.
func (s *Service) enrich(ctx context.Context, plan engine.Plan) (*PlanContent, error) {
	brief := engine.ContentRequest(plan)
	if s.Content == nil {
		return FallbackContent(brief), nil
	}

	timeout := s.ContentTimeout
	if timeout <= 0 {
		timeout = defaultContentTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		meals    []contentgen.MealIdea
		workouts []contentgen.WorkoutNote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meals, err = s.Content.MealIdeas(gctx, brief)
		return err
	})
	g.Go(func() error {
		var err error
		workouts, err = s.Content.WorkoutNotes(gctx, brief)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log().Warn("content generation failed, using fallback", "component", "planservice", "error", err)
		return FallbackContent(brief), fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &PlanContent{Source: SourceGenerated, Meals: meals, Workouts: workouts}, nil
}

// FallbackContent builds static content from a brief: one idea per meal slot
// named by its suggestion tags, and one note per training day restating the
// volume prescription.
func FallbackContent(brief engine.ContentBrief) *PlanContent {
	c := &PlanContent{Source: SourceFallback}
	for _, m := range brief.Meals {
		title := strings.Join(m.Tags, ", ")
		if title == "" {
			title = string(m.Slot)
		}
		c.Meals = append(c.Meals, contentgen.MealIdea{
			Slot:        string(m.Slot),
			Title:       title,
			Description: fmt.Sprintf("About %d kcal: %dg protein, %dg carbs, %dg fat.", m.Calories, m.ProteinG, m.CarbsG, m.FatG),
			Calories:    m.Calories,
			ProteinG:    m.ProteinG,
			CarbsG:      m.CarbsG,
			FatG:        m.FatG,
		})
	}
	v := brief.Volume
	for _, focus := range brief.Focus {
		c.Workouts = append(c.Workouts, contentgen.WorkoutNote{
			Focus:  focus,
			Warmup: "5 minutes of easy cardio, then dynamic mobility for the muscles you train today.",
			Notes:  fmt.Sprintf("%d sets of %d reps, %d seconds rest between sets.", v.Sets, v.Reps, v.RestSeconds),
		})
	}
	return c
}
