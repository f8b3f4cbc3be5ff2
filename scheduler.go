package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"

	"lg/stride-api/internal/logger"
	"lg/stride-api/internal/planservice"
)

const sweepTimeout = 30 * time.Minute

// revisionScheduler runs the weekly-revision sweep on a cron schedule. Every
// user with a stored plan is checked; MaybeRevise skips those not yet due, so
// a daily schedule revises each user once every seven days.
type revisionScheduler struct {
	svc     *planservice.Service
	log     *logger.Logger
	running atomic.Bool
}

// startRevisionScheduler parses spec (six fields, seconds first) and starts
// the cron runner. Stop it with Stop on the returned *cron.Cron.
func startRevisionScheduler(spec string, svc *planservice.Service, log *logger.Logger) (*cron.Cron, error) {
	if _, err := cron.Parse(spec); err != nil {
		return nil, fmt.Errorf("parse REVISION_CRON %q: %w", spec, err)
	}
	s := &revisionScheduler{svc: svc, log: log}
	c := cron.NewWithLocation(time.UTC)
	if err := c.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	c.Start()
	log.Info("revision scheduler started", "component", "scheduler", "spec", spec)
	return c, nil
}

// run is one scheduled sweep. Overlapping ticks are dropped.
func (s *revisionScheduler) run() {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous revision sweep still running, skipping", "component", "scheduler")
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := sweepAll(ctx, s.svc); err != nil {
		s.log.Error("revision sweep failed", "component", "scheduler", "error", err)
	}
}

// sweepAll revises every user who has a stored plan.
func sweepAll(ctx context.Context, svc *planservice.Service) (planservice.SweepStats, error) {
	ids, err := svc.Plans.UserIDs(ctx)
	if err != nil {
		return planservice.SweepStats{}, fmt.Errorf("list users: %w", err)
	}
	return svc.Sweep(ctx, ids)
}
