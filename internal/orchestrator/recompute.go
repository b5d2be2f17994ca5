package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// defaultRecomputeConcurrency bounds the parallel profile recomputes when
// the caller does not specify a limit.
const defaultRecomputeConcurrency = 8

// RecomputeAll recomputes the calibration score of every stored profile and
// rewrites the ones whose score changed. Over a stable dataset this is a
// no-op, which makes it safe to run as a migration backfill or a periodic
// consistency sweep.
//
// Returns the number of profiles whose score changed. The first per-user
// failure cancels the sweep.
func (o *Orchestrator) RecomputeAll(ctx context.Context, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = defaultRecomputeConcurrency
	}

	ids, err := o.store.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("orchestrator: list users: %w", err)
	}

	var changed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, userID := range ids {
		g.Go(func() error {
			updated, err := o.recomputeUser(ctx, userID)
			if err != nil {
				return err
			}
			if updated {
				changed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(changed.Load()), err
	}

	o.log.Info("recompute-all finished", "users", len(ids), "changed", changed.Load())
	return int(changed.Load()), nil
}

// recomputeUser rescores one user's profile under their lock, saving only
// when the derived score or rounds counter actually moved.
func (o *Orchestrator) recomputeUser(ctx context.Context, userID string) (bool, error) {
	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	p, err := o.store.GetProfile(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("orchestrator: load profile %q: %w", userID, err)
	}
	if p == nil {
		return false, nil
	}

	beforeScore, beforeRounds := p.CalibrationScore, p.CalibrationRoundsCompleted
	if err := o.rescore(ctx, p); err != nil {
		return false, err
	}
	if p.CalibrationScore == beforeScore && p.CalibrationRoundsCompleted == beforeRounds {
		return false, nil
	}
	if err := o.store.SaveProfile(ctx, p); err != nil {
		return false, fmt.Errorf("orchestrator: save profile %q: %w", userID, err)
	}
	return true, nil
}
