package resource

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"campusfinder/internal/domain"
	"campusfinder/internal/repository"
)

// Drift is a resource whose stored counters disagree with its rows.
type Drift struct {
	Stored domain.ResourceStats `json:"stored"`
	Actual domain.ResourceStats `json:"actual"`
}

// Recount checks every resource's derived columns against the review and
// favorite rows and, unless dryRun, rewrites the ones that drifted. Each
// resource is checked under its row lock.
func Recount(ctx context.Context, store *repository.Store, dryRun bool, workers int) ([]Drift, error) {
	ids, err := store.Resources.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resource ids: %w", err)
	}
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		drifts []Drift
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		g.Go(func() error {
			return store.InTx(gctx, func(tx *repository.Store) error {
				if _, err := tx.Resources.GetForUpdate(gctx, id); err != nil {
					return fmt.Errorf("lock resource %d: %w", id, err)
				}
				stored, err := tx.Resources.StoredStats(gctx, id)
				if err != nil {
					return err
				}
				actual, err := tx.Resources.AggregateStats(gctx, id)
				if err != nil {
					return err
				}
				if sameStats(stored, actual) {
					return nil
				}

				mu.Lock()
				drifts = append(drifts, Drift{Stored: stored, Actual: actual})
				mu.Unlock()

				if dryRun {
					return nil
				}
				_, err = tx.Resources.Recompute(gctx, id)
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return drifts, err
	}

	sort.Slice(drifts, func(i, j int) bool { return drifts[i].Stored.ResourceID < drifts[j].Stored.ResourceID })
	return drifts, nil
}

func sameStats(a, b domain.ResourceStats) bool {
	return a.ReviewCount == b.ReviewCount &&
		a.FavoriteCount == b.FavoriteCount &&
		math.Abs(a.AverageRating-b.AverageRating) < 1e-9
}
