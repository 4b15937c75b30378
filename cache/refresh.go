package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// refreshPriorityCutoff limits background refresh to the two highest task
// tiers; lower-priority entries wait for demand or the next full warm.
const refreshPriorityCutoff = 2

// RefreshResult reports how a refresh pass settled.
type RefreshResult struct {
	Refreshed int `json:"refreshed"`
	Fresh     int `json:"fresh"`
	Failed    int `json:"failed"`
}

// Refresh re-populates entries that have gone missing for enabled tasks of
// priority <= 2. Presence is treated as fresh enough; the trigger condition
// is "entry is gone", not remaining TTL. Each scheduler invocation is
// independent and carries no state beyond the registry; per-task failures
// are logged and never interrupt the batch.
func (s *Service) Refresh(ctx context.Context, reg *Registry) RefreshResult {
	var due []WarmingTask
	for _, t := range reg.Tasks() {
		if t.Enabled && t.Priority <= refreshPriorityCutoff {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return RefreshResult{}
	}

	var mu sync.Mutex
	var res RefreshResult
	var g errgroup.Group
	g.SetLimit(warmConcurrency)
	for _, t := range due {
		t := t
		g.Go(func() error {
			if _, ok := s.Get(ctx, t.Namespace, t.Key, t.Params); ok {
				mu.Lock()
				res.Fresh++
				mu.Unlock()
				return nil
			}
			value, err := t.Fetch(ctx)
			if err != nil {
				s.log.Warn().Err(err).Str("task", t.Name).Msg("refresh fetch failed")
				mu.Lock()
				res.Failed++
				mu.Unlock()
				return nil
			}
			s.Set(ctx, t.Namespace, t.Key, value, t.Options, t.Params)
			mu.Lock()
			res.Refreshed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info().
		Int("refreshed", res.Refreshed).
		Int("fresh", res.Fresh).
		Int("failed", res.Failed).
		Msg("refresh pass settled")
	return res
}
