package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// warmConcurrency bounds how many fetch functions a warming pass runs at
// once.
const warmConcurrency = 8

// WarmingTask describes one entry to populate proactively. Priority 1 is the
// highest tier; WarmCritical runs only tier 1, the background refresher
// covers tiers 1 and 2.
type WarmingTask struct {
	Name      string
	Namespace string
	Key       string
	Fetch     FetchFunc
	Options   Options
	Params    map[string]any
	Priority  int
	Enabled   bool
}

// Registry is the mutable set of warming tasks. Administrative calls mutate
// it while scheduled passes read it, so every read hands out a copy taken
// under the lock; an in-flight pass always sees a consistent snapshot, never
// a list mutating underneath it.
type Registry struct {
	mu    sync.Mutex
	tasks []WarmingTask
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a task. Names are unique; adding a duplicate is an error.
func (r *Registry) Add(t WarmingTask) error {
	if t.Name == "" {
		return fmt.Errorf("warming task has no name")
	}
	if t.Fetch == nil {
		return fmt.Errorf("warming task %q has no fetch function", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tasks {
		if existing.Name == t.Name {
			return fmt.Errorf("warming task %q already registered", t.Name)
		}
	}
	r.tasks = append(r.tasks, t)
	return nil
}

// Remove deletes a task by name, reporting whether it existed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tasks {
		if t.Name == name {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Toggle enables or disables a task by name, reporting whether it existed.
func (r *Registry) Toggle(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].Name == name {
			r.tasks[i].Enabled = enabled
			return true
		}
	}
	return false
}

// Tasks returns a defensive copy of the registry contents.
func (r *Registry) Tasks() []WarmingTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]WarmingTask, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// WarmResult reports how a warming pass settled. Per-task failures are
// already absorbed and logged, so callers see counts, not errors.
type WarmResult struct {
	Warmed int `json:"warmed"`
	Failed int `json:"failed"`
}

// Warm executes a batch of warming tasks: every fetch function runs
// concurrently, successes are written with the task's options, failures are
// logged and counted. One task failing never aborts or blocks its siblings;
// the pass always settles all tasks.
func (s *Service) Warm(ctx context.Context, tasks []WarmingTask) WarmResult {
	if len(tasks) == 0 {
		return WarmResult{}
	}

	log := s.log.With().Str("warm_run", uuid.NewString()).Logger()

	var mu sync.Mutex
	var res WarmResult
	var g errgroup.Group
	g.SetLimit(warmConcurrency)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			value, err := t.Fetch(ctx)
			if err != nil {
				log.Warn().Err(err).Str("task", t.Name).Msg("warming task failed")
				mu.Lock()
				res.Failed++
				mu.Unlock()
				return nil
			}
			s.Set(ctx, t.Namespace, t.Key, value, t.Options, t.Params)
			mu.Lock()
			res.Warmed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Info().Int("warmed", res.Warmed).Int("failed", res.Failed).Msg("warming pass settled")
	return res
}

// WarmCritical warms the enabled priority-1 tasks. Run once at startup so
// the hottest entries are populated before traffic arrives.
func (s *Service) WarmCritical(ctx context.Context, reg *Registry) WarmResult {
	var critical []WarmingTask
	for _, t := range reg.Tasks() {
		if t.Enabled && t.Priority == 1 {
			critical = append(critical, t)
		}
	}
	return s.Warm(ctx, critical)
}

// WarmAll warms every enabled task, ordered by ascending priority. Execution
// is concurrent, so the ordering affects iteration and reporting, not
// completion.
func (s *Service) WarmAll(ctx context.Context, reg *Registry) WarmResult {
	var enabled []WarmingTask
	for _, t := range reg.Tasks() {
		if t.Enabled {
			enabled = append(enabled, t)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})
	return s.Warm(ctx, enabled)
}
