package search

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/metalagman/costplan/internal/kb"
)

// Goal asks for a plan containing all Actions.
type Goal struct {
	ID      string
	Actions []string
	Benefit float64
}

// Target is a resolved goal together with the cheapest path reaching it.
type Target struct {
	ID      string
	Actions []*kb.Action
	Benefit float64

	reached bool
	minPath PathID
	minCost float64
}

// Requires reports whether a is one of the required actions.
func (t *Target) Requires(a *kb.Action) bool {
	return slices.Contains(t.Actions, a)
}

// MinPath returns the cheapest path found so far.
func (t *Target) MinPath() (PathID, bool) {
	return t.minPath, t.reached
}

// Cost returns the costs of the cheapest path, +Inf if unreached.
func (t *Target) Cost() float64 {
	if !t.reached {
		return math.Inf(1)
	}
	return t.minCost
}

// CostBenefit returns Cost divided by Benefit.
func (t *Target) CostBenefit() float64 {
	return t.Cost() / t.Benefit
}

// Tracker holds the active targets and the best one found so far.
type Tracker struct {
	mu          sync.Mutex
	targets     []*Target
	unreachable []*Target
	best        *Target
}

func newTracker(k *kb.KnowledgeBase, goals []Goal) (*Tracker, error) {
	if len(goals) == 0 {
		return nil, ErrNoTargets
	}
	t := &Tracker{}
	seen := make(map[string]struct{}, len(goals))
	for _, g := range goals {
		if _, ok := seen[g.ID]; ok {
			return nil, fmt.Errorf("duplicate target %q", g.ID)
		}
		seen[g.ID] = struct{}{}
		if g.Benefit <= 0 {
			return nil, fmt.Errorf("target %q: benefit must be > 0", g.ID)
		}
		if len(g.Actions) == 0 {
			return nil, fmt.Errorf("target %q: no actions", g.ID)
		}
		target := &Target{ID: g.ID, Benefit: g.Benefit}
		for _, id := range g.Actions {
			a, ok := k.Action(id)
			if !ok {
				return nil, fmt.Errorf("target %q: unknown action %q", g.ID, id)
			}
			if !target.Requires(a) {
				target.Actions = append(target.Actions, a)
			}
		}
		t.targets = append(t.targets, target)
	}
	return t, nil
}

// Active returns the targets still pursued.
func (t *Tracker) Active() []*Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.targets)
}

// Unreachable returns the targets dropped by pruning.
func (t *Tracker) Unreachable() []*Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.unreachable)
}

func (t *Tracker) drop(target *Target) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := slices.Index(t.targets, target)
	if idx < 0 {
		return
	}
	t.targets = slices.Delete(t.targets, idx, idx+1)
	t.unreachable = append(t.unreachable, target)
	if t.best == target {
		t.best = nil
		for _, other := range t.targets {
			if other.reached && (t.best == nil || other.CostBenefit() < t.best.CostBenefit()) {
				t.best = other
			}
		}
	}
}

// Best returns the reached target with the lowest cost/benefit.
func (t *Tracker) Best() *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.best
}

// BestCostBenefit returns the cost/benefit of Best, +Inf if none.
func (t *Tracker) BestCostBenefit() float64 {
	if best := t.Best(); best != nil {
		return best.CostBenefit()
	}
	return math.Inf(1)
}

// BestBenefit returns the active target with the highest benefit.
func (t *Tracker) BestBenefit() *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out *Target
	for _, target := range t.targets {
		if out == nil || target.Benefit > out.Benefit {
			out = target
		}
	}
	return out
}

// Find returns the active or unreachable target with id.
func (t *Tracker) Find(id string) (*Target, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, target := range slices.Concat(t.targets, t.unreachable) {
		if target.ID == id {
			return target, true
		}
	}
	return nil, false
}

// Update records p for every target it reaches more cheaply. A path only
// reaches a target if its last action is required by the target and all
// other required actions are on it.
func (t *Tracker) Update(l *Ledger, p PathID) bool {
	last := l.Last(p)
	if last == nil {
		return false
	}
	costs := l.Costs(p)
	t.mu.Lock()
	defer t.mu.Unlock()
	updated := false
	for _, target := range t.targets {
		if !target.Requires(last) {
			continue
		}
		if target.reached && target.minCost <= costs {
			continue
		}
		if !l.ContainsAll(p, target.Actions) {
			continue
		}
		target.reached = true
		target.minPath = p
		target.minCost = costs
		updated = true
		if t.best == nil || target.CostBenefit() < t.best.CostBenefit() {
			t.best = target
		}
	}
	return updated
}
