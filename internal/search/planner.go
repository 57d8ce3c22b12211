package search

import (
	"context"
	"fmt"
	"time"

	"github.com/metalagman/costplan/internal/kb"
	"github.com/rs/zerolog/log"
)

// Options configure a Planner.
type Options struct {
	Heuristic Kind
	// SwitchThreshold is the highest target count using the transitive
	// estimator when Heuristic is KindSwitching.
	SwitchThreshold int
	// PruneThreshold is the highest target count checked for unreachable
	// targets before the search loop.
	PruneThreshold int
	// Workers expand the successors of one node in parallel if > 1.
	Workers int
	Abort   Abort
	Costs   kb.CostFunction
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Heuristic:       KindSwitching,
		SwitchThreshold: 20,
		PruneThreshold:  50,
		Workers:         1,
	}
}

// Result summarizes a finished search.
type Result struct {
	Target      *Target
	Plan        []*kb.Action
	Cost        float64
	CostBenefit float64
	Aborted     bool
	Steps       int
	Open        int
	Closed      int
	Duration    time.Duration
	Unreachable []*Target
	Warnings    []ConsistencyWarning
}

// Found reports whether a target was reached.
func (r Result) Found() bool { return r.Target != nil }

// PlanIDs returns the ids of the plan actions.
func (r Result) PlanIDs() []string {
	out := make([]string, len(r.Plan))
	for i, a := range r.Plan {
		out[i] = a.ID
	}
	return out
}

// Outcome classifies the result. A reached target counts as found even if
// the search was aborted.
func (r Result) Outcome() string {
	switch {
	case r.Found():
		return OutcomeFound
	case r.Aborted:
		return OutcomeAborted
	default:
		return OutcomeNoSolution
	}
}

// Planner runs searches on one knowledge base. The heuristic instances are
// kept between searches so their precomputed tables can be reused. A
// Planner must not run searches concurrently.
type Planner struct {
	kb        *kb.KnowledgeBase
	opts      Options
	heuristic Heuristic
}

// NewPlanner returns a planner for k.
func NewPlanner(k *kb.KnowledgeBase, opts Options) (*Planner, error) {
	kind, err := ParseKind(string(opts.Heuristic))
	if err != nil {
		return nil, err
	}
	opts.Heuristic = kind
	p := &Planner{kb: k, opts: opts}
	switch kind {
	case KindTransitive:
		p.heuristic = NewTransitive()
	case KindDivided:
		p.heuristic = NewDivided()
	default:
		p.heuristic = NewSwitching(opts.SwitchThreshold)
	}
	return p, nil
}

// UseHeuristic replaces the heuristic for the following searches.
func (p *Planner) UseHeuristic(h Heuristic) { p.heuristic = h }

// Heuristic returns the heuristic of the next search.
func (p *Planner) Heuristic() Heuristic { return p.heuristic }

// Search looks for the target with the lowest cost/benefit reachable from
// root. The returned AStar answers explanation queries about the search.
func (p *Planner) Search(ctx context.Context, root *kb.State, goals []Goal) (*AStar, Result, error) {
	started := time.Now()
	m, err := NewModel(p.kb, root, p.opts.Costs, goals)
	if err != nil {
		return nil, Result{}, fmt.Errorf("build model: %w", err)
	}
	a := newAStar(m, p.heuristic, p.opts)

	log.Info().
		Int("targets", len(m.Tracker.Active())).
		Str("heuristic", heuristicName(p.heuristic)).
		Int("workers", a.workers).
		Msg("search started")

	if err := a.search(ctx); err != nil {
		searchesTotal.WithLabelValues(OutcomeError).Inc()
		return a, Result{}, fmt.Errorf("search: %w", err)
	}

	r := Result{
		Aborted:     a.aborted,
		Steps:       a.steps,
		Open:        a.OpenCount(),
		Closed:      a.ClosedCount(),
		Duration:    time.Since(started),
		Unreachable: m.Tracker.Unreachable(),
		Warnings:    a.ConsistencyWarnings(),
	}
	if best := m.Tracker.Best(); best != nil {
		path, _ := best.MinPath()
		r.Target = best
		r.Plan = m.Ledger.Actions(path)
		r.Cost = best.Cost()
		r.CostBenefit = best.CostBenefit()
	}
	observe(r, a.Generated())

	log.Info().
		Str("outcome", r.Outcome()).
		Int("steps", r.Steps).
		Int("open", r.Open).
		Int("closed", r.Closed).
		Dur("duration", r.Duration).
		Dur("init", a.initTime).
		Bool("aborted", r.Aborted).
		Msg("search finished")
	return a, r, nil
}
