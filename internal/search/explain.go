package search

import (
	"errors"
	"math"
	"slices"
	"time"

	"github.com/metalagman/costplan/internal/kb"
)

var (
	// ErrMultiActionTarget is returned by UnexpectedActions for targets
	// requiring more than one action.
	ErrMultiActionTarget = errors.New("only single action targets can be explained")
	// ErrNoPlan is returned by UnexpectedActions when no target was reached.
	ErrNoPlan = errors.New("no target reached")
)

// Analysis describes a node found by an explanation query.
type Analysis struct {
	Path   PathID
	F      float64
	Closed bool
}

// Model returns the model the search ran on.
func (a *AStar) Model() *Model { return a.model }

// Heuristic returns the heuristic used by the search.
func (a *AStar) Heuristic() Heuristic { return a.heuristic }

// Steps returns the number of closed nodes.
func (a *AStar) Steps() int { return a.steps }

// Aborted reports whether the abort strategy or the context stopped the
// search.
func (a *AStar) Aborted() bool { return a.aborted }

// OpenCount returns the size of the frontier.
func (a *AStar) OpenCount() int { return a.open.Len() }

// ClosedCount returns the number of expanded nodes.
func (a *AStar) ClosedCount() int { return len(a.closed) }

// Generated returns the number of installed successors.
func (a *AStar) Generated() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generated
}

// InitTime returns the time spent before the search loop.
func (a *AStar) InitTime() time.Duration { return a.initTime }

// ConsistencyWarnings returns all warnings raised during the search.
func (a *AStar) ConsistencyWarnings() []ConsistencyWarning {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.warnings)
}

// StartNode returns the node of the empty path.
func (a *AStar) StartNode() *Node { return a.start }

// Unreachable returns the targets dropped before the search loop.
func (a *AStar) Unreachable() []*Target { return a.model.Tracker.Unreachable() }

// WasTarget reports whether the action is required by an active target.
func (a *AStar) WasTarget(id string) bool {
	for _, t := range a.model.Tracker.Active() {
		for _, act := range t.Actions {
			if act.ID == id {
				return true
			}
		}
	}
	return false
}

// nodes returns the closed nodes followed by the open ones.
func (a *AStar) nodes() []*Node {
	return slices.Concat(a.closed, []*Node(a.open))
}

// LongestSubPathReached returns the longest path of a node that is a prefix
// of the given action sequence.
func (a *AStar) LongestSubPathReached(ids ...string) PathID {
	l := a.model.Ledger
	best, bestLen := EmptyPath, 0
	for _, n := range a.nodes() {
		path := l.IDs(n.path)
		if len(path) <= bestLen || len(path) > len(ids) {
			continue
		}
		if slices.Equal(path, ids[:len(path)]) {
			best, bestLen = n.path, len(path)
		}
	}
	return best
}

// BestPathContaining returns the node whose path contains most of the given
// actions. Ties go to the lower f-value.
func (a *AStar) BestPathContaining(ids ...string) Analysis {
	l := a.model.Ledger
	var best *Node
	reached := -1
	for _, n := range a.nodes() {
		path := l.IDs(n.path)
		count := 0
		for _, id := range ids {
			if slices.Contains(path, id) {
				count++
			}
		}
		if count > reached || (count == reached && n.f < best.f) {
			best, reached = n, count
		}
	}
	if best == nil {
		return Analysis{Path: EmptyPath, Closed: true}
	}
	return Analysis{Path: best.path, F: best.f, Closed: best.closed}
}

// PredictedCostAtStart returns the f-value of the start node, NaN if the
// search never ran.
func (a *AStar) PredictedCostAtStart() float64 {
	if a.start == nil {
		return math.NaN()
	}
	return a.start.f
}

// MinimalPathCosts returns the lowest estimated costs of a path from any
// closed node to a state where act is applicable. NaN if no node was closed.
func (a *AStar) MinimalPathCosts(act *kb.Action) (float64, error) {
	if len(a.closed) == 0 {
		return math.NaN(), nil
	}
	minimum := math.Inf(1)
	for _, n := range a.closed {
		d := 0.0
		if act.Precondition != nil {
			var err error
			d, err = a.heuristic.Distance(a.model, n.path, n.State, act.Precondition)
			if err != nil {
				return 0, err
			}
		}
		minimum = math.Min(minimum, n.costs+d)
	}
	return minimum, nil
}

// BestPathAtEnd returns the head of the frontier.
func (a *AStar) BestPathAtEnd() (Analysis, bool) {
	n := a.open.peek()
	if n == nil {
		return Analysis{}, false
	}
	return Analysis{Path: n.path, F: n.f}, true
}

// Estimate returns the heuristic estimate for c from node, or from the start
// node if node is nil. NaN if node is nil and the search never ran.
func (a *AStar) Estimate(c kb.Condition, node *Node) (float64, error) {
	if node == nil {
		node = a.start
	}
	if node == nil {
		return math.NaN(), nil
	}
	return a.heuristic.Distance(a.model, node.path, node.State, c)
}

// TransitiveCondition returns the transitive precondition of act in the
// root state.
func (a *AStar) TransitiveCondition(act *kb.Action) (kb.Condition, error) {
	tp, err := a.transitive()
	if err != nil {
		return nil, err
	}
	return tp.Condition(a.model.Root, act.Precondition), nil
}

// UnexpectedActions returns the actions of the winning plan that cannot
// establish any unfulfilled part of the transitive precondition of the
// winning target. ErrNoPlan if no target was reached.
func (a *AStar) UnexpectedActions() ([]*kb.Action, error) {
	target := a.model.Tracker.Best()
	if target == nil {
		return nil, ErrNoPlan
	}
	if len(target.Actions) != 1 {
		return nil, ErrMultiActionTarget
	}
	act := target.Actions[0]
	if act.Precondition == nil {
		return nil, nil
	}
	condition, err := a.TransitiveCondition(act)
	if err != nil {
		return nil, err
	}

	helpful := make(map[*kb.Action]struct{})
	for _, actions := range a.variations(condition) {
		for _, h := range actions {
			helpful[h] = struct{}{}
		}
	}
	p, _ := target.MinPath()
	var out []*kb.Action
	for _, step := range a.model.Ledger.Actions(p) {
		if target.Requires(step) || slices.Contains(out, step) {
			continue
		}
		if _, ok := helpful[step]; !ok {
			out = append(out, step)
		}
	}
	return out, nil
}

// variations maps every primitive of c unfulfilled in the root state to the
// transitional actions with an effect able to fulfill it.
func (a *AStar) variations(c kb.Condition) map[string][]*kb.Action {
	out := make(map[string][]*kb.Action)
	for _, cond := range kb.Primitive(c) {
		if cond.Holds(a.model.Root) {
			continue
		}
		variable := cond.Variables()[0]
		var actions []*kb.Action
		for _, act := range a.model.Transitional() {
			if effectAdmits(act, variable, cond) {
				actions = append(actions, act)
			}
		}
		out[cond.String()] = actions
	}
	return out
}

func effectAdmits(act *kb.Action, variable string, c kb.Condition) bool {
	for _, e := range act.Effects {
		if e.Var != variable {
			continue
		}
		for _, s := range e.Setters {
			if kb.Admits(c, s.Value) {
				return true
			}
		}
	}
	return false
}

// UnfulfilledConditions returns the primitives of c that never hold while
// the actions of p are simulated from the root state.
func (a *AStar) UnfulfilledConditions(p PathID, c kb.Condition) []kb.Condition {
	remaining := kb.Primitive(c)
	s := a.model.Root.Clone()
	fulfilled := func() {
		remaining = slices.DeleteFunc(remaining, func(cond kb.Condition) bool {
			return cond.Holds(s)
		})
	}
	fulfilled()
	for _, act := range a.model.Ledger.Actions(p) {
		a.model.KB.Observe(act, s)
		act.Apply(s)
		fulfilled()
	}
	return remaining
}

// transitive returns an initialized transitive heuristic, reusing the one
// of the search if possible.
func (a *AStar) transitive() (*Transitive, error) {
	switch h := a.heuristic.(type) {
	case *Transitive:
		return h, nil
	case *Switching:
		if tp, ok := h.Active().(*Transitive); ok {
			return tp, nil
		}
	}
	tp := NewTransitive()
	if err := tp.Init(a.model); err != nil {
		return nil, err
	}
	return tp, nil
}
