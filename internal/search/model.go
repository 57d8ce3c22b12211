package search

import (
	"slices"
	"strings"

	"github.com/metalagman/costplan/internal/kb"
)

// Model is everything a heuristic may consult about the running search.
type Model struct {
	KB      *kb.KnowledgeBase
	Root    *kb.State
	Costs   kb.CostFunction
	Ledger  *Ledger
	Tracker *Tracker

	transitional []*kb.Action
	blocked      map[string]struct{}
}

// NewModel resolves goals against k and classifies the actions for root.
func NewModel(k *kb.KnowledgeBase, root *kb.State, costs kb.CostFunction, goals []Goal) (*Model, error) {
	tracker, err := newTracker(k, goals)
	if err != nil {
		return nil, err
	}
	if costs == nil {
		costs = kb.StaticCosts{}
	}
	m := &Model{
		KB:      k,
		Root:    root,
		Costs:   costs,
		Ledger:  NewLedger(),
		Tracker: tracker,
		blocked: make(map[string]struct{}),
	}

	finals := root.FinalValues()
	for _, a := range k.Actions() {
		if a.Excluded(root) || (a.Precondition != nil && kb.Refuted(a.Precondition, finals)) {
			m.blocked[a.ID] = struct{}{}
		}
	}
	for _, a := range k.Actions() {
		if !a.HasTransition() || a.TargetOnly || m.IsBlocked(a) {
			continue
		}
		m.transitional = append(m.transitional, a)
	}
	return m, nil
}

// Transitional returns the actions usable as intermediate steps.
func (m *Model) Transitional() []*kb.Action { return m.transitional }

// IsBlocked reports whether a can never be applied: it is excluded at the
// start or its precondition contradicts a final variable.
func (m *Model) IsBlocked(a *kb.Action) bool {
	_, ok := m.blocked[a.ID]
	return ok
}

// BlockedKey identifies the blocked set.
func (m *Model) BlockedKey() string {
	ids := make([]string, 0, len(m.blocked))
	for id := range m.blocked {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return strings.Join(ids, ",")
}

// AnsweredAbnormal returns the variables observed by transitional actions
// that already hold an abnormal value in the root state.
func (m *Model) AnsweredAbnormal() []string {
	seen := make(map[string]struct{})
	for _, a := range m.transitional {
		for _, id := range a.Observes {
			v, ok := m.KB.Variable(id)
			if !ok || !v.Abnormal(m.Root.Value(id)) {
				continue
			}
			seen[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
