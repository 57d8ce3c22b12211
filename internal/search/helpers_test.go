package search

import (
	"context"
	"testing"

	"github.com/metalagman/costplan/internal/kb"
	"github.com/stretchr/testify/require"
)

func binary(ids ...string) []*kb.Variable {
	out := make([]*kb.Variable, 0, len(ids))
	for _, id := range ids {
		out = append(out, &kb.Variable{ID: id, Choices: []kb.Value{"0", "1"}, Initial: "0"})
	}
	return out
}

func set(variable string, value kb.Value) kb.Effect {
	return kb.Effect{Var: variable, Setters: []kb.Setter{{Value: value}}}
}

func action(id string, cost float64, pre kb.Condition, effects ...kb.Effect) *kb.Action {
	return &kb.Action{ID: id, Cost: cost, Precondition: pre, Effects: effects}
}

func newKB(t *testing.T, vars []*kb.Variable, actions ...*kb.Action) *kb.KnowledgeBase {
	t.Helper()
	k, err := kb.New(vars, actions)
	require.NoError(t, err)
	return k
}

func newModel(t *testing.T, k *kb.KnowledgeBase, goals ...Goal) *Model {
	t.Helper()
	m, err := NewModel(k, k.InitialState(), nil, goals)
	require.NoError(t, err)
	return m
}

func goal(id string, benefit float64, actions ...string) Goal {
	return Goal{ID: id, Actions: actions, Benefit: benefit}
}

func run(t *testing.T, k *kb.KnowledgeBase, opts Options, goals ...Goal) (*AStar, Result) {
	t.Helper()
	p, err := NewPlanner(k, opts)
	require.NoError(t, err)
	a, r, err := p.Search(context.Background(), k.InitialState(), goals)
	require.NoError(t, err)
	return a, r
}

// chainKB reaches y=1 either through a (x=1) and b, or directly with the
// expensive c. The target action t needs y=1.
func chainKB(t *testing.T) *kb.KnowledgeBase {
	return newKB(t, binary("x", "y"),
		action("A", 1, nil, set("x", "1")),
		action("B", 1, kb.Eq("x", "1"), set("y", "1")),
		action("C", 5, nil, set("y", "1")),
		action("T", 0, kb.Eq("y", "1")),
	)
}

// fixed is a heuristic returning a constant, or byLast for paths ending in
// the given action.
type fixed struct {
	byLast map[string]float64
	fail   func(m *Model, p PathID) error
}

func (f fixed) Init(*Model) error { return nil }

func (f fixed) Distance(m *Model, p PathID, _ *kb.State, _ kb.Condition) (float64, error) {
	if f.fail != nil {
		if err := f.fail(m, p); err != nil {
			return 0, err
		}
	}
	if last := m.Ledger.Last(p); last != nil {
		return f.byLast[last.ID], nil
	}
	return 0, nil
}
