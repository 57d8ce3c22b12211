package search

import (
	"context"
	"math"
	"testing"

	"github.com/metalagman/costplan/internal/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initDivided(t *testing.T, m *Model) *Divided {
	t.Helper()
	d := NewDivided()
	require.NoError(t, d.Init(m))
	return d
}

func TestDividedSplitsCostsAmongFulfilledVariables(t *testing.T) {
	t.Parallel()

	k := newKB(t, binary("x", "y"),
		action("Z", 4, nil, set("x", "1"), set("y", "1")),
		action("X", 3, nil, set("x", "1")),
		action("T", 0, kb.All(kb.Eq("x", "1"), kb.Eq("y", "1"))),
	)
	m := newModel(t, k, goal("t", 1, "T"))
	d := initDivided(t, m)
	c := kb.All(kb.Eq("x", "1"), kb.Eq("y", "1"))

	got, err := d.Distance(m, EmptyPath, m.Root, c)
	require.NoError(t, err)
	assert.InDelta(t, 4, got, 1e-9)

	s := m.Root.Clone()
	s.Set("x", "1")
	got, err = d.Distance(m, EmptyPath, s, c)
	require.NoError(t, err)
	assert.InDelta(t, 2, got, 1e-9)
}

func TestDividedNegatedEquality(t *testing.T) {
	t.Parallel()

	vars := []*kb.Variable{{ID: "w", Choices: []kb.Value{"0", "1", "2"}, Initial: "0"}}
	k := newKB(t, vars,
		action("W1", 3, nil, set("w", "1")),
		action("W2", 1, nil, set("w", "2")),
		action("T", 0, kb.Neq("w", "0")),
	)
	m := newModel(t, k, goal("t", 1, "T"))
	d := initDivided(t, m)

	got, err := d.Distance(m, EmptyPath, m.Root, kb.Neq("w", "0"))
	require.NoError(t, err)
	assert.InDelta(t, 1, got, 1e-9)

	s := m.Root.Clone()
	s.Set("w", "2")
	got, err = d.Distance(m, EmptyPath, s, kb.Neq("w", "0"))
	require.NoError(t, err)
	assert.Zero(t, got)

	s.Set("w", kb.Undefined)
	got, err = d.Distance(m, EmptyPath, s, kb.Neq("w", "0"))
	require.NoError(t, err)
	assert.InDelta(t, 1, got, 1e-9)
}

func TestDividedChargesConflictingTerms(t *testing.T) {
	t.Parallel()

	k := newKB(t, binary("x"),
		action("X0", 2, nil, set("x", "0")),
		action("X1", 3, nil, set("x", "1")),
	)
	m := newModel(t, k, goal("x", 1, "X1"))
	d := initDivided(t, m)

	got, err := d.Distance(m, EmptyPath, m.Root, kb.All(kb.Eq("x", "0"), kb.Eq("x", "1")))
	require.NoError(t, err)
	assert.InDelta(t, 5, got, 1e-9)

	got, err = d.Distance(m, EmptyPath, m.Root, kb.AnyOf("x", "0", "1"))
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestDividedCorrectsForUnusedInformativeActions(t *testing.T) {
	t.Parallel()

	k := newKB(t, binary("x"),
		action("N", -4, nil),
		action("X", 3, nil, set("x", "1")),
		action("T", 0, kb.Eq("x", "1")),
	)
	m := newModel(t, k, goal("t", 1, "T"))
	d := initDivided(t, m)

	got, err := d.Distance(m, EmptyPath, m.Root, kb.Eq("x", "1"))
	require.NoError(t, err)
	assert.InDelta(t, 0, got, 1e-9)

	n, _ := k.Action("N")
	p := m.Ledger.Append(EmptyPath, n, -4)
	got, err = d.Distance(m, p, m.Root, kb.Eq("x", "1"))
	require.NoError(t, err)
	assert.InDelta(t, 3, got, 1e-9)
}

func TestDividedRespectsFinalVariables(t *testing.T) {
	t.Parallel()

	k := newKB(t, binary("x"),
		action("X", 3, nil, set("x", "1")),
		action("T", 0, kb.Eq("x", "1")),
	)
	root := k.InitialState()
	root.Finalize("x")
	m, err := NewModel(k, root, nil, []Goal{goal("t", 1, "T")})
	require.NoError(t, err)
	d := initDivided(t, m)

	got, err := d.Distance(m, EmptyPath, root, kb.Eq("x", "1"))
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, 1))
	assert.True(t, m.IsBlocked(k.Actions()[1]))

	got, err = d.Distance(m, EmptyPath, root, kb.Eq("x", "0"))
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestDividedRejectsUnsupportedShapes(t *testing.T) {
	t.Parallel()

	k := newKB(t, binary("x", "y"), action("X", 1, nil, set("x", "1")))
	m := newModel(t, k, goal("x", 1, "X"))
	d := initDivided(t, m)

	for _, c := range []kb.Condition{
		kb.Not{Term: kb.AnyOf("x", "0", "1")},
		kb.Or{Terms: []kb.Condition{kb.All(kb.Eq("x", "1"), kb.Eq("y", "1"))}},
		kb.Or{},
	} {
		_, err := d.Distance(m, EmptyPath, m.Root, c)
		require.ErrorIs(t, err, ErrUnsupportedCondition, c.String())
		_, err = d.Distance(m, EmptyPath, m.Root, c)
		require.ErrorIs(t, err, ErrUnsupportedCondition, "cached %s", c)
	}
}

func TestSearchFailsOnUnsupportedPrecondition(t *testing.T) {
	t.Parallel()

	k := newKB(t, binary("x"),
		action("X", 1, nil, set("x", "1")),
		action("T", 0, kb.Not{Term: kb.AnyOf("x", "0", "1")}),
	)
	p, err := NewPlanner(k, DefaultOptions())
	require.NoError(t, err)

	_, _, err = p.Search(context.Background(), k.InitialState(), []Goal{goal("t", 1, "T")})
	require.ErrorIs(t, err, ErrUnsupportedCondition)
}

// prepKB needs a=1 for every action establishing x=1.
func prepKB(t *testing.T) *kb.KnowledgeBase {
	return newKB(t, binary("a", "b", "x"),
		action("S1", 2, kb.All(kb.Eq("a", "1"), kb.Eq("b", "1")), set("x", "1")),
		action("S2", 3, kb.Eq("a", "1"), set("x", "1")),
		action("A", 1, nil, set("a", "1")),
		action("B", 1, nil, set("b", "1")),
		action("T", 0, kb.Eq("x", "1")),
	)
}

func TestTransitiveAddsProvablyNeededFacts(t *testing.T) {
	t.Parallel()

	k := prepKB(t)
	m := newModel(t, k, goal("t", 1, "T"))
	tp := NewTransitive()
	require.NoError(t, tp.Init(m))
	d := initDivided(t, m)

	c := tp.Condition(m.Root, kb.Eq("x", "1"))
	assert.Equal(t, "(x=1 & a=1)", c.String())

	got, err := tp.Distance(m, EmptyPath, m.Root, kb.Eq("x", "1"))
	require.NoError(t, err)
	assert.InDelta(t, 3, got, 1e-9)
	divided, err := d.Distance(m, EmptyPath, m.Root, kb.Eq("x", "1"))
	require.NoError(t, err)
	assert.InDelta(t, 2, divided, 1e-9)

	var ids []string
	for _, a := range tp.Preparers(kb.Eq("x", "1")) {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"S1", "S2"}, ids)

	s := m.Root.Clone()
	s.Set("a", "1")
	assert.Equal(t, "x=1", tp.Condition(s, kb.Eq("x", "1")).String())
	assert.Equal(t, "(true)", tp.Condition(s, nil).String())
}

func TestTransitiveSkipsFactsRequiredByThePrecondition(t *testing.T) {
	t.Parallel()

	k := prepKB(t)
	m := newModel(t, k, goal("t", 1, "T"))
	tp := NewTransitive()
	require.NoError(t, tp.Init(m))

	pre := kb.All(kb.Eq("x", "1"), kb.Eq("a", "1"))
	assert.Equal(t, pre.String(), tp.Condition(m.Root, pre).String())
	got, err := tp.Distance(m, EmptyPath, m.Root, pre)
	require.NoError(t, err)
	assert.InDelta(t, 3, got, 1e-9)
}

func TestTransitiveChargesConflictingPreparation(t *testing.T) {
	t.Parallel()

	k := prepKB(t)
	m := newModel(t, k, goal("t", 1, "T"))
	tp := NewTransitive()
	require.NoError(t, tp.Init(m))

	// x=1 needs a=1 on the way, so a=0 has to be restored afterwards
	pre := kb.All(kb.Eq("x", "1"), kb.Eq("a", "0"))
	c := tp.Condition(m.Root, pre)
	assert.Contains(t, c.String(), "a=1")
	got, err := tp.Distance(m, EmptyPath, m.Root, pre)
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, 1), "no action restores a=0")
}

func TestTransitiveRebuildsOnlyWhenInputsChange(t *testing.T) {
	t.Parallel()

	k := prepKB(t)
	tp := NewTransitive()

	m1 := newModel(t, k, goal("t", 1, "T"))
	require.NoError(t, tp.Init(m1))
	require.NoError(t, tp.Init(m1))
	m2 := newModel(t, k, goal("t", 1, "T"))
	require.NoError(t, tp.Init(m2))
	assert.Equal(t, 1, tp.Rebuilds())

	root := k.InitialState()
	root.Exclude("S1")
	m3, err := NewModel(k, root, nil, []Goal{goal("t", 1, "T")})
	require.NoError(t, err)
	require.NoError(t, tp.Init(m3))
	assert.Equal(t, 2, tp.Rebuilds())

	var ids []string
	for _, a := range tp.Preparers(kb.Eq("x", "1")) {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"S2"}, ids)

	require.NoError(t, tp.Init(newModel(t, prepKB(t), goal("t", 1, "T"))))
	assert.Equal(t, 3, tp.Rebuilds())
}

func TestSwitchingSelectsByTargetCount(t *testing.T) {
	t.Parallel()

	k := prepKB(t)
	m := newModel(t, k, goal("t", 1, "T"))

	h := NewSwitching(1)
	require.NoError(t, h.Init(m))
	assert.IsType(t, &Transitive{}, h.Active())
	assert.Equal(t, "switching/transitive", h.String())

	h = NewSwitching(0)
	assert.Equal(t, "switching", h.String())
	require.NoError(t, h.Init(m))
	assert.IsType(t, &Divided{}, h.Active())
	assert.Equal(t, "divided", heuristicName(h.Active()))
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Kind{
		"":           KindSwitching,
		"switching":  KindSwitching,
		"transitive": KindTransitive,
		"divided":    KindDivided,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("greedy")
	require.Error(t, err)
}
