package kb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionHolds(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.Set("x", "1")

	assert.True(t, Eq("x", "1").Holds(s))
	assert.False(t, Eq("x", "0").Holds(s))
	assert.True(t, Neq("x", "0").Holds(s))
	assert.False(t, Neq("x", "1").Holds(s))
	assert.False(t, Neq("y", "1").Holds(s), "negation of an undefined variable must not hold")
	assert.True(t, AnyOf("x", "0", "1").Holds(s))
	assert.False(t, AnyOf("y", "0", "1").Holds(s))
	assert.True(t, All().Holds(s))
	assert.False(t, All(Eq("x", "1"), Eq("y", "1")).Holds(s))
}

func TestConditionStringIsStructural(t *testing.T) {
	t.Parallel()

	c := All(Eq("x", "1"), AnyOf("y", "a", "b"), Neq("z", "0"))
	assert.Equal(t, "(x=1 & (y=a | y=b) & !(z=0))", c.String())
	assert.Equal(t, []string{"x", "y", "z"}, c.Variables())
}

func TestPrimitiveFlattensNestedConjunctions(t *testing.T) {
	t.Parallel()

	mixed := Or{Terms: []Condition{Eq("x", "1"), Eq("y", "1")}}
	c := All(Eq("a", "1"), All(Neq("b", "1"), AnyOf("c", "1", "2")), mixed)

	got := Primitive(c)
	require.Len(t, got, 3)
	assert.Equal(t, Eq("a", "1"), got[0])
	assert.Equal(t, Neq("b", "1"), got[1])
	assert.Equal(t, "(c=1 | c=2)", got[2].String())

	flat := Flatten(c)
	require.Len(t, flat, 4)
	assert.Equal(t, mixed.String(), flat[3].String())
	assert.Nil(t, Flatten(nil))
}

func TestIsPrimitive(t *testing.T) {
	t.Parallel()

	assert.True(t, IsPrimitive(Eq("x", "1")))
	assert.True(t, IsPrimitive(Neq("x", "1")))
	assert.True(t, IsPrimitive(AnyOf("x", "1", "2")))
	assert.False(t, IsPrimitive(Or{Terms: []Condition{Eq("x", "1"), Eq("y", "1")}}))
	assert.False(t, IsPrimitive(Not{Term: AnyOf("x", "1")}))
	assert.False(t, IsPrimitive(All(Eq("x", "1"))))
	assert.False(t, IsPrimitive(Or{}))
}

func TestRefutedUsesOnlyKnownValues(t *testing.T) {
	t.Parallel()

	known := map[string]Value{"x": "1"}

	assert.True(t, Refuted(Eq("x", "0"), known))
	assert.False(t, Refuted(Eq("x", "1"), known))
	assert.False(t, Refuted(Eq("y", "0"), known), "unknown variables never refute")
	assert.True(t, Refuted(All(Eq("y", "0"), Eq("x", "0")), known))
	assert.False(t, Refuted(AnyOf("x", "0").Terms[0], map[string]Value{}))
	assert.False(t, Refuted(Or{Terms: []Condition{Eq("x", "0"), Eq("y", "1")}}, known))
	assert.True(t, Refuted(Neq("x", "1"), known))
}

func TestCoveredAndRequiredValues(t *testing.T) {
	t.Parallel()

	k, err := New([]*Variable{
		{ID: "x", Choices: []Value{"a", "b", "c"}},
		{ID: "y", Choices: []Value{"0", "1"}},
	}, nil)
	require.NoError(t, err)

	cov := k.Covered(All(Neq("x", "a"), Eq("y", "1")))
	assert.Equal(t, ValueSet{"b": {}, "c": {}}, cov["x"])
	assert.Equal(t, ValueSet{"1": {}}, cov["y"])

	cov = k.Covered(Not{Term: All(Eq("x", "a"), Eq("y", "0"))})
	assert.Len(t, cov["x"], 3)
	assert.Len(t, cov["y"], 2)

	req := k.RequiredValues("x", All(AnyOf("x", "a", "b"), Eq("y", "1")))
	assert.Equal(t, ValueSet{"a": {}, "b": {}}, req)
	assert.Equal(t, ValueSet{"b": {}, "c": {}}, k.RequiredValues("x", Neq("x", "a")))
	assert.Empty(t, k.RequiredValues("y", Neq("x", "a")))

	assert.True(t, ValueSet{"a": {}}.Disjoint(ValueSet{"b": {}}))
	assert.False(t, ValueSet{"a": {}, "b": {}}.Disjoint(ValueSet{"b": {}}))
}

func TestAdmits(t *testing.T) {
	t.Parallel()

	assert.True(t, Admits(Eq("x", "1"), "1"))
	assert.False(t, Admits(Eq("x", "1"), "0"))
	assert.True(t, Admits(AnyOf("x", "1", "2"), "2"))
	assert.True(t, Admits(Neq("x", "1"), "2"))
	assert.False(t, Admits(Neq("x", "1"), Undefined))
	assert.False(t, Admits(All(Eq("x", "1")), "1"))
}
