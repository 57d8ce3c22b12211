package kb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateSet(t *testing.T) {
	t.Parallel()

	s := NewState()
	assert.True(t, s.Set("x", "1"))
	assert.False(t, s.Set("x", "1"), "unchanged")
	assert.Equal(t, Value("1"), s.Value("x"))
	assert.Equal(t, []string{"x"}, s.Defined())

	assert.True(t, s.Set("x", Undefined))
	assert.Equal(t, Undefined, s.Value("x"))
	assert.Empty(t, s.Defined())
}

func TestStateFinalValues(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.Set("a", "1")
	s.Finalize("a")
	s.Finalize("b")
	s.Exclude("z")
	s.Exclude("m")

	assert.True(t, s.IsFinal("a"))
	assert.False(t, s.IsFinal("c"))
	assert.Equal(t, map[string]Value{"a": "1"}, s.FinalValues(), "undefined finals are omitted")
	assert.Equal(t, []string{"m", "z"}, s.ExcludedActions())

	clone := s.Clone()
	clone.Set("b", "2")
	assert.Equal(t, map[string]Value{"a": "1", "b": "2"}, clone.FinalValues())
	assert.Equal(t, Undefined, s.Value("b"))
}

func TestStateFinalizeIsACallerPromise(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.Set("x", "1")
	s.Finalize("x")
	assert.True(t, s.Set("x", "2"), "Set does not guard finalized variables")
	assert.True(t, s.IsFinal("x"))
	assert.Equal(t, map[string]Value{"x": "2"}, s.FinalValues())
}

func TestValueSetDisjoint(t *testing.T) {
	t.Parallel()

	a := ValueSet{"1": {}, "2": {}}
	b := ValueSet{"3": {}}
	c := ValueSet{"2": {}, "4": {}, "5": {}}
	assert.True(t, a.Disjoint(b))
	assert.False(t, a.Disjoint(c))
	assert.False(t, c.Disjoint(a))
	assert.True(t, a.Disjoint(nil))
}
