package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		budget StepBudget
		steps  []Progress
		want   []bool
	}{
		{
			name:   "unbounded",
			budget: StepBudget{},
			steps:  []Progress{{Steps: 1000}},
			want:   []bool{false},
		},
		{
			name:   "stops at max",
			budget: StepBudget{Max: 2, Factor: 1},
			steps:  []Progress{{Steps: 1}, {Steps: 2}},
			want:   []bool{false, true},
		},
		{
			name:   "extends once while nothing found",
			budget: StepBudget{Max: 2, Factor: 2},
			steps:  []Progress{{Steps: 2}, {Steps: 3}, {Steps: 4}},
			want:   []bool{false, false, true},
		},
		{
			name:   "no extension after a target was found",
			budget: StepBudget{Max: 2, Factor: 2},
			steps:  []Progress{{Steps: 2, Found: true}},
			want:   []bool{true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := tt.budget
			b.Start()
			for i, p := range tt.steps {
				assert.Equal(t, tt.want[i], b.Next(p), "step %d", p.Steps)
			}
		})
	}
}

func TestStepBudgetStartResets(t *testing.T) {
	t.Parallel()

	b := &StepBudget{Max: 1, Factor: 3}
	b.Start()
	assert.False(t, b.Next(Progress{Steps: 1}))
	b.Start()
	assert.False(t, b.Next(Progress{Steps: 2}))
	assert.True(t, b.Next(Progress{Steps: 3}))
}

func TestDeadline(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDeadline(time.Second)
	d.now = func() time.Time { return now }
	d.Start()

	assert.False(t, d.Next(Progress{}))
	now = now.Add(999 * time.Millisecond)
	assert.False(t, d.Next(Progress{}))
	now = now.Add(time.Millisecond)
	assert.True(t, d.Next(Progress{}))

	off := NewDeadline(0)
	off.Start()
	assert.False(t, off.Next(Progress{}))
}

func TestAnyOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, NoAbort{}, AnyOf())
	assert.Equal(t, NoAbort{}, AnyOf(nil))

	budget := &StepBudget{Max: 3}
	assert.Same(t, budget, AnyOf(nil, budget))

	combined := AnyOf(NoAbort{}, budget)
	combined.Start()
	assert.False(t, combined.Next(Progress{Steps: 2}))
	assert.True(t, combined.Next(Progress{Steps: 3}))
}
