package search

import (
	"math"
	"time"
)

// Progress is reported to the abort strategy once per closed node.
type Progress struct {
	Steps int
	Found bool
}

// Abort decides when a search stops before its optimality proof.
type Abort interface {
	// Start is called once when the search loop begins.
	Start()
	// Next reports whether the search should stop.
	Next(p Progress) bool
}

// NoAbort never stops a search.
type NoAbort struct{}

func (NoAbort) Start() {}

func (NoAbort) Next(Progress) bool { return false }

// StepBudget stops after Max closed nodes. While no target has been reached
// the budget is extended once to Max*Factor.
type StepBudget struct {
	Max    int
	Factor float64

	budget int
}

// Start resets the budget.
func (b *StepBudget) Start() { b.budget = b.Max }

// Next implements Abort.
func (b *StepBudget) Next(p Progress) bool {
	if b.Max <= 0 || p.Steps < b.budget {
		return false
	}
	if !p.Found && b.Factor > 1 && b.budget == b.Max {
		b.budget = int(math.Ceil(float64(b.Max) * b.Factor))
		return p.Steps >= b.budget
	}
	return true
}

// Deadline stops once Timeout has elapsed since Start.
type Deadline struct {
	Timeout time.Duration

	now      func() time.Time
	deadline time.Time
}

// NewDeadline returns a deadline strategy using the wall clock.
func NewDeadline(timeout time.Duration) *Deadline {
	return &Deadline{Timeout: timeout, now: time.Now}
}

// Start implements Abort.
func (d *Deadline) Start() {
	if d.now == nil {
		d.now = time.Now
	}
	d.deadline = d.now().Add(d.Timeout)
}

// Next implements Abort.
func (d *Deadline) Next(Progress) bool {
	return d.Timeout > 0 && !d.now().Before(d.deadline)
}

type anyOf []Abort

// AnyOf stops as soon as one of strategies does. Nil strategies are skipped.
func AnyOf(strategies ...Abort) Abort {
	var out anyOf
	for _, s := range strategies {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return NoAbort{}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (a anyOf) Start() {
	for _, s := range a {
		s.Start()
	}
}

func (a anyOf) Next(p Progress) bool {
	stop := false
	for _, s := range a {
		if s.Next(p) {
			stop = true
		}
	}
	return stop
}
