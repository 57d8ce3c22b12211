package kb

import (
	"maps"
	"slices"
)

// Reader gives read access to variable values.
type Reader interface {
	Value(variable string) Value
}

// State is a mutable assignment of variables to values. Exclusions and final
// variables are shared between a state and its clones, so they have to be set
// up before the first Clone.
type State struct {
	values   map[string]Value
	excluded map[string]struct{}
	final    map[string]struct{}
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		values:   make(map[string]Value),
		excluded: make(map[string]struct{}),
		final:    make(map[string]struct{}),
	}
}

// Value returns the value of variable or Undefined.
func (s *State) Value(variable string) Value {
	return s.values[variable]
}

// Set assigns value to variable and reports whether the value changed.
func (s *State) Set(variable string, value Value) bool {
	if s.values[variable] == value {
		return false
	}
	if value == Undefined {
		delete(s.values, variable)
	} else {
		s.values[variable] = value
	}
	return true
}

// Clone copies the values of the state.
func (s *State) Clone() *State {
	return &State{
		values:   maps.Clone(s.values),
		excluded: s.excluded,
		final:    s.final,
	}
}

// Exclude marks an action as contra-indicated in this state.
func (s *State) Exclude(action string) {
	s.excluded[action] = struct{}{}
}

// IsExcluded reports whether the action was excluded explicitly.
func (s *State) IsExcluded(action string) bool {
	_, ok := s.excluded[action]
	return ok
}

// ExcludedActions returns the explicitly excluded actions in sorted order.
func (s *State) ExcludedActions() []string {
	return slices.Sorted(maps.Keys(s.excluded))
}

// Finalize marks variable as fixed. Set does not enforce it: callers
// promise not to change a finalized value once it is defined, and the
// heuristics rely on that promise.
func (s *State) Finalize(variable string) {
	s.final[variable] = struct{}{}
}

// IsFinal reports whether variable was finalized.
func (s *State) IsFinal(variable string) bool {
	_, ok := s.final[variable]
	return ok
}

// FinalValues returns the values of all finalized, defined variables.
func (s *State) FinalValues() map[string]Value {
	out := make(map[string]Value, len(s.final))
	for variable := range s.final {
		if value := s.values[variable]; value != Undefined {
			out[variable] = value
		}
	}
	return out
}

// Defined returns the defined variables in sorted order.
func (s *State) Defined() []string {
	return slices.Sorted(maps.Keys(s.values))
}
