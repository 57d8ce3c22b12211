// Package kb provides the knowledge base the planner searches over: variables,
// world states, conditions, actions and their cost functions.
package kb

import "slices"

// Value is a single choice of a variable. The zero value is Undefined.
type Value string

// Undefined marks a variable without a value.
const Undefined Value = ""

// Variable describes a one-choice variable of the world state.
type Variable struct {
	ID      string
	Choices []Value
	// Initial is the value the variable holds in a fresh state.
	Initial Value
	// Normal is set by actions observing the variable while it is undefined.
	Normal Value
}

// HasChoice reports whether v is one of the variable's choices.
func (v *Variable) HasChoice(value Value) bool {
	return slices.Contains(v.Choices, value)
}

// Abnormal reports whether value counts as an abnormal answer. Variables
// without a normal value treat every defined value as abnormal.
func (v *Variable) Abnormal(value Value) bool {
	if value == Undefined {
		return false
	}
	return v.Normal == Undefined || value != v.Normal
}
