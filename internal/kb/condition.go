package kb

import (
	"strings"
)

// Condition is a boolean expression over variables.
type Condition interface {
	// Holds evaluates the condition. Conditions on undefined variables do
	// not hold, negated ones included.
	Holds(r Reader) bool
	// Variables returns the referenced variables without duplicates.
	Variables() []string
	// String returns a canonical form usable as a map key.
	String() string
}

// Equal holds if Var has Value.
type Equal struct {
	Var   string
	Value Value
}

func (c Equal) Holds(r Reader) bool { return r.Value(c.Var) == c.Value }

func (c Equal) Variables() []string { return []string{c.Var} }

func (c Equal) String() string { return c.Var + "=" + string(c.Value) }

// Not negates Term. It only holds if every variable of Term is defined.
type Not struct {
	Term Condition
}

func (c Not) Holds(r Reader) bool {
	for _, v := range c.Term.Variables() {
		if r.Value(v) == Undefined {
			return false
		}
	}
	return !c.Term.Holds(r)
}

func (c Not) Variables() []string { return c.Term.Variables() }

func (c Not) String() string { return "!(" + c.Term.String() + ")" }

// Or holds if any term holds.
type Or struct {
	Terms []Condition
}

func (c Or) Holds(r Reader) bool {
	for _, t := range c.Terms {
		if t.Holds(r) {
			return true
		}
	}
	return false
}

func (c Or) Variables() []string { return variablesOf(c.Terms) }

func (c Or) String() string {
	if len(c.Terms) == 0 {
		return "(false)"
	}
	return join(c.Terms, " | ")
}

// And holds if all terms hold. An empty And always holds.
type And struct {
	Terms []Condition
}

func (c And) Holds(r Reader) bool {
	for _, t := range c.Terms {
		if !t.Holds(r) {
			return false
		}
	}
	return true
}

func (c And) Variables() []string { return variablesOf(c.Terms) }

func (c And) String() string {
	if len(c.Terms) == 0 {
		return "(true)"
	}
	return join(c.Terms, " & ")
}

// Eq is a shorthand for Equal.
func Eq(variable string, value Value) Equal {
	return Equal{Var: variable, Value: value}
}

// Neq negates a single equality.
func Neq(variable string, value Value) Not {
	return Not{Term: Eq(variable, value)}
}

// AnyOf holds if variable has one of values.
func AnyOf(variable string, values ...Value) Or {
	terms := make([]Condition, 0, len(values))
	for _, v := range values {
		terms = append(terms, Eq(variable, v))
	}
	return Or{Terms: terms}
}

// All is a shorthand for And.
func All(terms ...Condition) And {
	return And{Terms: terms}
}

// IsPrimitive reports whether c constrains a single variable in a way the
// heuristics can reason about: an equality, a negated equality or a
// disjunction of equalities on the same variable.
func IsPrimitive(c Condition) bool {
	switch t := c.(type) {
	case Equal:
		return true
	case Not:
		_, ok := t.Term.(Equal)
		return ok
	case Or:
		if len(t.Terms) == 0 {
			return false
		}
		variable := ""
		for _, term := range t.Terms {
			eq, ok := term.(Equal)
			if !ok {
				return false
			}
			if variable == "" {
				variable = eq.Var
			} else if variable != eq.Var {
				return false
			}
		}
		return true
	}
	return false
}

// Primitive splits nested conjunctions and returns their primitive terms.
// Non-primitive terms are dropped.
func Primitive(c Condition) []Condition {
	var out []Condition
	if and, ok := c.(And); ok {
		for _, t := range and.Terms {
			out = append(out, Primitive(t)...)
		}
		return out
	}
	if c != nil && IsPrimitive(c) {
		out = append(out, c)
	}
	return out
}

// Flatten splits nested conjunctions and returns every other term unchanged.
func Flatten(c Condition) []Condition {
	if c == nil {
		return nil
	}
	and, ok := c.(And)
	if !ok {
		return []Condition{c}
	}
	var out []Condition
	for _, t := range and.Terms {
		out = append(out, Flatten(t)...)
	}
	return out
}

// Refuted reports whether c is false no matter which values the variables
// missing from known receive.
func Refuted(c Condition, known map[string]Value) bool {
	value, decided := decide(c, known)
	return decided && !value
}

func decide(c Condition, known map[string]Value) (bool, bool) {
	switch t := c.(type) {
	case Equal:
		v, ok := known[t.Var]
		if !ok {
			return false, false
		}
		return v == t.Value, true
	case Not:
		v, decided := decide(t.Term, known)
		return !v, decided
	case Or:
		all := true
		for _, term := range t.Terms {
			v, decided := decide(term, known)
			if decided && v {
				return true, true
			}
			all = all && decided
		}
		return false, all
	case And:
		all := true
		for _, term := range t.Terms {
			v, decided := decide(term, known)
			if decided && !v {
				return false, true
			}
			all = all && decided
		}
		return true, all
	}
	return false, false
}

func variablesOf(terms []Condition) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range terms {
		for _, v := range t.Variables() {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func join(terms []Condition, sep string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, t.String())
	}
	return "(" + strings.Join(parts, sep) + ")"
}
