package search

import (
	"fmt"
	"math"

	"github.com/metalagman/costplan/internal/kb"
)

// setterCosts maps variable -> value -> cheapest divided setter costs.
type setterCosts map[string]map[kb.Value]float64

// costFunc estimates the costs to fulfill a compiled condition.
type costFunc interface {
	eval(r kb.Reader) float64
	variables() []string
	setConflicting(variable string)
}

type compiledAnd struct {
	children []costFunc
}

func (c *compiledAnd) eval(r kb.Reader) float64 {
	sum := 0.0
	for _, child := range c.children {
		sum += child.eval(r)
		if math.IsInf(sum, 1) {
			break
		}
	}
	return sum
}

func (c *compiledAnd) variables() []string { return childVariables(c.children) }

func (c *compiledAnd) setConflicting(variable string) {
	for _, child := range c.children {
		child.setConflicting(variable)
	}
}

type compiledOr struct {
	children []costFunc
}

func (c *compiledOr) eval(r kb.Reader) float64 {
	cheapest := math.Inf(1)
	for _, child := range c.children {
		cheapest = math.Min(cheapest, child.eval(r))
		if cheapest == 0 {
			break
		}
	}
	return cheapest
}

func (c *compiledOr) variables() []string { return childVariables(c.children) }

func (c *compiledOr) setConflicting(variable string) {
	if len(c.variables()) != 1 {
		return
	}
	for _, child := range c.children {
		child.setConflicting(variable)
	}
}

// compiledEqual is free if the variable already has the value. Two leaves on
// the same variable inside one conjunction conflict: the value reached for
// one has to be replaced for the other, so neither counts as fulfilled.
type compiledEqual struct {
	variable    string
	value       kb.Value
	costs       float64
	conflicting bool
}

func (c *compiledEqual) eval(r kb.Reader) float64 {
	if r.Value(c.variable) == c.value && !c.conflicting {
		return 0
	}
	return c.costs
}

func (c *compiledEqual) variables() []string { return []string{c.variable} }

func (c *compiledEqual) setConflicting(variable string) {
	if variable == c.variable {
		c.conflicting = true
	}
}

type compiledNotEqual struct {
	variable    string
	value       kb.Value
	costs       float64
	conflicting bool
}

func (c *compiledNotEqual) eval(r kb.Reader) float64 {
	if v := r.Value(c.variable); v != kb.Undefined && v != c.value && !c.conflicting {
		return 0
	}
	return c.costs
}

func (c *compiledNotEqual) variables() []string { return []string{c.variable} }

func (c *compiledNotEqual) setConflicting(variable string) {
	if variable == c.variable {
		c.conflicting = true
	}
}

// compile turns c into a cost function. Supported shapes are equalities,
// negated equalities, disjunctions of equalities and conjunctions of those.
func compile(c kb.Condition, costs setterCosts) (costFunc, error) {
	switch t := c.(type) {
	case kb.And:
		terms := kb.Flatten(t)
		children := make([]costFunc, 0, len(terms))
		for _, term := range terms {
			child, err := compile(term, costs)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		byVariable := make(map[string]costFunc)
		for _, child := range children {
			vars := child.variables()
			if len(vars) != 1 {
				continue
			}
			if other, ok := byVariable[vars[0]]; ok {
				other.setConflicting(vars[0])
				child.setConflicting(vars[0])
			} else {
				byVariable[vars[0]] = child
			}
		}
		if len(children) == 1 {
			return children[0], nil
		}
		return &compiledAnd{children: children}, nil
	case kb.Or:
		if len(t.Terms) == 0 {
			return nil, unsupported(c)
		}
		children := make([]costFunc, 0, len(t.Terms))
		for _, term := range t.Terms {
			eq, ok := term.(kb.Equal)
			if !ok {
				return nil, unsupported(c)
			}
			child, _ := compile(eq, costs)
			children = append(children, child)
		}
		if len(children) == 1 {
			return children[0], nil
		}
		return &compiledOr{children: children}, nil
	case kb.Equal:
		valueCosts := math.Inf(1)
		if v, ok := costs[t.Var][t.Value]; ok {
			valueCosts = v
		}
		return &compiledEqual{variable: t.Var, value: t.Value, costs: valueCosts}, nil
	case kb.Not:
		eq, ok := t.Term.(kb.Equal)
		if !ok {
			return nil, unsupported(c)
		}
		cheapest := math.Inf(1)
		for value, v := range costs[eq.Var] {
			if value != eq.Value {
				cheapest = math.Min(cheapest, v)
			}
		}
		return &compiledNotEqual{variable: eq.Var, value: eq.Value, costs: cheapest}, nil
	}
	return nil, unsupported(c)
}

func unsupported(c kb.Condition) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedCondition, c)
}

func childVariables(children []costFunc) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, child := range children {
		for _, v := range child.variables() {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
