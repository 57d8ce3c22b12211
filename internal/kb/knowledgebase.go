package kb

import (
	"fmt"
	"strings"
)

// ValidationError aggregates all problems found in a knowledge base.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid knowledge base: " + strings.Join(e.Problems, "; ")
}

// KnowledgeBase holds variables and actions in declaration order.
type KnowledgeBase struct {
	variables []*Variable
	byVar     map[string]*Variable
	actions   []*Action
	byAction  map[string]*Action
}

// New builds and validates a knowledge base.
func New(variables []*Variable, actions []*Action) (*KnowledgeBase, error) {
	k := &KnowledgeBase{
		variables: variables,
		byVar:     make(map[string]*Variable, len(variables)),
		actions:   actions,
		byAction:  make(map[string]*Action, len(actions)),
	}
	for _, v := range variables {
		k.byVar[v.ID] = v
	}
	for _, a := range actions {
		k.byAction[a.ID] = a
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

// Variables returns all variables.
func (k *KnowledgeBase) Variables() []*Variable { return k.variables }

// Actions returns all actions.
func (k *KnowledgeBase) Actions() []*Action { return k.actions }

// Variable looks up a variable by id.
func (k *KnowledgeBase) Variable(id string) (*Variable, bool) {
	v, ok := k.byVar[id]
	return v, ok
}

// Action looks up an action by id.
func (k *KnowledgeBase) Action(id string) (*Action, bool) {
	a, ok := k.byAction[id]
	return a, ok
}

// NegativeCostSum sums the declared costs of all informative actions.
func (k *KnowledgeBase) NegativeCostSum() float64 {
	sum := 0.0
	for _, a := range k.actions {
		if a.Cost < 0 {
			sum += a.Cost
		}
	}
	return sum
}

// InitialState returns a state holding the initial value of every variable.
func (k *KnowledgeBase) InitialState() *State {
	s := NewState()
	for _, v := range k.variables {
		s.Set(v.ID, v.Initial)
	}
	return s
}

// Observe gives every variable observed by a that is still undefined in s
// its normal value. It returns the variables that changed.
func (k *KnowledgeBase) Observe(a *Action, s *State) []string {
	var changed []string
	for _, id := range a.Observes {
		v, ok := k.byVar[id]
		if !ok || v.Normal == Undefined || s.Value(id) != Undefined {
			continue
		}
		if s.Set(id, v.Normal) {
			changed = append(changed, id)
		}
	}
	return changed
}

// Validate checks identities and references.
func (k *KnowledgeBase) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	seenVars := make(map[string]struct{}, len(k.variables))
	for _, v := range k.variables {
		if v.ID == "" {
			add("variable without id")
			continue
		}
		if _, ok := seenVars[v.ID]; ok {
			add("duplicate variable %q", v.ID)
		}
		seenVars[v.ID] = struct{}{}
		if len(v.Choices) == 0 {
			add("variable %q has no choices", v.ID)
		}
		if v.Initial != Undefined && !v.HasChoice(v.Initial) {
			add("variable %q: initial value %q is not a choice", v.ID, v.Initial)
		}
		if v.Normal != Undefined && !v.HasChoice(v.Normal) {
			add("variable %q: normal value %q is not a choice", v.ID, v.Normal)
		}
	}

	checkCond := func(owner string, c Condition) {
		if c == nil {
			return
		}
		for _, problem := range k.conditionProblems(c) {
			add("%s: %s", owner, problem)
		}
	}

	seenActions := make(map[string]struct{}, len(k.actions))
	for _, a := range k.actions {
		if a.ID == "" {
			add("action without id")
			continue
		}
		if _, ok := seenActions[a.ID]; ok {
			add("duplicate action %q", a.ID)
		}
		seenActions[a.ID] = struct{}{}
		owner := fmt.Sprintf("action %q", a.ID)
		checkCond(owner+" precondition", a.Precondition)
		checkCond(owner+" exclusion", a.Exclusion)
		for _, e := range a.Effects {
			v, ok := k.byVar[e.Var]
			if !ok {
				add("%s: effect on unknown variable %q", owner, e.Var)
				continue
			}
			if len(e.Setters) == 0 {
				add("%s: effect on %q has no setters", owner, e.Var)
			}
			for _, s := range e.Setters {
				if !v.HasChoice(s.Value) {
					add("%s: effect sets %q to unknown value %q", owner, e.Var, s.Value)
				}
				checkCond(owner+" effect guard", s.When)
			}
		}
		for _, id := range a.Observes {
			if _, ok := k.byVar[id]; !ok {
				add("%s: observes unknown variable %q", owner, id)
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (k *KnowledgeBase) conditionProblems(c Condition) []string {
	switch t := c.(type) {
	case Equal:
		v, ok := k.byVar[t.Var]
		if !ok {
			return []string{fmt.Sprintf("unknown variable %q", t.Var)}
		}
		if !v.HasChoice(t.Value) {
			return []string{fmt.Sprintf("unknown value %q of %q", t.Value, t.Var)}
		}
		return nil
	case Not:
		return k.conditionProblems(t.Term)
	case Or:
		return k.termProblems(t.Terms)
	case And:
		return k.termProblems(t.Terms)
	}
	return []string{fmt.Sprintf("unsupported condition %T", c)}
}

func (k *KnowledgeBase) termProblems(terms []Condition) []string {
	var out []string
	for _, t := range terms {
		out = append(out, k.conditionProblems(t)...)
	}
	return out
}
