package kb

// Setter assigns Value when its guard holds. A nil guard always holds.
type Setter struct {
	When  Condition
	Value Value
}

// Effect sets Var to the value of the first matching setter.
type Effect struct {
	Var     string
	Setters []Setter
}

// Resolve returns the value the effect assigns in r.
func (e Effect) Resolve(r Reader) (Value, bool) {
	for _, s := range e.Setters {
		if s.When == nil || s.When.Holds(r) {
			return s.Value, true
		}
	}
	return Undefined, false
}

// Action is an operation with a declared cost, a precondition and effects on
// the world state.
type Action struct {
	ID   string
	Cost float64
	// Precondition may be nil: the action is applicable at any time.
	Precondition Condition
	Effects      []Effect
	// Observes lists variables the action answers. Undefined ones receive
	// their normal value when the action is simulated.
	Observes []string
	// Exclusion contra-indicates the action while it holds.
	Exclusion Condition
	// TargetOnly actions are never used as intermediate steps.
	TargetOnly bool
}

// Negative reports whether the action is informative: negative declared cost.
func (a *Action) Negative() bool {
	return a.Cost < 0
}

// HasTransition reports whether the action has a precondition or effects.
func (a *Action) HasTransition() bool {
	return a.Precondition != nil || len(a.Effects) > 0
}

// Applicable reports whether the precondition holds in r.
func (a *Action) Applicable(r Reader) bool {
	return a.Precondition == nil || a.Precondition.Holds(r)
}

// Excluded reports whether the action is contra-indicated in s.
func (a *Action) Excluded(s *State) bool {
	if s.IsExcluded(a.ID) {
		return true
	}
	return a.Exclusion != nil && a.Exclusion.Holds(s)
}

// Apply fires all effects on s and returns the variables that changed.
// Guards are evaluated against the state before any effect is applied.
func (a *Action) Apply(s *State) []string {
	type assignment struct {
		variable string
		value    Value
	}
	pending := make([]assignment, 0, len(a.Effects))
	for _, e := range a.Effects {
		if value, ok := e.Resolve(s); ok {
			pending = append(pending, assignment{variable: e.Var, value: value})
		}
	}
	var changed []string
	for _, p := range pending {
		if s.Set(p.variable, p.value) {
			changed = append(changed, p.variable)
		}
	}
	return changed
}

// Touches reports whether any effect of the action writes variable.
func (a *Action) Touches(variable string) bool {
	for _, e := range a.Effects {
		if e.Var == variable {
			return true
		}
	}
	return false
}
