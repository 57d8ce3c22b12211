package kb

// CostFunction computes the cost of an action in a given state.
type CostFunction interface {
	Costs(a *Action, r Reader) float64
}

// StaticCosts charges the declared cost of every action.
type StaticCosts struct{}

// Costs implements CostFunction.
func (StaticCosts) Costs(a *Action, _ Reader) float64 {
	return a.Cost
}

// Surcharge adds Extra to the cost of Action while When holds. An empty
// Action applies to all actions.
type Surcharge struct {
	Action string
	When   Condition
	Extra  float64
}

// ConditionalCosts charges the declared cost plus all matching surcharges.
// Surcharges must not be negative, the heuristics only know declared costs.
type ConditionalCosts struct {
	Surcharges []Surcharge
}

// Costs implements CostFunction.
func (c ConditionalCosts) Costs(a *Action, r Reader) float64 {
	costs := a.Cost
	for _, s := range c.Surcharges {
		if s.Action != "" && s.Action != a.ID {
			continue
		}
		if s.When == nil || s.When.Holds(r) {
			costs += s.Extra
		}
	}
	return costs
}
