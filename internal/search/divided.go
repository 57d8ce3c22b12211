package search

import (
	"sync"

	"github.com/metalagman/costplan/internal/kb"
)

// negativeShare is the part of the unspent informative costs expected to be
// used on the remaining path.
const negativeShare = 0.75

type effectRef struct {
	action string
	effect int
}

type compiledEntry struct {
	fn  costFunc
	err error
}

// Divided estimates the costs of a condition by charging, for every
// unfulfilled term, the cheapest action able to fulfill it. The costs of an
// action are divided among all terms it fulfills at once.
type Divided struct {
	k            *kb.KnowledgeBase
	finals       map[string]kb.Value
	transitional []*kb.Action
	values       map[effectRef]kb.Value
	negativeSum  float64

	mu    sync.RWMutex
	cache map[string]compiledEntry
}

// NewDivided returns an uninitialized divided transition heuristic.
func NewDivided() *Divided {
	return &Divided{}
}

func (d *Divided) String() string { return string(KindDivided) }

// Init implements Heuristic.
func (d *Divided) Init(m *Model) error {
	d.k = m.KB
	d.finals = m.Root.FinalValues()
	d.transitional = m.Transitional()

	// effect values are resolved once, assuming every observed variable
	// will be answered normally
	answered := m.Root.Clone()
	for _, a := range d.transitional {
		m.KB.Observe(a, answered)
	}
	d.values = make(map[effectRef]kb.Value)
	for _, a := range d.transitional {
		for i, e := range a.Effects {
			if v, ok := e.Resolve(answered); ok {
				d.values[effectRef{action: a.ID, effect: i}] = v
			}
		}
	}
	d.negativeSum = m.KB.NegativeCostSum()

	d.mu.Lock()
	d.cache = make(map[string]compiledEntry)
	d.mu.Unlock()
	return nil
}

// Distance implements Heuristic.
func (d *Divided) Distance(m *Model, p PathID, s *kb.State, c kb.Condition) (float64, error) {
	estimate, err := d.estimate(s, c)
	if err != nil {
		return 0, err
	}
	return estimate + d.correction(m.Ledger, p), nil
}

// correction credits the informative actions not yet used on p. It is never
// positive.
func (d *Divided) correction(l *Ledger, p PathID) float64 {
	return negativeShare * (d.negativeSum - l.NegativeCosts(p))
}

// estimate evaluates the compiled cost function of c against s.
func (d *Divided) estimate(s kb.Reader, c kb.Condition) (float64, error) {
	if c == nil {
		return 0, nil
	}
	key := c.String()
	d.mu.RLock()
	entry, ok := d.cache[key]
	d.mu.RUnlock()
	if !ok {
		fn, err := compile(c, d.setterCosts(c))
		entry = compiledEntry{fn: fn, err: err}
		d.mu.Lock()
		d.cache[key] = entry
		d.mu.Unlock()
	}
	if entry.err != nil {
		return 0, entry.err
	}
	return entry.fn.eval(s), nil
}

// setterCosts computes, per variable and value referenced by c, the
// cheapest divided costs of a transitional action assigning it.
func (d *Divided) setterCosts(c kb.Condition) setterCosts {
	out := make(setterCosts)
	relevant := make(map[string]struct{})
	for _, v := range c.Variables() {
		relevant[v] = struct{}{}
	}
	for _, a := range d.transitional {
		set := d.fulfilled(a, c, relevant)
		if len(set) == 0 {
			continue
		}
		costs := 0.0
		if a.Cost > 0 {
			costs = a.Cost / float64(len(set))
		}
		for variable, value := range set {
			byValue, ok := out[variable]
			if !ok {
				byValue = make(map[kb.Value]float64)
				out[variable] = byValue
			}
			if old, ok := byValue[value]; !ok || costs < old {
				byValue[value] = costs
			}
		}
	}
	for variable, value := range d.finals {
		out[variable] = map[kb.Value]float64{value: 0}
	}
	return out
}

// fulfilled returns the variables of c that a sets to a required value.
// Final variables cannot change and are skipped.
func (d *Divided) fulfilled(a *kb.Action, c kb.Condition, relevant map[string]struct{}) map[string]kb.Value {
	var set map[string]kb.Value
	for i, e := range a.Effects {
		if _, ok := relevant[e.Var]; !ok {
			continue
		}
		if _, final := d.finals[e.Var]; final {
			continue
		}
		value, ok := d.values[effectRef{action: a.ID, effect: i}]
		if !ok || !d.k.RequiredValues(e.Var, c).Has(value) {
			continue
		}
		if set == nil {
			set = make(map[string]kb.Value)
		}
		set[e.Var] = value
	}
	return set
}
