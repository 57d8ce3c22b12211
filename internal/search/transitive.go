package search

import (
	"strings"

	"github.com/metalagman/costplan/internal/kb"
	"github.com/rs/zerolog/log"
)

// preparation lists what every action establishing a primitive condition
// needs: the preconditions shared by all of them, and the actions.
type preparation struct {
	common    []kb.Condition
	preparers []*kb.Action
}

// Transitive extends a precondition with the preparatory facts that are
// provably needed to establish it and estimates the extended condition with
// the divided machinery. The preparation table survives between searches as
// long as the knowledge base, the blocked actions and the abnormally
// answered variables stay the same.
type Transitive struct {
	dt *Divided

	k        *kb.KnowledgeBase
	blocked  string
	abnormal string
	ready    bool
	rebuilds int

	preparations map[string]preparation
}

// NewTransitive returns an uninitialized transitive precondition heuristic.
func NewTransitive() *Transitive {
	return &Transitive{dt: NewDivided()}
}

func (t *Transitive) String() string { return string(KindTransitive) }

// Rebuilds counts how often the preparation table was computed.
func (t *Transitive) Rebuilds() int { return t.rebuilds }

// Init implements Heuristic.
func (t *Transitive) Init(m *Model) error {
	if err := t.dt.Init(m); err != nil {
		return err
	}
	blocked := m.BlockedKey()
	abnormal := strings.Join(m.AnsweredAbnormal(), ",")
	if t.ready && t.k == m.KB && t.blocked == blocked && t.abnormal == abnormal {
		return nil
	}
	t.k = m.KB
	t.blocked = blocked
	t.abnormal = abnormal
	t.build(m)
	t.ready = true
	return nil
}

func (t *Transitive) build(m *Model) {
	t.rebuilds++
	t.preparations = make(map[string]preparation)

	var conditions []kb.Condition
	seen := make(map[string]struct{})
	for _, a := range m.KB.Actions() {
		if m.IsBlocked(a) || a.Precondition == nil {
			continue
		}
		for _, c := range kb.Primitive(a.Precondition) {
			if _, ok := seen[c.String()]; ok {
				continue
			}
			seen[c.String()] = struct{}{}
			conditions = append(conditions, c)
		}
	}

	for _, c := range conditions {
		variable := c.Variables()[0]
		var needed [][]kb.Condition
		var preparers []*kb.Action
		for _, a := range m.Transitional() {
			for i, e := range a.Effects {
				if e.Var != variable {
					continue
				}
				value, ok := t.dt.values[effectRef{action: a.ID, effect: i}]
				if ok && kb.Admits(c, value) {
					needed = append(needed, kb.Flatten(a.Precondition))
					preparers = append(preparers, a)
					break
				}
			}
		}
		t.preparations[c.String()] = preparation{common: commonConditions(needed), preparers: preparers}
	}
	log.Debug().Int("conditions", len(t.preparations)).Msg("transitive preparation table built")
}

// commonConditions returns the conditions of the first list contained in
// all other lists.
func commonConditions(lists [][]kb.Condition) []kb.Condition {
	if len(lists) == 0 {
		return nil
	}
	var out []kb.Condition
next:
	for _, c := range lists[0] {
		key := c.String()
		for _, other := range lists[1:] {
			if !containsCondition(other, key) {
				continue next
			}
		}
		out = append(out, c)
	}
	return out
}

func containsCondition(list []kb.Condition, key string) bool {
	for _, c := range list {
		if c.String() == key {
			return true
		}
	}
	return false
}

// Distance implements Heuristic.
func (t *Transitive) Distance(m *Model, p PathID, s *kb.State, c kb.Condition) (float64, error) {
	if c == nil {
		return t.dt.Distance(m, p, s, c)
	}
	extended := kb.And{Terms: kb.Flatten(t.Condition(s, c))}
	estimate, err := t.dt.estimate(s, extended)
	if err != nil {
		return 0, err
	}
	return estimate + t.dt.correction(m.Ledger, p), nil
}

// Preparers returns the actions able to establish the primitive condition c.
func (t *Transitive) Preparers(c kb.Condition) []*kb.Action {
	return t.preparations[c.String()].preparers
}

// Condition returns the transitive condition of precondition in s.
func (t *Transitive) Condition(s kb.Reader, precondition kb.Condition) kb.Condition {
	if precondition == nil {
		return kb.And{}
	}
	x := &expansion{t: t, s: s}
	return x.run(precondition)
}

// condSet is an insertion ordered set of conditions.
type condSet struct {
	list []kb.Condition
	keys map[string]struct{}
}

func newCondSet() *condSet {
	return &condSet{keys: make(map[string]struct{})}
}

func (c *condSet) add(conds ...kb.Condition) {
	for _, cond := range conds {
		key := cond.String()
		if _, ok := c.keys[key]; ok {
			continue
		}
		c.keys[key] = struct{}{}
		c.list = append(c.list, cond)
	}
}

func (c *condSet) has(cond kb.Condition) bool {
	_, ok := c.keys[cond.String()]
	return ok
}

func (c *condSet) empty() bool { return len(c.list) == 0 }

// expansion holds the working state of one transitive condition.
type expansion struct {
	t *Transitive
	s kb.Reader

	fulfilled   map[string]kb.Condition
	unfulfilled map[string]kb.Condition
}

func (x *expansion) covered(c kb.Condition) kb.Coverage {
	return x.t.k.Covered(c)
}

func (x *expansion) run(precondition kb.Condition) kb.Condition {
	x.fulfilled = make(map[string]kb.Condition)
	x.unfulfilled = make(map[string]kb.Condition)

	forbidden := x.covered(precondition)
	var examine []kb.Condition
	for _, c := range kb.Primitive(precondition) {
		holds := c.Holds(x.s)
		if vars := c.Variables(); len(vars) == 1 {
			if holds {
				x.fulfilled[vars[0]] = c
			} else {
				x.unfulfilled[vars[0]] = c
			}
		}
		if !holds {
			examine = append(examine, c)
		}
	}

	preparing := x.preparing(forbidden, examine)
	if preparing.empty() {
		return precondition
	}

	use := []kb.Condition{precondition}
	conflictingFulfilled := newCondSet()
	conflictingUnfulfilled := newCondSet()
	use = x.addNotConflicting(preparing.list, use, x.fulfilled, conflictingFulfilled, x.unfulfilled, conflictingUnfulfilled)
	condition := kb.And{Terms: use}

	// a fulfilled condition of the precondition conflicting with an added one will be
	// destroyed on the way, so its preparation is needed again
	if !conflictingFulfilled.empty() {
		again := x.preparing(x.covered(condition), conflictingFulfilled.list)
		use = x.addNotConflicting(again.list, use, nil, nil, x.unfulfilled, conflictingUnfulfilled)
		condition = kb.And{Terms: use}
	}

	// if an unfulfilled condition of the precondition conflicts with an added one,
	// fulfilled facts preparing it can be added as well
	if !conflictingUnfulfilled.empty() {
		coverage := x.covered(condition)
		for _, conflicting := range conflictingUnfulfilled.list {
			prep, ok := x.t.preparations[conflicting.String()]
			if !ok {
				continue
			}
			variable := conflicting.Variables()[0]
			for _, candidate := range prep.common {
				vars := candidate.Variables()
				if len(vars) != 1 || !candidate.Holds(x.s) {
					continue
				}
				candidateVar := vars[0]
				if candidateVar != variable && x.unfulfilled[candidateVar] != nil {
					continue
				}
				values := coverage[candidateVar]
				if values != nil && !values.Disjoint(x.covered(candidate)[candidateVar]) {
					continue
				}
				use = append(use, candidate)
				condition = kb.And{Terms: use}
				coverage = x.covered(condition)
				if candidateVar != variable {
					continue
				}
				// follow the preparations of the same variable as long as
				// they require values not covered yet
				found := []kb.Condition{candidate}
				for len(found) > 0 {
					next := found[0]
					found = found[1:]
					rp, ok := x.t.preparations[next.String()]
					if !ok {
						continue
					}
					for _, recursive := range rp.common {
						rvars := recursive.Variables()
						if len(rvars) != 1 || rvars[0] != variable {
							continue
						}
						if !coverage[variable].Disjoint(x.covered(recursive)[variable]) {
							continue
						}
						use = append(use, recursive)
						condition = kb.And{Terms: use}
						coverage = x.covered(condition)
						found = append(found, recursive)
					}
				}
			}
		}
	}
	return condition
}

// preparing collects the unfulfilled common preconditions of the actions
// establishing examine, and transitively of those.
func (x *expansion) preparing(forbidden kb.Coverage, examine []kb.Condition) *condSet {
	out := newCondSet()
	examined := newCondSet()
	for len(examine) > 0 {
		pairs := x.pairs(examine, forbidden)
		for _, p := range pairs {
			out.add(p...)
		}
		examine = nil
		for _, p := range pairs {
			for _, c := range p {
				if !kb.IsPrimitive(c) || examined.has(c) {
					continue
				}
				examined.add(c)
				examine = append(examine, c)
			}
		}
	}
	return out
}

// pairs returns, per condition, the unfulfilled common preconditions of its
// preparers that do not require a forbidden value.
func (x *expansion) pairs(conds []kb.Condition, forbidden kb.Coverage) [][]kb.Condition {
	var out [][]kb.Condition
	for _, c := range conds {
		prep, ok := x.t.preparations[c.String()]
		if !ok {
			continue
		}
		var checked []kb.Condition
		for _, pre := range prep.common {
			if pre.Holds(x.s) {
				continue
			}
			if eq, ok := pre.(kb.Equal); ok {
				if !forbidden[eq.Var].Has(eq.Value) {
					checked = append(checked, eq)
				}
				continue
			}
			conflicting := false
			for variable, values := range x.covered(pre) {
				if f := forbidden[variable]; f != nil && !f.Disjoint(values) {
					conflicting = true
					break
				}
			}
			if !conflicting {
				checked = append(checked, pre)
			}
		}
		if len(checked) > 0 {
			out = append(out, checked)
		}
	}
	return out
}

// addNotConflicting appends the unfulfilled conditions to use. Equalities
// are always added. Other conditions are only added if their values are
// disjoint from all other candidates, and a candidate overlapping with a
// skipped one is skipped as well.
func (x *expansion) addNotConflicting(conditions, use []kb.Condition,
	fulfilled map[string]kb.Condition, conflictingFulfilled *condSet,
	unfulfilled map[string]kb.Condition, conflictingUnfulfilled *condSet,
) []kb.Condition {
	mark := func(variable string) {
		if fulfilled != nil {
			if c := fulfilled[variable]; c != nil {
				conflictingFulfilled.add(c)
			}
		}
		if unfulfilled != nil {
			if c := unfulfilled[variable]; c != nil {
				conflictingUnfulfilled.add(c)
			}
		}
	}

	present := newCondSet()
	for _, u := range use {
		present.add(kb.Flatten(u)...)
	}

	var others []kb.Condition
	for _, c := range conditions {
		if c.Holds(x.s) || present.has(c) {
			continue
		}
		if eq, ok := c.(kb.Equal); ok {
			use = append(use, eq)
			present.add(eq)
			mark(eq.Var)
			continue
		}
		others = append(others, c)
	}

	blacklist := newCondSet()
next:
	for _, c := range others {
		if blacklist.has(c) {
			continue
		}
		coverage := x.covered(c)
		key := c.String()
		for _, variable := range c.Variables() {
			values := coverage[variable]
			for _, ref := range conditions {
				if ref.String() == key {
					continue
				}
				refValues := x.covered(ref)[variable]
				if refValues != nil && !values.Disjoint(refValues) {
					blacklist.add(ref)
					continue next
				}
			}
		}
		use = append(use, c)
		present.add(c)
		if vars := c.Variables(); len(vars) == 1 {
			mark(vars[0])
		}
	}
	return use
}
