package kb

// ValueSet is a set of values of one variable.
type ValueSet map[Value]struct{}

// Has reports membership.
func (s ValueSet) Has(v Value) bool {
	_, ok := s[v]
	return ok
}

// Disjoint reports whether s and other share no value.
func (s ValueSet) Disjoint(other ValueSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for v := range small {
		if large.Has(v) {
			return false
		}
	}
	return true
}

// Coverage maps variables to the values a condition may require of them.
type Coverage map[string]ValueSet

func (c Coverage) add(variable string, values ...Value) {
	set, ok := c[variable]
	if !ok {
		set = make(ValueSet)
		c[variable] = set
	}
	for _, v := range values {
		set[v] = struct{}{}
	}
}

// Covered collects the values c refers to per variable. A negated equality
// covers all other choices of its variable; any other negation covers all
// choices of the variables involved.
func (k *KnowledgeBase) Covered(c Condition) Coverage {
	out := make(Coverage)
	k.cover(c, out)
	return out
}

func (k *KnowledgeBase) cover(c Condition, out Coverage) {
	switch t := c.(type) {
	case Equal:
		out.add(t.Var, t.Value)
	case Not:
		if eq, ok := t.Term.(Equal); ok {
			out.add(eq.Var, k.otherChoices(eq.Var, eq.Value)...)
			return
		}
		k.coverAll(c, out)
	case Or:
		for _, term := range t.Terms {
			k.cover(term, out)
		}
	case And:
		for _, term := range t.Terms {
			k.cover(term, out)
		}
	default:
		k.coverAll(c, out)
	}
}

func (k *KnowledgeBase) coverAll(c Condition, out Coverage) {
	for _, id := range c.Variables() {
		if v, ok := k.byVar[id]; ok {
			out.add(id, v.Choices...)
		}
	}
}

func (k *KnowledgeBase) otherChoices(variable string, excluded Value) []Value {
	v, ok := k.byVar[variable]
	if !ok {
		return nil
	}
	out := make([]Value, 0, len(v.Choices))
	for _, choice := range v.Choices {
		if choice != excluded {
			out = append(out, choice)
		}
	}
	return out
}

// RequiredValues returns the values of variable that help to fulfill c.
// Negations require every other choice.
func (k *KnowledgeBase) RequiredValues(variable string, c Condition) ValueSet {
	out := make(ValueSet)
	switch t := c.(type) {
	case Equal:
		if t.Var == variable {
			out[t.Value] = struct{}{}
		}
	case Not:
		if eq, ok := t.Term.(Equal); ok && eq.Var == variable {
			for _, v := range k.otherChoices(variable, eq.Value) {
				out[v] = struct{}{}
			}
		}
	case Or:
		for _, term := range t.Terms {
			for v := range k.RequiredValues(variable, term) {
				out[v] = struct{}{}
			}
		}
	case And:
		for _, term := range t.Terms {
			for v := range k.RequiredValues(variable, term) {
				out[v] = struct{}{}
			}
		}
	}
	return out
}

// Admits reports whether assigning v to the variable of the primitive
// condition c makes c hold.
func Admits(c Condition, v Value) bool {
	switch t := c.(type) {
	case Equal:
		return t.Value == v
	case Or:
		for _, term := range t.Terms {
			if eq, ok := term.(Equal); ok && eq.Value == v {
				return true
			}
		}
	case Not:
		if eq, ok := t.Term.(Equal); ok {
			return v != Undefined && eq.Value != v
		}
	}
	return false
}
