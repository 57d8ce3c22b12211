package kb

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

// Document is the YAML representation of a knowledge base, a start state and
// the goals to plan for.
type Document struct {
	Variables  []VariableDoc  `yaml:"variables"`
	Actions    []ActionDoc    `yaml:"actions"`
	Targets    []TargetDoc    `yaml:"targets,omitempty"`
	State      StateDoc       `yaml:"state,omitempty"`
	Surcharges []SurchargeDoc `yaml:"surcharges,omitempty"`
}

// VariableDoc describes a variable.
type VariableDoc struct {
	ID      string  `yaml:"id"`
	Choices []Value `yaml:"choices"`
	Initial Value   `yaml:"initial,omitempty"`
	Normal  Value   `yaml:"normal,omitempty"`
}

// ActionDoc describes an action.
type ActionDoc struct {
	ID           string        `yaml:"id"`
	Cost         float64       `yaml:"cost"`
	Precondition *ConditionDoc `yaml:"precondition,omitempty"`
	Exclusion    *ConditionDoc `yaml:"exclusion,omitempty"`
	Observes     []string      `yaml:"observes,omitempty"`
	TargetOnly   bool          `yaml:"target_only,omitempty"`
	Effects      []EffectDoc   `yaml:"effects,omitempty"`
}

// EffectDoc describes a conditional assignment.
type EffectDoc struct {
	Var string      `yaml:"var"`
	Set []SetterDoc `yaml:"set"`
}

// SetterDoc is one guarded value of an effect.
type SetterDoc struct {
	Value Value         `yaml:"value"`
	When  *ConditionDoc `yaml:"when,omitempty"`
}

// TargetDoc describes a goal: all actions have to be part of the plan.
type TargetDoc struct {
	ID      string   `yaml:"id"`
	Actions []string `yaml:"actions"`
	Benefit float64  `yaml:"benefit"`
}

// StateDoc overrides the initial state.
type StateDoc struct {
	Values   map[string]Value `yaml:"values,omitempty"`
	Excluded []string         `yaml:"excluded,omitempty"`
	Final    []string         `yaml:"final,omitempty"`
}

// SurchargeDoc adds state dependent costs.
type SurchargeDoc struct {
	Action string        `yaml:"action,omitempty"`
	When   *ConditionDoc `yaml:"when,omitempty"`
	Extra  float64       `yaml:"extra"`
}

// ConditionDoc is a condition node. Exactly one form is set.
type ConditionDoc struct {
	Var string         `yaml:"var,omitempty"`
	Eq  *Value         `yaml:"eq,omitempty"`
	Neq *Value         `yaml:"neq,omitempty"`
	In  []Value        `yaml:"in,omitempty"`
	All []ConditionDoc `yaml:"all,omitempty"`
	Any []ConditionDoc `yaml:"any,omitempty"`
	Not *ConditionDoc  `yaml:"not,omitempty"`
}

// Bundle is a loaded document ready for planning.
type Bundle struct {
	KB      *KnowledgeBase
	State   *State
	Costs   CostFunction
	Targets []TargetDoc
}

// Load reads and parses a knowledge base document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the document schema and decodes it.
func Parse(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("parse knowledge base: empty document")
	}
	if err := ValidateDocument(raw); err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	return &doc, nil
}

// ValidateDocument validates a raw document against the JSON schema.
func ValidateDocument(raw map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewGoLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate knowledge base schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)

	return fmt.Errorf("knowledge base schema validation failed: %s", strings.Join(errs, "; "))
}

// Build converts the document into a validated bundle.
func (d *Document) Build() (*Bundle, error) {
	variables := make([]*Variable, 0, len(d.Variables))
	for _, v := range d.Variables {
		variables = append(variables, &Variable{
			ID:      v.ID,
			Choices: v.Choices,
			Initial: v.Initial,
			Normal:  v.Normal,
		})
	}

	actions := make([]*Action, 0, len(d.Actions))
	for _, a := range d.Actions {
		action := &Action{
			ID:         a.ID,
			Cost:       a.Cost,
			Observes:   a.Observes,
			TargetOnly: a.TargetOnly,
		}
		var err error
		if action.Precondition, err = a.Precondition.condition(); err != nil {
			return nil, fmt.Errorf("action %q precondition: %w", a.ID, err)
		}
		if action.Exclusion, err = a.Exclusion.condition(); err != nil {
			return nil, fmt.Errorf("action %q exclusion: %w", a.ID, err)
		}
		for _, e := range a.Effects {
			effect := Effect{Var: e.Var}
			for _, s := range e.Set {
				when, err := s.When.condition()
				if err != nil {
					return nil, fmt.Errorf("action %q effect on %q: %w", a.ID, e.Var, err)
				}
				effect.Setters = append(effect.Setters, Setter{When: when, Value: s.Value})
			}
			action.Effects = append(action.Effects, effect)
		}
		actions = append(actions, action)
	}

	k, err := New(variables, actions)
	if err != nil {
		return nil, err
	}

	state := k.InitialState()
	var problems []string
	for _, id := range sortedKeys(d.State.Values) {
		v, ok := k.Variable(id)
		value := d.State.Values[id]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("state sets unknown variable %q", id))
		case value != Undefined && !v.HasChoice(value):
			problems = append(problems, fmt.Sprintf("state sets %q to unknown value %q", id, value))
		default:
			state.Set(id, value)
		}
	}
	for _, id := range d.State.Excluded {
		if _, ok := k.Action(id); !ok {
			problems = append(problems, fmt.Sprintf("state excludes unknown action %q", id))
			continue
		}
		state.Exclude(id)
	}
	for _, id := range d.State.Final {
		if _, ok := k.Variable(id); !ok {
			problems = append(problems, fmt.Sprintf("state finalizes unknown variable %q", id))
			continue
		}
		state.Finalize(id)
	}

	seenTargets := make(map[string]struct{}, len(d.Targets))
	for _, t := range d.Targets {
		if _, ok := seenTargets[t.ID]; ok {
			problems = append(problems, fmt.Sprintf("duplicate target %q", t.ID))
		}
		seenTargets[t.ID] = struct{}{}
		for _, id := range t.Actions {
			if _, ok := k.Action(id); !ok {
				problems = append(problems, fmt.Sprintf("target %q requires unknown action %q", t.ID, id))
			}
		}
	}

	var costs CostFunction = StaticCosts{}
	if len(d.Surcharges) > 0 {
		conditional := ConditionalCosts{}
		for _, s := range d.Surcharges {
			when, err := s.When.condition()
			if err != nil {
				return nil, fmt.Errorf("surcharge: %w", err)
			}
			if s.Action != "" {
				if _, ok := k.Action(s.Action); !ok {
					problems = append(problems, fmt.Sprintf("surcharge for unknown action %q", s.Action))
				}
			}
			if when != nil {
				for _, problem := range k.conditionProblems(when) {
					problems = append(problems, "surcharge: "+problem)
				}
			}
			conditional.Surcharges = append(conditional.Surcharges, Surcharge{Action: s.Action, When: when, Extra: s.Extra})
		}
		costs = conditional
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return &Bundle{KB: k, State: state, Costs: costs, Targets: d.Targets}, nil
}

func (c *ConditionDoc) condition() (Condition, error) {
	if c == nil {
		return nil, nil
	}
	switch {
	case c.Eq != nil:
		return Eq(c.Var, *c.Eq), nil
	case c.Neq != nil:
		return Neq(c.Var, *c.Neq), nil
	case len(c.In) > 0:
		return AnyOf(c.Var, c.In...), nil
	case c.Not != nil:
		term, err := c.Not.condition()
		if err != nil {
			return nil, err
		}
		return Not{Term: term}, nil
	case c.Any != nil:
		terms, err := conditions(c.Any)
		if err != nil {
			return nil, err
		}
		return Or{Terms: terms}, nil
	case c.All != nil:
		terms, err := conditions(c.All)
		if err != nil {
			return nil, err
		}
		return And{Terms: terms}, nil
	}
	return nil, fmt.Errorf("empty condition")
}

func conditions(docs []ConditionDoc) ([]Condition, error) {
	out := make([]Condition, 0, len(docs))
	for i := range docs {
		c, err := docs[i].condition()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
