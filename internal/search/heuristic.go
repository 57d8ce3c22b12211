package search

import (
	"fmt"

	"github.com/metalagman/costplan/internal/kb"
	"github.com/rs/zerolog/log"
)

// Kind selects a heuristic.
type Kind string

const (
	KindSwitching  Kind = "switching"
	KindTransitive Kind = "transitive"
	KindDivided    Kind = "divided"
)

// ParseKind validates a heuristic name. The empty string selects switching.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindSwitching:
		return KindSwitching, nil
	case KindTransitive, KindDivided:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown heuristic %q", s)
}

// Heuristic estimates the remaining costs to establish a condition.
// Implementations must not overestimate for the search to stay optimal.
// Distance is called concurrently during parallel expansion.
type Heuristic interface {
	// Init prepares the heuristic for a search on m.
	Init(m *Model) error
	// Distance estimates the costs to make c hold, starting in s after p.
	Distance(m *Model, p PathID, s *kb.State, c kb.Condition) (float64, error)
}

// Switching uses the transitive estimator for few targets and the divided
// one otherwise.
type Switching struct {
	Threshold  int
	Divided    *Divided
	Transitive *Transitive

	active Heuristic
}

// NewSwitching returns a switching heuristic with fresh estimators.
func NewSwitching(threshold int) *Switching {
	return &Switching{Threshold: threshold, Divided: NewDivided(), Transitive: NewTransitive()}
}

// Init implements Heuristic.
func (h *Switching) Init(m *Model) error {
	if len(m.Tracker.Active()) <= h.Threshold {
		h.active = h.Transitive
	} else {
		h.active = h.Divided
	}
	log.Debug().
		Int("targets", len(m.Tracker.Active())).
		Int("threshold", h.Threshold).
		Str("heuristic", fmt.Sprint(h.active)).
		Msg("heuristic selected")
	return h.active.Init(m)
}

// Distance implements Heuristic.
func (h *Switching) Distance(m *Model, p PathID, s *kb.State, c kb.Condition) (float64, error) {
	return h.active.Distance(m, p, s, c)
}

// Active returns the estimator chosen by the last Init.
func (h *Switching) Active() Heuristic { return h.active }

func (h *Switching) String() string {
	if h.active == nil {
		return string(KindSwitching)
	}
	return string(KindSwitching) + "/" + fmt.Sprint(h.active)
}

func heuristicName(h Heuristic) string {
	if s, ok := h.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", h)
}
