package search

import (
	"strings"
	"sync"

	"github.com/metalagman/costplan/internal/kb"
)

// PathID addresses a path in a Ledger.
type PathID int32

// EmptyPath is the path without actions every ledger starts with.
const EmptyPath PathID = 0

type pathRecord struct {
	pred     PathID
	action   *kb.Action
	costs    float64
	negative float64
	depth    int
}

// Ledger is an append-only arena of backward linked paths. Records never
// change once appended, so a PathID identifies an immutable action sequence.
type Ledger struct {
	mu      sync.RWMutex
	records []pathRecord
}

// NewLedger returns a ledger holding only the empty path.
func NewLedger() *Ledger {
	return &Ledger{records: []pathRecord{{pred: EmptyPath}}}
}

// Append extends pred by action a with step costs and returns the new path.
func (l *Ledger) Append(pred PathID, a *kb.Action, costs float64) PathID {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.records[pred]
	rec := pathRecord{
		pred:     pred,
		action:   a,
		costs:    prev.costs + costs,
		negative: prev.negative,
		depth:    prev.depth + 1,
	}
	if a.Negative() {
		rec.negative += a.Cost
	}
	l.records = append(l.records, rec)
	return PathID(len(l.records) - 1)
}

func (l *Ledger) record(p PathID) pathRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.records[p]
}

// Len returns the number of recorded paths, the empty path included.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Costs returns the accumulated costs of p.
func (l *Ledger) Costs(p PathID) float64 { return l.record(p).costs }

// NegativeCosts sums the declared costs of the informative actions on p.
func (l *Ledger) NegativeCosts(p PathID) float64 { return l.record(p).negative }

// Depth returns the number of actions on p.
func (l *Ledger) Depth(p PathID) int { return l.record(p).depth }

// Last returns the action that produced p, nil for the empty path.
func (l *Ledger) Last(p PathID) *kb.Action { return l.record(p).action }

// Predecessor returns the path p extends.
func (l *Ledger) Predecessor(p PathID) (PathID, bool) {
	if p == EmptyPath {
		return EmptyPath, false
	}
	return l.record(p).pred, true
}

// Contains reports whether a is on p.
func (l *Ledger) Contains(p PathID, a *kb.Action) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for p != EmptyPath {
		rec := l.records[p]
		if rec.action == a {
			return true
		}
		p = rec.pred
	}
	return false
}

// ContainsAll reports whether every action of actions is on p.
func (l *Ledger) ContainsAll(p PathID, actions []*kb.Action) bool {
	missing := make(map[*kb.Action]struct{}, len(actions))
	for _, a := range actions {
		missing[a] = struct{}{}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for p != EmptyPath && len(missing) > 0 {
		rec := l.records[p]
		delete(missing, rec.action)
		p = rec.pred
	}
	return len(missing) == 0
}

// Actions returns the actions of p in execution order.
func (l *Ledger) Actions(p PathID) []*kb.Action {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*kb.Action, l.records[p].depth)
	for i := len(out) - 1; i >= 0; i-- {
		rec := l.records[p]
		out[i] = rec.action
		p = rec.pred
	}
	return out
}

// IDs returns the action ids of p in execution order.
func (l *Ledger) IDs(p PathID) []string {
	actions := l.Actions(p)
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.ID
	}
	return out
}

// Format renders p as "[a, b]".
func (l *Ledger) Format(p PathID) string {
	return "[" + strings.Join(l.IDs(p), ", ") + "]"
}
