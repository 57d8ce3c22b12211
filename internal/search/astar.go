package search

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/metalagman/costplan/internal/kb"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// closedImprovedTolerance ignores rounding noise when a closed node is
// reached more cheaply.
const closedImprovedTolerance = 1e-5

// Warning kinds.
const (
	WarningClosedImproved = "closed-improved"
	WarningNotMonotone    = "not-monotone"
)

// ConsistencyWarning reports evidence that the heuristic was not consistent
// for the knowledge base. The search continues, but the plan may be
// suboptimal.
type ConsistencyWarning struct {
	Kind   string
	Path   string
	Action string
	F      float64
	Bound  float64
}

func (w ConsistencyWarning) String() string {
	switch w.Kind {
	case WarningClosedImproved:
		return fmt.Sprintf("closed node reached more cheaply by %s (f %.4g, new f %.4g)", w.Path, w.F, w.Bound)
	default:
		return fmt.Sprintf("f-value %.4g of %s exceeds cost/benefit %.4g of the plan", w.F, w.Path, w.Bound)
	}
}

type hkey struct {
	path   PathID
	action string
}

// successor is a node built by expansion but not yet installed.
type successor struct {
	sig   Signature
	state *kb.State
	path  PathID
	f     float64
}

// origin is the part of a node an expansion reads. It is copied before
// workers start, since installation may improve the node concurrently.
type origin struct {
	sig   Signature
	state *kb.State
	path  PathID
}

// AStar is one search over a model. After the search it answers
// explanation queries.
type AStar struct {
	model          *Model
	heuristic      Heuristic
	abort          Abort
	workers        int
	pruneThreshold int

	signer     *signer
	successors []*kb.Action

	hmu    sync.RWMutex
	hcache map[hkey]float64

	mu        sync.Mutex
	table     map[Signature]*Node
	open      frontier
	seq       uint64
	generated int
	warnings  []ConsistencyWarning

	start    *Node
	closed   []*Node
	steps    int
	aborted  bool
	initTime time.Duration
}

func newAStar(m *Model, h Heuristic, opts Options) *AStar {
	a := &AStar{
		model:          m,
		heuristic:      h,
		abort:          opts.Abort,
		workers:        max(opts.Workers, 1),
		pruneThreshold: opts.PruneThreshold,
		signer:         newSigner(m.Root),
		hcache:         make(map[hkey]float64),
		table:          make(map[Signature]*Node),
	}
	if a.abort == nil {
		a.abort = NoAbort{}
	}

	wanted := make(map[*kb.Action]struct{})
	for _, act := range m.Transitional() {
		wanted[act] = struct{}{}
	}
	for _, t := range m.Tracker.Active() {
		for _, act := range t.Actions {
			wanted[act] = struct{}{}
		}
	}
	for _, act := range m.KB.Actions() {
		if _, ok := wanted[act]; ok {
			a.successors = append(a.successors, act)
		}
	}

	// actions without precondition never serve as intermediate steps of a
	// plan reaching them, so they are checked as targets right away
	for _, act := range m.KB.Actions() {
		if act.Precondition != nil || act.Excluded(m.Root) {
			continue
		}
		p := m.Ledger.Append(EmptyPath, act, m.Costs.Costs(act, m.Root))
		m.Tracker.Update(m.Ledger, p)
	}
	return a
}

func (a *AStar) search(ctx context.Context) error {
	started := time.Now()
	if err := a.heuristic.Init(a.model); err != nil {
		return fmt.Errorf("init heuristic: %w", err)
	}
	f, err := a.fValue(EmptyPath, a.model.Root)
	if err != nil {
		return err
	}
	a.start = newNode("", a.model.Root, EmptyPath, 0, f)
	a.table[a.start.Signature] = a.start
	a.open.push(a.start)

	if len(a.model.Tracker.Active()) <= a.pruneThreshold {
		if err := a.pruneUnreachable(); err != nil {
			return err
		}
	}
	a.initTime = time.Since(started)

	a.abort.Start()
	for a.open.Len() > 0 {
		node := a.open.pop()
		if math.IsInf(node.f, 1) {
			log.Info().Msg("all targets are unreachable")
			a.open.push(node)
			break
		}
		if best := a.model.Tracker.Best(); best != nil && best.CostBenefit() <= node.f {
			a.checkPathFValues(best)
			a.open.push(node)
			break
		}

		if err := a.expand(ctx, node); err != nil {
			return err
		}
		node.closed = true
		a.closed = append(a.closed, node)
		a.steps++

		progress := Progress{Steps: a.steps, Found: a.model.Tracker.Best() != nil}
		if a.abort.Next(progress) || ctx.Err() != nil {
			a.aborted = true
			break
		}
	}
	return nil
}

// pruneUnreachable drops targets with an action whose precondition cannot
// be established from the start.
func (a *AStar) pruneUnreachable() error {
	removed := make(map[*kb.Action]struct{})
	dropped := 0
	for _, t := range a.model.Tracker.Active() {
		for _, act := range t.Actions {
			d, err := a.distance(EmptyPath, a.model.Root, act)
			if err != nil {
				return err
			}
			if !math.IsInf(d, 1) {
				continue
			}
			log.Debug().Str("target", t.ID).Str("action", act.ID).Msg("target is unreachable")
			a.model.Tracker.drop(t)
			removed[act] = struct{}{}
			dropped++
			break
		}
	}
	if len(removed) == 0 {
		return nil
	}
	kept := a.successors[:0]
	for _, act := range a.successors {
		if _, ok := removed[act]; !ok {
			kept = append(kept, act)
		}
	}
	a.successors = kept
	prunedTargets.Add(float64(dropped))
	return nil
}

func (a *AStar) expand(ctx context.Context, node *Node) error {
	from := origin{sig: node.Signature, state: node.State, path: node.path}
	if a.workers > 1 {
		return a.expandParallel(ctx, from)
	}
	for _, act := range a.successors {
		if !a.canApply(from, act) {
			continue
		}
		succ, err := a.apply(from, act)
		if err != nil {
			return err
		}
		a.install(succ)
	}
	return nil
}

func (a *AStar) expandParallel(ctx context.Context, from origin) error {
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(a.workers)
	for _, act := range a.successors {
		if !a.canApply(from, act) {
			continue
		}
		g.Go(func() (err error) {
			if gctx.Err() != nil {
				return nil
			}
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: action %s: %v", ErrExpansion, act.ID, r)
				}
			}()
			succ, err := a.apply(from, act)
			if err != nil {
				return fmt.Errorf("%w: action %s: %w", ErrExpansion, act.ID, err)
			}
			a.install(succ)
			return nil
		})
	}
	return g.Wait()
}

func (a *AStar) canApply(from origin, act *kb.Action) bool {
	l := a.model.Ledger
	if l.Last(from.path) == act {
		return false
	}
	if act.Negative() && l.Contains(from.path, act) {
		return false
	}
	if act.Excluded(from.state) {
		return false
	}
	return act.Applicable(from.state)
}

func (a *AStar) apply(from origin, act *kb.Action) (*successor, error) {
	s := from.state.Clone()
	costs := a.model.Costs.Costs(act, s)
	observed := a.model.KB.Observe(act, s)
	changed := act.Apply(s)
	p := a.model.Ledger.Append(from.path, act, costs)

	sig := from.sig
	if len(observed) > 0 || len(changed) > 0 {
		a.signer.touch(observed)
		a.signer.touch(changed)
		sig = a.signer.sign(s)
	}
	f, err := a.fValue(p, s)
	if err != nil {
		return nil, err
	}
	return &successor{sig: sig, state: s, path: p, f: f}, nil
}

func (a *AStar) install(succ *successor) {
	l := a.model.Ledger
	a.model.Tracker.Update(l, succ.path)
	last := l.Last(succ.path)
	if last.TargetOnly {
		return
	}
	costs := l.Costs(succ.path)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.generated++
	existing, ok := a.table[succ.sig]
	if !ok {
		n := newNode(succ.sig, succ.state, succ.path, costs, succ.f)
		a.seq++
		n.seq = a.seq
		a.table[succ.sig] = n
		a.open.push(n)
		return
	}
	if existing.costs <= costs {
		return
	}
	if !existing.Open() && existing.costs-costs > closedImprovedTolerance {
		a.warn(ConsistencyWarning{
			Kind:   WarningClosedImproved,
			Path:   l.Format(succ.path),
			Action: last.ID,
			F:      existing.f,
			Bound:  succ.f,
		})
	}
	existing.path = succ.path
	existing.costs = costs
	existing.f = succ.f
	existing.State = succ.state
	if existing.Open() {
		a.open.fix(existing)
	}
}

// warn records w. Callers hold a.mu or run on the search goroutine.
func (a *AStar) warn(w ConsistencyWarning) {
	a.warnings = append(a.warnings, w)
	consistencyWarnings.Inc()
	log.Warn().
		Str("kind", w.Kind).
		Str("path", w.Path).
		Str("action", w.Action).
		Float64("f", w.F).
		Float64("bound", w.Bound).
		Msg("heuristic is not consistent")
}

// checkPathFValues warns about nodes on the winning path whose f-value
// exceeds the realized cost/benefit.
func (a *AStar) checkPathFValues(t *Target) {
	p, ok := t.MinPath()
	if !ok {
		return
	}
	bound := t.CostBenefit()
	byPath := make(map[PathID]*Node, len(a.table))
	for _, n := range a.table {
		byPath[n.path] = n
	}
	l := a.model.Ledger
	for pre := p; ; {
		if n, ok := byPath[pre]; ok && n.f > bound+1e-9 && n.f*0.999 > bound {
			action := ""
			if last := l.Last(pre); last != nil {
				action = last.ID
			}
			a.warn(ConsistencyWarning{
				Kind:   WarningNotMonotone,
				Path:   l.Format(pre),
				Action: action,
				F:      n.f,
				Bound:  bound,
			})
		}
		next, ok := l.Predecessor(pre)
		if !ok {
			return
		}
		pre = next
	}
}

// fValue is the lowest cost/benefit bound over all active targets for a
// path p ending in s.
func (a *AStar) fValue(p PathID, s *kb.State) (float64, error) {
	l := a.model.Ledger
	g := l.Costs(p)
	pred, hasPred := l.Predecessor(p)
	predCosts := l.Costs(pred)

	minimum := math.Inf(1)
targets:
	for _, t := range a.model.Tracker.Active() {
		if g/t.Benefit >= minimum {
			continue
		}
		targetCosts := math.Inf(-1)
		for _, act := range t.Actions {
			costs := g + a.model.Costs.Costs(act, s)
			if costs/t.Benefit >= minimum {
				continue targets
			}
			if hasPred {
				if h, ok := a.cached(pred, act); ok && (h+predCosts)/t.Benefit >= minimum {
					continue targets
				}
			}
			d, err := a.distance(p, s, act)
			if err != nil {
				return 0, err
			}
			targetCosts = math.Max(targetCosts, costs+d)
		}
		minimum = math.Min(minimum, targetCosts/t.Benefit)
	}
	return minimum, nil
}

// distance estimates the costs to make the precondition of act hold and
// caches the result for p.
func (a *AStar) distance(p PathID, s *kb.State, act *kb.Action) (float64, error) {
	d := 0.0
	if act.Precondition != nil {
		var err error
		d, err = a.heuristic.Distance(a.model, p, s, act.Precondition)
		if err != nil {
			return 0, err
		}
	}
	a.hmu.Lock()
	a.hcache[hkey{path: p, action: act.ID}] = d
	a.hmu.Unlock()
	return d, nil
}

func (a *AStar) cached(p PathID, act *kb.Action) (float64, bool) {
	a.hmu.RLock()
	defer a.hmu.RUnlock()
	d, ok := a.hcache[hkey{path: p, action: act.ID}]
	return d, ok
}
