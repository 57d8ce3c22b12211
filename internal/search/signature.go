package search

import (
	"slices"
	"strings"
	"sync"

	"github.com/metalagman/costplan/internal/kb"
)

// Signature is the deduplication key of a world state: the canonical
// encoding of every used variable whose value differs from the root state.
type Signature string

// signer tracks the used variables of one search. A variable becomes used
// the first time an action changes it. Every other variable still holds its
// root value in all states, so omitting unchanged variables keeps older
// signatures valid while the used set grows.
type signer struct {
	root *kb.State

	mu   sync.RWMutex
	used []string
	seen map[string]struct{}
}

func newSigner(root *kb.State) *signer {
	return &signer{root: root, seen: make(map[string]struct{})}
}

func (g *signer) touch(variables []string) {
	if len(variables) == 0 {
		return
	}
	g.mu.RLock()
	fresh := false
	for _, v := range variables {
		if _, ok := g.seen[v]; !ok {
			fresh = true
			break
		}
	}
	g.mu.RUnlock()
	if !fresh {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, v := range variables {
		if _, ok := g.seen[v]; ok {
			continue
		}
		g.seen[v] = struct{}{}
		idx, _ := slices.BinarySearch(g.used, v)
		g.used = slices.Insert(g.used, idx, v)
	}
}

func (g *signer) sign(s *kb.State) Signature {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var b strings.Builder
	for _, v := range g.used {
		value := s.Value(v)
		if value == g.root.Value(v) {
			continue
		}
		b.WriteString(v)
		b.WriteByte(0)
		b.WriteString(string(value))
		b.WriteByte(0x1e)
	}
	return Signature(b.String())
}

// Used returns the used variables in sorted order.
func (g *signer) Used() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.used)
}
