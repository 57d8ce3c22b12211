package search

import (
	"container/heap"

	"github.com/metalagman/costplan/internal/kb"
)

// Node is the single search node of a signature. Its path, costs, f-value
// and state only change when a strictly cheaper path is installed.
type Node struct {
	Signature Signature
	State     *kb.State

	path  PathID
	costs float64
	f     float64

	seq    uint64
	index  int
	closed bool
}

func newNode(sig Signature, s *kb.State, p PathID, costs, f float64) *Node {
	return &Node{Signature: sig, State: s, path: p, costs: costs, f: f, index: -1}
}

// Path returns the current best path to the node.
func (n *Node) Path() PathID { return n.path }

// Costs returns the accumulated costs of the current path.
func (n *Node) Costs() float64 { return n.costs }

// F returns the f-value: a lower bound of the cost/benefit of any target
// reached through this node.
func (n *Node) F() float64 { return n.f }

// Open reports whether the node waits in the frontier.
func (n *Node) Open() bool { return n.index >= 0 }

// Closed reports whether the node was expanded.
func (n *Node) Closed() bool { return n.closed }

// frontier is a min-heap on f. Ties prefer the node with the larger costs,
// then the earlier inserted one.
type frontier []*Node

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	a, b := f[i], f[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.costs != b.costs {
		return a.costs > b.costs
	}
	return a.seq < b.seq
}

func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index = i
	f[j].index = j
}

func (f *frontier) Push(x any) {
	n := x.(*Node)
	n.index = len(*f)
	*f = append(*f, n)
}

func (f *frontier) Pop() any {
	old := *f
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.index = -1
	*f = old[:len(old)-1]
	return n
}

func (f *frontier) push(n *Node) { heap.Push(f, n) }

func (f *frontier) pop() *Node { return heap.Pop(f).(*Node) }

func (f *frontier) fix(n *Node) { heap.Fix(f, n.index) }

func (f frontier) peek() *Node {
	if len(f) == 0 {
		return nil
	}
	return f[0]
}
