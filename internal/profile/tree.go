package profile

import (
	"github.com/hpcprof/cct/internal/cct"
	"github.com/hpcprof/cct/internal/metric"
)

type (
	// Node is a node of a tree read back from a profile.
	Node struct {
		ID       int32
		Addr     cct.Addr
		Leaf     bool
		Metrics  []metric.Value
		Parent   *Node
		Children []*Node
	}

	// Tree is a cct section read back from a profile. Roots and children
	// keep the order of the records.
	Tree struct {
		Roots []*Node

		byID map[int32]*Node
	}
)

// Path returns the addresses from the root down to n.
func (n *Node) Path() []cct.Addr {
	var depth int
	for p := n; p != nil; p = p.Parent {
		depth++
	}
	path := make([]cct.Addr, depth)
	for p := n; p != nil; p = p.Parent {
		depth--
		path[depth] = p.Addr
	}
	return path
}

// Walk visits n and its descendants, each node before its children.
func (n *Node) Walk(fn func(n *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.byID)
}

// Node returns the node with persistent id, or nil.
func (t *Tree) Node(id int32) *Node {
	return t.byID[id]
}

// Walk visits every node, root by root.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	for _, r := range t.Roots {
		r.Walk(fn)
	}
}

// Leaves returns the number of nodes written without children.
func (t *Tree) Leaves() int {
	var count int
	for _, n := range t.byID {
		if n.Leaf {
			count++
		}
	}
	return count
}

// Totals sums each metric column over all nodes, as integers or floats
// depending on the column kind.
func (t *Tree) Totals(descs []metric.Descriptor) []metric.Value {
	totals := make([]metric.Value, len(descs))
	for _, n := range t.byID {
		for i, v := range n.Metrics {
			if i >= len(descs) {
				break
			}
			if descs[i].Kind == metric.KindReal {
				totals[i] = metric.RealValue(totals[i].Real() + v.Real())
			} else {
				totals[i] += v
			}
		}
	}
	return totals
}
