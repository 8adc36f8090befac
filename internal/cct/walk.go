package cct

// Op is called for every visited node. level grows by one from a node to
// its children (or, for WalkPath, from a node to its parent).
type Op func(n *Node, level int)

// WalkChildFirst visits every node below and including n, each node after
// all of its children. n is visited at level.
func WalkChildFirst(n *Node, op Op, level int) {
	if n == nil {
		return
	}
	n.children.each(func(c *Node) {
		WalkChildFirst(c, op, level+1)
	})
	op(n, level)
}

// WalkNodeFirst visits every node below and including n, each node before
// any of its children. n is visited at level.
func WalkNodeFirst(n *Node, op Op, level int) {
	if n == nil {
		return
	}
	op(n, level)
	n.children.each(func(c *Node) {
		WalkNodeFirst(c, op, level+1)
	})
}

// WalkPath visits the call path ending at n from the root down to n. n is
// visited at level 0 and its root at the path depth.
func WalkPath(n *Node, op Op) {
	walkPath(n, op, 0)
}

func walkPath(n *Node, op Op, level int) {
	if n == nil {
		return
	}
	walkPath(n.parent, op, level+1)
	op(n, level)
}

// WalkSet visits the direct children of n, all at level 0.
func WalkSet(n *Node, op Op) {
	if n == nil {
		return
	}
	n.children.each(func(c *Node) { op(c, 0) })
}

// NumNodes counts n and all of its descendants.
func NumNodes(n *Node) int {
	count := 0
	WalkChildFirst(n, func(*Node, int) { count++ }, 0)
	return count
}

// Path returns the addresses on the call path ending at n, root first.
func Path(n *Node) []Addr {
	var out []Addr
	WalkPath(n, func(p *Node, _ int) { out = append(out, p.addr) })
	return out
}
