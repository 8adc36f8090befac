package cct

// Node is one call site in a calling context tree. The path from a node up
// to its root is the call path it represents.
type Node struct {
	id       int32
	addr     Addr
	terminal bool

	parent   *Node
	children childSet

	// sibling links, owned by the parent's childSet
	left, right *Node
}

// ID returns the persistent id, including the retain flag if set.
func (n *Node) ID() int32 {
	if n == nil {
		return -1
	}
	return n.id
}

func (n *Node) Addr() Addr {
	return n.addr
}

func (n *Node) Parent() *Node {
	if n == nil {
		return nil
	}
	return n.parent
}

func (n *Node) IsRoot() bool {
	return n.parent == nil
}

// HasChildren reports whether n has at least one child. A node without
// children is written as a leaf.
func (n *Node) HasChildren() bool {
	return n != nil && !n.children.empty()
}

// NumChildren returns the number of direct children of n.
func (n *Node) NumChildren() int {
	c := 0
	n.children.each(func(*Node) { c++ })
	return c
}

// Children returns the direct children of n ordered by address.
func (n *Node) Children() []*Node {
	var out []*Node
	n.children.inorder(func(c *Node) { out = append(out, c) })
	return out
}

// Terminate marks n as the last node of a recorded call path. A terminal
// node may still have children when one path is a prefix of another.
func (n *Node) Terminate() {
	n.terminal = true
}

// IsTerminal reports whether a path ends at n or n has no children.
func (n *Node) IsTerminal() bool {
	return n != nil && (n.terminal || n.children.empty())
}

// MarkRetained flags n's id as referenced by a trace record. The flag is
// never cleared.
func (n *Node) MarkRetained() {
	n.id |= RetainIDFlag
}

// Depth returns the number of parent links between n and its root.
func (n *Node) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Root returns the root of the tree containing n.
func (n *Node) Root() *Node {
	for n.parent != nil {
		n = n.parent
	}
	return n
}
