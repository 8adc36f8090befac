package cct

type (
	// Tree creates and links the nodes of one thread's calling context
	// trees. Nodes come from the tree's arena; ids come from a generator
	// shared by every tree of the process.
	Tree struct {
		arena *Arena
		ids   *IDGenerator
	}

	// MergeFunc combines the data of src into dst when both end a path.
	MergeFunc func(dst, src *Node)
)

// NewTree returns a tree allocating from arena with ids from ids.
func NewTree(arena *Arena, ids *IDGenerator) *Tree {
	return &Tree{arena: arena, ids: ids}
}

func (t *Tree) Arena() *Arena {
	return t.arena
}

func (t *Tree) newNode(addr Addr, parent *Node) (*Node, error) {
	n, err := t.arena.alloc()
	if err != nil {
		return nil, err
	}
	n.addr = addr
	n.parent = parent
	n.id = t.ids.Next()
	return n, nil
}

// NewRoot creates a parentless node with addr.
func (t *Tree) NewRoot(addr Addr) (*Node, error) {
	return t.newNode(addr, nil)
}

// InsertChild returns the child of n with addr, creating it if needed.
// Inserting an address already present returns the existing node.
func (t *Tree) InsertChild(n *Node, addr Addr) (*Node, error) {
	if n == nil {
		panic("cct: InsertChild on a nil node")
	}
	child, _, err := n.children.findOrInsert(addr, func() (*Node, error) {
		return t.newNode(addr, n)
	})
	return child, err
}

// InsertSubtree links src, with all of its descendants, as a child of
// target and returns src. No child of target may share src's address;
// builds with the cctdebug tag panic when one does.
func InsertSubtree(target, src *Node) *Node {
	if target == nil {
		panic("cct: InsertSubtree on a nil target")
	}
	src.parent = target
	target.children.graft(src)
	return src
}

// FindChild returns the child of n with addr, or nil. It reshapes the
// child set but never allocates.
func FindChild(n *Node, addr Addr) *Node {
	if n == nil {
		return nil
	}
	return n.children.find(addr)
}

// DeleteChild unlinks the child of n with addr and returns it. The removed
// subtree keeps its memory until the arena is released.
func DeleteChild(n *Node, addr Addr) *Node {
	if n == nil {
		return nil
	}
	return n.children.remove(addr)
}

// Detach removes n from its parent's child set.
func Detach(n *Node) {
	if n.parent == nil {
		return
	}
	DeleteChild(n.parent, n.addr)
	n.parent = nil
}

// InsertPath copies the call path ending at path below dst and returns the
// node matching path's end. The root of path is not copied.
func (t *Tree) InsertPath(dst, path *Node) (*Node, error) {
	if path == nil || path.parent == nil {
		return dst, nil
	}
	leaf, err := t.InsertPath(dst, path.parent)
	if err != nil {
		return nil, err
	}
	return t.InsertChild(leaf, path.addr)
}

// Merge adds every path of b to a. Nodes on common paths are matched by
// address; when both a node and its match end a path, fn merges them.
// Nodes of b not present in a are moved, not copied.
func Merge(a, b *Node, fn MergeFunc) {
	if fn != nil && a.IsTerminal() && b.IsTerminal() {
		fn(a, b)
	}
	if a.children.empty() {
		a.children = b.children
		b.children = childSet{}
		a.children.each(func(c *Node) { c.parent = a })
		return
	}
	moved := b.children
	b.children = childSet{}
	moved.each(func(c *Node) {
		if match := FindChild(a, c.addr); match != nil {
			Merge(match, c, fn)
			return
		}
		InsertSubtree(a, c)
	})
}
