package cct

import "errors"

// ErrContextUsed is returned when a creation context seeds a second thread.
var ErrContextUsed = errors.New("cct: creation context already used")

type (
	// CreationContext is a private copy of the call path that created a
	// thread. It seeds exactly one new thread's tree.
	CreationContext struct {
		tree *Tree
		head *Node
		leaf *Node
		used bool
	}

	// Bundle groups the trees of one thread: the main tree under Top, whose
	// samples are inserted at ThreadRoot, and a separate root for samples
	// whose unwind did not reach the thread entry.
	Bundle struct {
		Top         *Node
		ThreadRoot  *Node
		PartialRoot *Node

		tree      *Tree
		ctx       *CreationContext
		finalized bool
	}
)

// CaptureContext copies the call path ending at leaf into a new arena so it
// can outlive further mutation of the creator's tree. The thread and partial
// unwind roots on the path are skipped. A nil or root-only path yields a nil
// context.
func CaptureContext(ids *IDGenerator, leaf *Node, opts ArenaOptions) (*CreationContext, error) {
	var path []Addr
	WalkPath(leaf, func(n *Node, _ int) {
		if n.addr != RootAddr && n.addr != PartialRootAddr {
			path = append(path, n.addr)
		}
	})
	if len(path) == 0 {
		return nil, nil
	}
	t := NewTree(NewArena(opts), ids)
	head, err := t.NewRoot(path[0])
	if err != nil {
		return nil, err
	}
	cursor := head
	for _, addr := range path[1:] {
		cursor, err = t.InsertChild(cursor, addr)
		if err != nil {
			t.arena.Release()
			return nil, err
		}
	}
	return &CreationContext{tree: t, head: head, leaf: cursor}, nil
}

// Leaf returns the node at the end of the captured path.
func (c *CreationContext) Leaf() *Node {
	return c.leaf
}

// NewBundle creates the roots of a thread's trees. A non-nil ctx is grafted
// below Top and its leaf becomes the thread root.
func NewBundle(t *Tree, ctx *CreationContext) (*Bundle, error) {
	top, err := t.NewRoot(RootAddr)
	if err != nil {
		return nil, err
	}
	partial, err := t.NewRoot(PartialRootAddr)
	if err != nil {
		return nil, err
	}
	b := &Bundle{
		Top:         top,
		ThreadRoot:  top,
		PartialRoot: partial,
		tree:        t,
	}
	if ctx != nil {
		if ctx.used {
			return nil, ErrContextUsed
		}
		ctx.used = true
		InsertSubtree(top, ctx.head)
		b.ThreadRoot = ctx.leaf
		b.ctx = ctx
	}
	return b, nil
}

func (b *Bundle) Tree() *Tree {
	return b.tree
}

// Record inserts one unwound sample and returns its terminal node. Partial
// unwinds go below PartialRoot, the others below ThreadRoot.
func (b *Bundle) Record(frames []Frame, partial, retainRecursion bool) (*Node, error) {
	cursor := b.ThreadRoot
	if partial {
		cursor = b.PartialRoot
	}
	return b.tree.InsertBacktrace(cursor, frames, retainRecursion)
}

// Finalize moves a non-empty partial unwind tree below Top and returns Top,
// the root to write. It is merged into a partial root already below Top.
// Later calls only return Top.
func (b *Bundle) Finalize() *Node {
	if !b.finalized && b.PartialRoot.HasChildren() {
		if existing := FindChild(b.Top, PartialRootAddr); existing != nil {
			Merge(existing, b.PartialRoot, nil)
		} else {
			InsertSubtree(b.Top, b.PartialRoot)
		}
	}
	b.finalized = true
	return b.Top
}

// NumNodes counts the nodes that Finalize would write, plus the partial
// unwind tree if it has not been moved yet.
func (b *Bundle) NumNodes() int {
	n := NumNodes(b.Top)
	if !b.finalized && b.PartialRoot.HasChildren() {
		n += NumNodes(b.PartialRoot)
	}
	return n
}

// Release frees the thread's arena and the creation context's arena.
func (b *Bundle) Release() {
	b.tree.arena.Release()
	if b.ctx != nil {
		b.ctx.tree.arena.Release()
	}
}
