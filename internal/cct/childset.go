package cct

// childSet is the set of children of one node, kept as a splay tree keyed
// by address. root is always the current splay root; every operation that
// splays stores the new root back, found or not.
type childSet struct {
	root *Node
}

func (s *childSet) empty() bool {
	return s.root == nil
}

// splay performs a top-down splay of the set at key. Afterwards the root
// holds key if present, otherwise a neighbour of key.
func (s *childSet) splay(key Addr) {
	t := s.root
	if t == nil {
		return
	}
	var header Node
	l, r := &header, &header
	for {
		c := key.Compare(t.addr)
		if c < 0 {
			if t.left == nil {
				break
			}
			if key.Compare(t.left.addr) < 0 {
				// rotate right
				y := t.left
				t.left = y.right
				y.right = t
				t = y
				if t.left == nil {
					break
				}
			}
			// link right
			r.left = t
			r = t
			t = t.left
		} else if c > 0 {
			if t.right == nil {
				break
			}
			if key.Compare(t.right.addr) > 0 {
				// rotate left
				y := t.right
				t.right = y.left
				y.left = t
				t = y
				if t.right == nil {
					break
				}
			}
			// link left
			l.right = t
			l = t
			t = t.right
		} else {
			break
		}
	}
	l.right = t.left
	r.left = t.right
	t.left = header.right
	t.right = header.left
	s.root = t
}

// find splays at key and returns the matching child, if any.
func (s *childSet) find(key Addr) *Node {
	s.splay(key)
	if s.root != nil && s.root.addr.Equal(key) {
		return s.root
	}
	return nil
}

// findOrInsert returns the child with key, creating it with alloc when
// absent. inserted reports whether alloc was used.
func (s *childSet) findOrInsert(key Addr, alloc func() (*Node, error)) (n *Node, inserted bool, err error) {
	if found := s.find(key); found != nil {
		return found, false, nil
	}
	n, err = alloc()
	if err != nil {
		return nil, false, err
	}
	s.link(n)
	return n, true, nil
}

// graft links n, with its whole subtree, into the set. The caller
// guarantees no child with n's address exists.
func (s *childSet) graft(n *Node) {
	s.splay(n.addr)
	assertf(s.root == nil || !s.root.addr.Equal(n.addr),
		"cct: grafted node %v collides with an existing child", n.addr)
	s.link(n)
}

// link makes n the new root, splitting the freshly splayed tree around it.
func (s *childSet) link(n *Node) {
	old := s.root
	s.root = n
	n.left, n.right = nil, nil
	if old == nil {
		return
	}
	if n.addr.Less(old.addr) {
		n.left = old.left
		n.right = old
		old.left = nil
	} else {
		n.left = old
		n.right = old.right
		old.right = nil
	}
}

// remove unlinks and returns the child with key, if any.
func (s *childSet) remove(key Addr) *Node {
	found := s.find(key)
	if found == nil {
		return nil
	}
	if found.left == nil {
		s.root = found.right
	} else {
		rest := childSet{root: found.left}
		rest.splay(key)
		rest.root.right = found.right
		s.root = rest.root
	}
	found.left, found.right = nil, nil
	return found
}

// each visits every child, left subtree then right subtree then the
// sibling itself. The order carries no meaning.
func (s *childSet) each(fn func(*Node)) {
	eachLRS(s.root, fn)
}

func eachLRS(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	eachLRS(n.left, fn)
	eachLRS(n.right, fn)
	fn(n)
}

// inorder visits children in increasing address order.
func (s *childSet) inorder(fn func(*Node)) {
	eachInorder(s.root, fn)
}

func eachInorder(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	eachInorder(n.left, fn)
	fn(n)
	eachInorder(n.right, fn)
}
