package cct

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrArenaExhausted is returned when an arena has no room left for a node.
var ErrArenaExhausted = errors.New("cct: arena exhausted")

const DefaultSlabSize = 4096

type (
	// ArenaOptions configures an Arena.
	ArenaOptions struct {
		// SlabSize is the number of nodes per slab.
		SlabSize int
		// MaxNodes bounds the number of nodes the arena hands out. Zero
		// means no bound.
		MaxNodes int
		// Reserve is the number of slabs allocated up front.
		Reserve int
		// Freeable returns the slabs to a reuse pool on Release.
		Freeable bool
	}

	// Arena hands out zeroed nodes from fixed-size slabs. Nodes are never
	// freed one by one: the whole arena goes away with Release. An arena
	// has a single writer; the counters may be read from any goroutine.
	Arena struct {
		opts     ArenaOptions
		slabs    [][]Node
		cur      int
		next     int
		released bool

		allocated atomic.Int64
	}
)

var slabPool sync.Map // slab size -> *sync.Pool

func poolFor(size int) *sync.Pool {
	p, _ := slabPool.LoadOrStore(size, &sync.Pool{
		New: func() interface{} {
			s := make([]Node, size)
			return &s
		},
	})
	return p.(*sync.Pool)
}

// NewArena returns an arena with opts.Reserve slabs already in place.
func NewArena(opts ArenaOptions) *Arena {
	if opts.SlabSize <= 0 {
		opts.SlabSize = DefaultSlabSize
	}
	a := &Arena{opts: opts}
	for i := 0; i < opts.Reserve; i++ {
		a.slabs = append(a.slabs, a.newSlab())
	}
	return a
}

func (a *Arena) newSlab() []Node {
	if a.opts.Freeable {
		return *poolFor(a.opts.SlabSize).Get().(*[]Node)
	}
	return make([]Node, a.opts.SlabSize)
}

// alloc returns a zeroed node.
func (a *Arena) alloc() (*Node, error) {
	if a.released {
		panic("cct: allocation from a released arena")
	}
	if a.opts.MaxNodes > 0 && a.allocated.Load() >= int64(a.opts.MaxNodes) {
		return nil, ErrArenaExhausted
	}
	if a.cur >= len(a.slabs) {
		a.slabs = append(a.slabs, a.newSlab())
	}
	slab := a.slabs[a.cur]
	n := &slab[a.next]
	a.next++
	if a.next == len(slab) {
		a.cur++
		a.next = 0
	}
	a.allocated.Add(1)
	return n, nil
}

// Allocated returns the number of nodes handed out so far.
func (a *Arena) Allocated() int64 {
	return a.allocated.Load()
}

// Freeable reports whether the arena recycles its slabs.
func (a *Arena) Freeable() bool {
	return a.opts.Freeable
}

// Release discards every node of the arena. Nodes obtained from it must not
// be used afterwards.
func (a *Arena) Release() {
	if a.released {
		return
	}
	a.released = true
	if a.opts.Freeable {
		p := poolFor(a.opts.SlabSize)
		for _, s := range a.slabs {
			s := s
			for i := range s {
				s[i] = Node{}
			}
			p.Put(&s)
		}
	}
	a.slabs = nil
}
