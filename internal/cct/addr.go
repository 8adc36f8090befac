package cct

import "fmt"

type (
	// Logical carries the logical unwind association and logical
	// instruction pointer recorded by language-level unwinders.
	Logical struct {
		Assoc uint32
		LIP   [2]uint64
	}

	// Addr identifies a node among its siblings: a normalized instruction
	// pointer plus an optional logical augmentation.
	Addr struct {
		LoadModule uint16
		Offset     uint64
		HasLogical bool
		Logical    Logical
	}
)

var (
	// RootAddr is the address of the primary synthetic root.
	RootAddr = Addr{}
	// PartialRootAddr is the address of the root collecting partial unwinds.
	PartialRootAddr = Addr{Offset: 1}
)

// NewAddr returns a non-logical address.
func NewAddr(lm uint16, offset uint64) Addr {
	return Addr{LoadModule: lm, Offset: offset}
}

// WithLogical returns a copy of a augmented with logical unwind information.
func (a Addr) WithLogical(l Logical) Addr {
	a.HasLogical = true
	a.Logical = l
	return a
}

// Compare returns -1, 0 or 1 depending on whether a sorts before, equal to
// or after b.
func (a Addr) Compare(b Addr) int {
	switch {
	case a.LoadModule < b.LoadModule:
		return -1
	case a.LoadModule > b.LoadModule:
		return 1
	case a.Offset < b.Offset:
		return -1
	case a.Offset > b.Offset:
		return 1
	}
	if a.HasLogical != b.HasLogical {
		if !a.HasLogical {
			return -1
		}
		return 1
	}
	if !a.HasLogical {
		return 0
	}
	return a.Logical.compare(b.Logical)
}

func (l Logical) compare(o Logical) int {
	switch {
	case l.Assoc < o.Assoc:
		return -1
	case l.Assoc > o.Assoc:
		return 1
	}
	for i := range l.LIP {
		switch {
		case l.LIP[i] < o.LIP[i]:
			return -1
		case l.LIP[i] > o.LIP[i]:
			return 1
		}
	}
	return 0
}

func (a Addr) Less(b Addr) bool {
	return a.Compare(b) < 0
}

func (a Addr) Equal(b Addr) bool {
	return a.Compare(b) == 0
}

func (a Addr) String() string {
	if a.HasLogical {
		return fmt.Sprintf("(%d, 0x%x, as=0x%x, lip=[0x%x 0x%x])",
			a.LoadModule, a.Offset, a.Logical.Assoc, a.Logical.LIP[0], a.Logical.LIP[1])
	}
	return fmt.Sprintf("(%d, 0x%x)", a.LoadModule, a.Offset)
}
