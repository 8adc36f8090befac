package cct

import "sync/atomic"

const (
	// RetainIDFlag marks a persistent id referenced by a trace record.
	RetainIDFlag int32 = 0x1

	// DefaultFirstID is the first id handed out by a fresh generator.
	DefaultFirstID int32 = 2
)

// IDGenerator hands out persistent node ids. It is safe for concurrent use
// and never blocks: every call is a single atomic add.
type IDGenerator struct {
	next atomic.Int32
}

// NewIDGenerator returns a generator whose first id is start, rounded up to
// the next even number.
func NewIDGenerator(start int32) *IDGenerator {
	if start&RetainIDFlag != 0 {
		start++
	}
	g := &IDGenerator{}
	g.next.Store(start - 2)
	return g
}

// Next returns an even id never returned before by this generator.
func (g *IDGenerator) Next() int32 {
	return g.next.Add(2)
}

// IsRetained reports whether the retain flag is set on id.
func IsRetained(id int32) bool {
	return id&RetainIDFlag != 0
}

// BaseID strips the retain flag from id.
func BaseID(id int32) int32 {
	return id &^ RetainIDFlag
}
