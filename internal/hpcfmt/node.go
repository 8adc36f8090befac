package hpcfmt

import "github.com/hpcprof/cct/internal/metric"

// NodeRecord is the on-disk form of one tree node. A negative ID marks a
// node written without children; ParentID 0 marks a root.
type NodeRecord struct {
	ID         int32
	ParentID   uint32
	Assoc      uint32
	LoadModule uint16
	Offset     uint64
	LIP        [2]uint64
	Metrics    []metric.Value
}

// IsLeaf reports whether the record was written without children.
func (r *NodeRecord) IsLeaf() bool {
	return r.ID < 0
}

// NodeID returns the persistent id with the leaf sign removed.
func (r *NodeRecord) NodeID() int32 {
	if r.ID < 0 {
		return -r.ID
	}
	return r.ID
}

// WriteNodeCount writes the 8-byte count that opens a cct section.
func WriteNodeCount(e *Encoder, n uint64) error {
	e.Uint64(n)
	return e.Err()
}

func ReadNodeCount(d *Decoder) (uint64, error) {
	n := d.Uint64()
	return n, sectionErr(SectionCCT, d.Err())
}

// WriteNode writes r. The logical unwind fields are present only when
// flags has FlagLogicalUnwind.
func WriteNode(e *Encoder, r *NodeRecord, flags EpochFlags) error {
	e.Int32(r.ID)
	e.Uint32(r.ParentID)
	if flags.IsLogicalUnwind() {
		e.Uint32(r.Assoc)
	}
	e.Uint16(r.LoadModule)
	e.Uint64(r.Offset)
	if flags.IsLogicalUnwind() {
		e.Uint64(r.LIP[0])
		e.Uint64(r.LIP[1])
	}
	for _, v := range r.Metrics {
		e.Uint64(uint64(v))
	}
	return e.Err()
}

// ReadNode reads a record with numMetrics metric slots into r, reusing
// r.Metrics when it is large enough.
func ReadNode(d *Decoder, r *NodeRecord, numMetrics int, flags EpochFlags) error {
	r.ID = d.Int32()
	r.ParentID = d.Uint32()
	r.Assoc = 0
	if flags.IsLogicalUnwind() {
		r.Assoc = d.Uint32()
	}
	r.LoadModule = d.Uint16()
	r.Offset = d.Uint64()
	r.LIP = [2]uint64{}
	if flags.IsLogicalUnwind() {
		r.LIP[0] = d.Uint64()
		r.LIP[1] = d.Uint64()
	}
	if cap(r.Metrics) < numMetrics {
		r.Metrics = make([]metric.Value, numMetrics)
	}
	r.Metrics = r.Metrics[:numMetrics]
	for i := range r.Metrics {
		r.Metrics[i] = metric.Value(d.Uint64())
	}
	return sectionErr(SectionCCT, d.Err())
}
