package metric

// Table associates metric sets with nodes by persistent id. The retain
// flag of an id is ignored so marking a node for tracing keeps its metrics.
// A table has a single writer, the thread that samples into its tree.
type Table struct {
	sets map[int32]*Set
}

func NewTable() *Table {
	return &Table{sets: make(map[int32]*Set)}
}

func key(id int32) int32 {
	return id &^ 1
}

// Get returns the metric set of node id, or nil.
func (t *Table) Get(id int32) *Set {
	return t.sets[key(id)]
}

// Reify returns the metric set of node id, creating an empty one first if
// needed.
func (t *Table) Reify(id int32) *Set {
	k := key(id)
	s, ok := t.sets[k]
	if !ok {
		s = &Set{}
		t.sets[k] = s
	}
	return s
}

// DenseCopy fills dst with the values of node id.
func (t *Table) DenseCopy(id int32, dst []Value) {
	t.Get(id).DenseCopy(dst)
}

// Len returns the number of nodes with a metric set.
func (t *Table) Len() int {
	return len(t.sets)
}

// Totals sums every set of the table into a dense vector, using r to tell
// integer metrics from real ones.
func (t *Table) Totals(r *Registry) []Value {
	total := &Set{}
	for _, s := range t.sets {
		total.Merge(s, r)
	}
	out := make([]Value, r.Len())
	total.DenseCopy(out)
	return out
}
