package metric

import "sort"

type (
	entry struct {
		id    int
		value Value
	}

	// Set holds the metric values of one node. Only metrics that were
	// written are stored, sorted by metric id.
	Set struct {
		entries []entry
	}
)

func (s *Set) search(id int) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].id >= id
	})
}

// Get returns the value of metric id, zero if never written.
func (s *Set) Get(id int) Value {
	if s == nil {
		return 0
	}
	i := s.search(id)
	if i < len(s.entries) && s.entries[i].id == id {
		return s.entries[i].value
	}
	return 0
}

// Set stores v as the value of metric id.
func (s *Set) Set(id int, v Value) {
	i := s.search(id)
	if i < len(s.entries) && s.entries[i].id == id {
		s.entries[i].value = v
		return
	}
	s.entries = append(s.entries, entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = entry{id: id, value: v}
}

// AddInt adds d to the integer metric id.
func (s *Set) AddInt(id int, d uint64) {
	s.Set(id, IntValue(s.Get(id).Int()+d))
}

// AddReal adds d to the real metric id.
func (s *Set) AddReal(id int, d float64) {
	s.Set(id, RealValue(s.Get(id).Real()+d))
}

// Len returns the number of stored metrics.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Each calls fn for every stored metric in id order.
func (s *Set) Each(fn func(id int, v Value)) {
	if s == nil {
		return
	}
	for _, e := range s.entries {
		fn(e.id, e.value)
	}
}

// DenseCopy writes the values of metrics 0..len(dst)-1 into dst, zero for
// metrics never written.
func (s *Set) DenseCopy(dst []Value) {
	for i := range dst {
		dst[i] = 0
	}
	if s == nil {
		return
	}
	for _, e := range s.entries {
		if e.id < len(dst) {
			dst[e.id] = e.value
		}
	}
}

// Merge adds every metric of o into s according to the kinds in r.
func (s *Set) Merge(o *Set, r *Registry) {
	o.Each(func(id int, v Value) {
		if r.Kind(id) == KindReal {
			s.AddReal(id, v.Real())
			return
		}
		s.AddInt(id, v.Int())
	})
}
