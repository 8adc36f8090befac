package metric

import (
	"errors"
	"fmt"
	"sync"
)

// ErrRegistryFrozen is returned when registering after the metric table was
// written out.
var ErrRegistryFrozen = errors.New("metric: registry is frozen")

type (
	// Descriptor describes one metric column of a profile.
	Descriptor struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Kind        Kind   `json:"kind"`
		Period      uint64 `json:"period"`
		Flags       uint64 `json:"flags,omitempty"`
	}

	// Registry assigns dense ids to metrics. It is shared by all threads of
	// a session; registration stops once a profile has been written.
	Registry struct {
		mu     sync.RWMutex
		descs  []Descriptor
		byName map[string]int
		frozen bool
	}
)

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds d and returns its id. Registering an existing name returns
// the id it already has.
func (r *Registry) Register(d Descriptor) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byName[d.Name]; ok {
		if r.descs[id].Kind != d.Kind {
			return 0, fmt.Errorf("metric: %q already registered as %s", d.Name, r.descs[id].Kind)
		}
		return id, nil
	}
	if r.frozen {
		return 0, ErrRegistryFrozen
	}
	if d.Period == 0 {
		d.Period = 1
	}
	id := len(r.descs)
	r.descs = append(r.descs, d)
	r.byName[d.Name] = id
	return id, nil
}

// Freeze stops further registration and returns the descriptors.
func (r *Registry) Freeze() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	return append([]Descriptor(nil), r.descs...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descs)
}

func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Descriptor(nil), r.descs...)
}

// Lookup returns the id of the metric called name.
func (r *Registry) Lookup(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	return id, ok
}

// Kind returns the kind of metric id, KindInt for unknown ids.
func (r *Registry) Kind(id int) Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || id >= len(r.descs) {
		return KindInt
	}
	return r.descs[id].Kind
}

// Update accumulates v into metric id of s according to the metric's kind.
func (r *Registry) Update(s *Set, id int, v Value) {
	if r.Kind(id) == KindReal {
		s.AddReal(id, v.Real())
		return
	}
	s.AddInt(id, v.Int())
}
