package hpcfmt

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrLoadMapFull is returned once every 16-bit module id is taken.
var ErrLoadMapFull = errors.New("hpcfmt: load map full")

// LoadMap assigns stable ids to load module names. Ids start at 1; 0 is
// reserved for the tree roots.
type LoadMap struct {
	mu      sync.Mutex
	ids     map[string]uint16
	modules []LoadModule
}

func NewLoadMap() *LoadMap {
	return &LoadMap{ids: make(map[string]uint16)}
}

// ID returns the id of the module called name, adding it on first use.
func (m *LoadMap) ID(name string) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[name]; ok {
		return id, nil
	}
	if len(m.modules) >= math.MaxUint16 {
		return 0, fmt.Errorf("%w: %q", ErrLoadMapFull, name)
	}
	id := uint16(len(m.modules) + 1)
	m.ids[name] = id
	m.modules = append(m.modules, LoadModule{ID: id, Name: name})
	return id, nil
}

// Modules returns a copy of the map in id order.
func (m *LoadMap) Modules() []LoadModule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LoadModule(nil), m.modules...)
}

func (m *LoadMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.modules)
}
