package profile

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/hpcprof/cct/internal/cct"
	"github.com/hpcprof/cct/internal/errorutil"
	"github.com/hpcprof/cct/internal/hpcfmt"
	"github.com/hpcprof/cct/internal/metric"
)

// maxPrealloc caps the map size hint taken from an untrusted node count.
const maxPrealloc = 1 << 16

type (
	// LoadedEpoch is one epoch read back from a profile.
	LoadedEpoch struct {
		Header  hpcfmt.EpochHeader
		Metrics []metric.Descriptor
		Modules []hpcfmt.LoadModule
		Tree    *Tree
	}

	// Profile is a whole profile file read back into memory.
	Profile struct {
		Name   string
		Header hpcfmt.Header
		Epochs []*LoadedEpoch
	}
)

// ReadTree reads a cct section written by WriteTree. It buffers r, so r is
// consumed past the end of the section.
func ReadTree(r io.Reader, numMetrics int, flags hpcfmt.EpochFlags) (*Tree, error) {
	return readTree(hpcfmt.NewDecoder(bufio.NewReader(r)), numMetrics, flags)
}

func readTree(d *hpcfmt.Decoder, numMetrics int, flags hpcfmt.EpochFlags) (*Tree, error) {
	count, err := hpcfmt.ReadNodeCount(d)
	if err != nil {
		return nil, err
	}
	hint := count
	if hint > maxPrealloc {
		hint = maxPrealloc
	}
	t := &Tree{byID: make(map[int32]*Node, hint)}
	var rec hpcfmt.NodeRecord
	for i := uint64(0); i < count; i++ {
		if err := hpcfmt.ReadNode(d, &rec, numMetrics, flags); err != nil {
			return nil, err
		}
		if err := t.add(&rec, flags); err != nil {
			return nil, &hpcfmt.SectionError{Section: hpcfmt.SectionCCT, Err: err}
		}
	}
	return t, nil
}

func (t *Tree) add(rec *hpcfmt.NodeRecord, flags hpcfmt.EpochFlags) error {
	id := rec.NodeID()
	if _, ok := t.byID[id]; ok {
		return fmt.Errorf("%w: duplicate node id %d", errorutil.ErrDataIntegrity, id)
	}
	n := &Node{
		ID:      id,
		Addr:    cct.NewAddr(rec.LoadModule, rec.Offset),
		Leaf:    rec.IsLeaf(),
		Metrics: append([]metric.Value(nil), rec.Metrics...),
	}
	// Zero logical fields read back as a plain address.
	if flags.IsLogicalUnwind() && (rec.Assoc != 0 || rec.LIP != [2]uint64{}) {
		n.Addr = n.Addr.WithLogical(cct.Logical{Assoc: rec.Assoc, LIP: rec.LIP})
	}
	if rec.ParentID == 0 {
		t.Roots = append(t.Roots, n)
	} else {
		parent, ok := t.byID[int32(rec.ParentID)]
		if !ok {
			return fmt.Errorf("%w: node %d read before its parent %d", errorutil.ErrDataIntegrity, id, rec.ParentID)
		}
		if parent.Leaf {
			return fmt.Errorf("%w: leaf node %d has child %d", errorutil.ErrDataIntegrity, parent.ID, id)
		}
		n.Parent = parent
		parent.Children = append(parent.Children, n)
	}
	t.byID[id] = n
	return nil
}

// Load reads a whole profile file. Errors name the file and, for decoding
// failures, the section being read.
func Load(r io.Reader, name string) (*Profile, error) {
	br := bufio.NewReader(r)
	d := hpcfmt.NewDecoder(br)
	p := &Profile{Name: name}
	var err error
	p.Header, err = hpcfmt.ReadHeader(d)
	if err != nil {
		return nil, fmt.Errorf("profile: %s: %w", name, err)
	}
	for {
		if _, err := br.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("profile: %s: %w", name, err)
		}
		ep, err := readEpoch(d)
		if err != nil {
			return nil, fmt.Errorf("profile: %s: epoch %d: %w", name, len(p.Epochs), err)
		}
		p.Epochs = append(p.Epochs, ep)
	}
	return p, nil
}

func readEpoch(d *hpcfmt.Decoder) (*LoadedEpoch, error) {
	var (
		ep  LoadedEpoch
		err error
	)
	if ep.Header, err = hpcfmt.ReadEpochHeader(d); err != nil {
		return nil, err
	}
	if ep.Metrics, err = hpcfmt.ReadMetricTable(d); err != nil {
		return nil, err
	}
	if ep.Modules, err = hpcfmt.ReadLoadmap(d); err != nil {
		return nil, err
	}
	if ep.Tree, err = readTree(d, len(ep.Metrics), ep.Header.Flags); err != nil {
		return nil, err
	}
	return &ep, nil
}

// Module returns the name of load module id, or "" when the load map of the
// epoch has no such module.
func (ep *LoadedEpoch) Module(id uint16) string {
	for _, lm := range ep.Modules {
		if lm.ID == id {
			return lm.Name
		}
	}
	return ""
}

// FrameName returns a readable name for a: the synthetic roots get fixed
// names, other addresses read module+0xoffset, or the bare module name at
// offset 0.
func (ep *LoadedEpoch) FrameName(a cct.Addr) string {
	switch a {
	case cct.RootAddr:
		return "<root>"
	case cct.PartialRootAddr:
		return "<partial unwinds>"
	}
	name := ep.Module(a.LoadModule)
	if name == "" {
		name = fmt.Sprintf("lm%d", a.LoadModule)
	}
	if a.Offset == 0 {
		return name
	}
	return fmt.Sprintf("%s+0x%x", name, a.Offset)
}
