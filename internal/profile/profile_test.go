package profile

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/hpcprof/cct/internal/cct"
	"github.com/hpcprof/cct/internal/errorutil"
	"github.com/hpcprof/cct/internal/hpcfmt"
	"github.com/hpcprof/cct/internal/metric"
	"github.com/hpcprof/cct/internal/testutil"
)

func newTree() *cct.Tree {
	return cct.NewTree(cct.NewArena(cct.ArenaOptions{}), cct.NewIDGenerator(cct.DefaultFirstID))
}

func mustInsert(t *testing.T, tree *cct.Tree, n *cct.Node, addr cct.Addr) *cct.Node {
	t.Helper()
	c, err := tree.InsertChild(n, addr)
	if err != nil {
		t.Fatalf("insert %v: %v", addr, err)
	}
	return c
}

// twoSamples builds root -> f@0x100 -> {g@0x200, h@0x300}.
func twoSamples(t *testing.T) (*cct.Node, map[string]*cct.Node) {
	tree := newTree()
	root, err := tree.NewRoot(cct.RootAddr)
	if err != nil {
		t.Fatal(err)
	}
	f := mustInsert(t, tree, root, cct.NewAddr(1, 0x100))
	g := mustInsert(t, tree, f, cct.NewAddr(1, 0x200))
	h := mustInsert(t, tree, f, cct.NewAddr(1, 0x300))
	return root, map[string]*cct.Node{"root": root, "f": f, "g": g, "h": h}
}

func pathKey(path []cct.Addr) string {
	parts := make([]string, 0, len(path))
	for _, a := range path {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, "/")
}

type fingerprint struct {
	ID      int32
	Leaf    bool
	Metrics []metric.Value
}

func TestWriteTreeLeafSign(t *testing.T) {
	root, nodes := twoSamples(t)
	var buf bytes.Buffer
	if err := WriteTree(&buf, root, nil, 1, 0); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := hpcfmt.NewDecoder(&buf)
	count, err := hpcfmt.ReadNodeCount(d)
	if err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Fatalf("expected 4 nodes, got %d", count)
	}
	got := make(map[uint64]int32)
	var rec hpcfmt.NodeRecord
	for i := uint64(0); i < count; i++ {
		if err := hpcfmt.ReadNode(d, &rec, 1, 0); err != nil {
			t.Fatal(err)
		}
		got[rec.Offset] = rec.ID
		if rec.Offset == 0 && rec.ParentID != 0 {
			t.Fatalf("root written with parent %d", rec.ParentID)
		}
	}
	if buf.Len() != 0 {
		t.Fatalf("%d trailing bytes", buf.Len())
	}
	want := map[uint64]int32{
		0:     nodes["root"].ID(),
		0x100: nodes["f"].ID(),
		0x200: -nodes["g"].ID(),
		0x300: -nodes["h"].ID(),
	}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestWriteTreeNodeBeforeChildren(t *testing.T) {
	root, _ := twoSamples(t)
	var buf bytes.Buffer
	if err := WriteTree(&buf, root, nil, 0, 0); err != nil {
		t.Fatal(err)
	}
	d := hpcfmt.NewDecoder(&buf)
	count, _ := hpcfmt.ReadNodeCount(d)
	seen := map[int32]bool{}
	var rec hpcfmt.NodeRecord
	for i := uint64(0); i < count; i++ {
		if err := hpcfmt.ReadNode(d, &rec, 0, 0); err != nil {
			t.Fatal(err)
		}
		if rec.ParentID != 0 && !seen[int32(rec.ParentID)] {
			t.Fatalf("node %d written before parent %d", rec.NodeID(), rec.ParentID)
		}
		seen[rec.NodeID()] = true
	}
}

func TestTreeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		flags  hpcfmt.EpochFlags
		retain bool
	}{
		{name: "plain"},
		{name: "logical unwind", flags: hpcfmt.FlagLogicalUnwind},
		{name: "retained nodes", retain: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newTree()
			root, err := tree.NewRoot(cct.RootAddr)
			if err != nil {
				t.Fatal(err)
			}
			table := metric.NewTable()
			rng := rand.New(rand.NewSource(7))
			want := map[string]fingerprint{}
			for i := 0; i < 200; i++ {
				n := root
				depth := 1 + rng.Intn(6)
				for j := 0; j < depth; j++ {
					addr := cct.NewAddr(uint16(1+rng.Intn(3)), uint64(rng.Intn(8))*0x10)
					if tt.flags.IsLogicalUnwind() && rng.Intn(2) == 0 {
						addr = addr.WithLogical(cct.Logical{Assoc: 0x21, LIP: [2]uint64{uint64(j), 9}})
					}
					n = mustInsert(t, tree, n, addr)
				}
				s := table.Reify(n.ID())
				s.AddInt(0, 1)
				s.AddReal(1, 0.5)
			}
			retained := 0
			if tt.retain {
				cct.WalkNodeFirst(root, func(n *cct.Node, level int) {
					if level%2 == 1 {
						n.MarkRetained()
						retained++
					}
				}, 0)
			}
			cct.WalkNodeFirst(root, func(n *cct.Node, _ int) {
				vals := make([]metric.Value, 2)
				table.DenseCopy(n.ID(), vals)
				want[pathKey(cct.Path(n))] = fingerprint{ID: n.ID(), Leaf: !n.HasChildren(), Metrics: vals}
			}, 0)

			var buf bytes.Buffer
			if err := WriteTree(&buf, root, table, 2, tt.flags); err != nil {
				t.Fatalf("write: %v", err)
			}
			loaded, err := ReadTree(&buf, 2, tt.flags)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if loaded.Len() != cct.NumNodes(root) {
				t.Fatalf("expected %d nodes, got %d", cct.NumNodes(root), loaded.Len())
			}
			got := map[string]fingerprint{}
			loadedRetained := 0
			loaded.Walk(func(n *Node, _ int) {
				got[pathKey(n.Path())] = fingerprint{ID: n.ID, Leaf: n.Leaf, Metrics: n.Metrics}
				if cct.IsRetained(n.ID) {
					loadedRetained++
				}
			})
			if loadedRetained != retained {
				t.Fatalf("expected %d retained nodes, got %d", retained, loadedRetained)
			}
			if diff := testutil.Diff(got, want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestReadTreeIntegrity(t *testing.T) {
	tests := []struct {
		name    string
		records []hpcfmt.NodeRecord
	}{
		{
			name: "child before parent",
			records: []hpcfmt.NodeRecord{
				{ID: 2},
				{ID: -6, ParentID: 4},
				{ID: 4, ParentID: 2},
			},
		},
		{
			name: "duplicate id",
			records: []hpcfmt.NodeRecord{
				{ID: 2},
				{ID: -2, ParentID: 2},
			},
		},
		{
			name: "child of a leaf",
			records: []hpcfmt.NodeRecord{
				{ID: 2},
				{ID: -4, ParentID: 2},
				{ID: -6, ParentID: 4},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := hpcfmt.NewEncoder(&buf)
			_ = hpcfmt.WriteNodeCount(e, uint64(len(tt.records)))
			for i := range tt.records {
				_ = hpcfmt.WriteNode(e, &tt.records[i], 0)
			}
			_, err := ReadTree(&buf, 0, 0)
			if !errors.Is(err, errorutil.ErrDataIntegrity) {
				t.Fatalf("expected a data integrity error, got %v", err)
			}
			var se *hpcfmt.SectionError
			if !errors.As(err, &se) || se.Section != hpcfmt.SectionCCT {
				t.Fatalf("expected the cct section to be named, got %v", err)
			}
		})
	}
}

func writeProfile(t *testing.T, epochs int) ([]byte, *cct.Node) {
	t.Helper()
	root, nodes := twoSamples(t)
	table := metric.NewTable()
	table.Reify(nodes["g"].ID()).AddInt(0, 3)
	table.Reify(nodes["h"].ID()).AddInt(0, 4)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, hpcfmt.Header{Values: []hpcfmt.NameValue{{Name: "program-name", Value: "a.out"}}})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < epochs; i++ {
		err := w.WriteEpoch(Epoch{
			Header:  hpcfmt.EpochHeader{MeasurementGranularity: 1},
			Metrics: []metric.Descriptor{{Name: "samples", Kind: metric.KindInt, Period: 1}},
			Modules: []hpcfmt.LoadModule{{ID: 1, Name: "/bin/a.out"}},
			Root:    root,
			Values:  table,
		})
		if err != nil {
			t.Fatalf("write epoch: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if w.Written() != int64(buf.Len()) {
		t.Fatalf("written %d, buffer holds %d", w.Written(), buf.Len())
	}
	return buf.Bytes(), root
}

func TestLoad(t *testing.T) {
	data, _ := writeProfile(t, 2)
	p, err := Load(bytes.NewReader(data), "thread-1.hpcrun")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.Epochs) != 2 {
		t.Fatalf("expected 2 epochs, got %d", len(p.Epochs))
	}
	if v, _ := p.Header.Lookup("program-name"); v != "a.out" {
		t.Fatalf("unexpected program name %q", v)
	}
	ep := p.Epochs[1]
	if got := ep.Tree.Totals(ep.Metrics); got[0].Int() != 7 {
		t.Fatalf("expected 7 samples, got %d", got[0].Int())
	}
	if ep.Tree.Leaves() != 2 {
		t.Fatalf("expected 2 leaves, got %d", ep.Tree.Leaves())
	}
	if ep.Module(1) != "/bin/a.out" {
		t.Fatalf("unexpected module %q", ep.Module(1))
	}
}

func TestLoadTruncated(t *testing.T) {
	data, _ := writeProfile(t, 1)
	_, err := Load(bytes.NewReader(data[:len(data)-5]), "thread-1.hpcrun")
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"thread-1.hpcrun", hpcfmt.SectionCCT} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not name %q", err, want)
		}
	}
}

func TestLoadBadMagic(t *testing.T) {
	_, err := Load(strings.NewReader("definitely not a profile"), "junk")
	if !errors.Is(err, hpcfmt.ErrBadMagic) {
		t.Fatalf("expected a bad magic error, got %v", err)
	}
}

func TestWriteJSON(t *testing.T) {
	data, _ := writeProfile(t, 1)
	p, err := Load(bytes.NewReader(data), "p")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, p); err != nil {
		t.Fatal(err)
	}
	var got ExportProfile
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Epochs) != 1 || len(got.Epochs[0].Roots) != 1 {
		t.Fatalf("unexpected shape: %+v", got)
	}
	f := got.Epochs[0].Roots[0].Children[0]
	if f.Offset != "0x100" || f.IsLeaf || f.Module != "/bin/a.out" {
		t.Fatalf("unexpected node %+v", f)
	}
	var offsets []string
	for _, c := range f.Children {
		offsets = append(offsets, fmt.Sprintf("%s:%v", c.Offset, c.Metrics["samples"]))
	}
	sort.Strings(offsets)
	if diff := testutil.Diff(offsets, []string{"0x200:3", "0x300:4"}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteTreePropagatesErrors(t *testing.T) {
	root, _ := twoSamples(t)
	if err := WriteTree(failingWriter{}, root, nil, 0, 0); err == nil {
		t.Fatal("expected the write error")
	}
}
