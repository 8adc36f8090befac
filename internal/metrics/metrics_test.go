package metrics

import (
	"testing"

	"github.com/hpcprof/cct/internal/cct"
	"github.com/hpcprof/cct/internal/hpcfmt"
	"github.com/hpcprof/cct/internal/metric"
	"github.com/hpcprof/cct/internal/profile"
	"github.com/hpcprof/cct/internal/testutil"
)

func loaded(name string, values map[uint16]uint64) *profile.Profile {
	root := &profile.Node{ID: 2, Addr: cct.RootAddr, Metrics: []metric.Value{0}}
	id := int32(4)
	for lm, v := range values {
		root.Children = append(root.Children, &profile.Node{
			ID:      id,
			Addr:    cct.NewAddr(lm, 0),
			Leaf:    true,
			Metrics: []metric.Value{metric.IntValue(v)},
			Parent:  root,
		})
		id += 2
	}
	return &profile.Profile{
		Name: name,
		Epochs: []*profile.LoadedEpoch{{
			Metrics: []metric.Descriptor{{Name: "samples", Kind: metric.KindInt}},
			Modules: []hpcfmt.LoadModule{{ID: 1, Name: "parse"}, {ID: 2, Name: "lex"}},
			Tree:    &profile.Tree{Roots: []*profile.Node{root}},
		}},
	}
}

func TestAggregator(t *testing.T) {
	ma := NewAggregator("samples", 10, 2)
	ma.AddProfile(loaded("a", map[uint16]uint64{1: 10, 2: 1}))
	ma.AddProfile(loaded("b", map[uint16]uint64{1: 30}))
	ma.AddProfile(loaded("c", map[uint16]uint64{1: 20, 2: 4}))

	want := []FrameMetrics{
		{Name: "parse", P75: 30, P95: 30, P99: 30, Avg: 20, Sum: 60, Count: 3, Worst: "b", Examples: []string{"a", "b"}},
		{Name: "lex", P75: 4, P95: 4, P99: 4, Avg: 2.5, Sum: 5, Count: 2, Worst: "c", Examples: []string{"a", "c"}},
	}
	if diff := testutil.Diff(ma.ToMetrics(), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestAggregatorLimit(t *testing.T) {
	ma := NewAggregator("samples", 1, 1)
	ma.AddProfile(loaded("a", map[uint16]uint64{1: 10, 2: 11}))
	got := ma.ToMetrics()
	if len(got) != 1 || got[0].Name != "lex" {
		t.Fatalf("expected only the heaviest frame, got %+v", got)
	}
}

func TestAggregatorUnknownMetric(t *testing.T) {
	ma := NewAggregator("cycles", 10, 1)
	ma.AddProfile(loaded("a", map[uint16]uint64{1: 10}))
	if got := ma.ToMetrics(); len(got) != 0 {
		t.Fatalf("expected no frames, got %+v", got)
	}
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name    string
		values  []uint64
		q       float64
		want    uint64
		wantErr bool
	}{
		{name: "p50", values: []uint64{1, 2, 3, 4}, q: 0.5, want: 2},
		{name: "p99", values: []uint64{1, 2, 3, 4}, q: 0.99, want: 4},
		{name: "empty", q: 0.5, wantErr: true},
		{name: "out of range", values: []uint64{1}, q: 1.5, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := quantile(tt.values, tt.q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}
