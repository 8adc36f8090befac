package metric

import (
	"testing"

	"github.com/hpcprof/cct/internal/testutil"
)

func TestSetDenseCopy(t *testing.T) {
	tests := []struct {
		name   string
		writes map[int]Value
		n      int
		want   []Value
	}{
		{
			name: "empty set",
			n:    3,
			want: []Value{0, 0, 0},
		},
		{
			name:   "sparse writes",
			writes: map[int]Value{2: IntValue(7), 0: IntValue(1)},
			n:      4,
			want:   []Value{1, 0, 7, 0},
		},
		{
			name:   "ids past the end are dropped",
			writes: map[int]Value{1: IntValue(3), 5: IntValue(9)},
			n:      2,
			want:   []Value{0, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Set
			for id, v := range tt.writes {
				s.Set(id, v)
			}
			got := make([]Value, tt.n)
			for i := range got {
				got[i] = 42
			}
			s.DenseCopy(got)
			if diff := testutil.Diff(got, tt.want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestRegistryUpdate(t *testing.T) {
	r := NewRegistry()
	samples, err := r.Register(Descriptor{Name: "samples", Kind: KindInt})
	if err != nil {
		t.Fatal(err)
	}
	seconds, err := r.Register(Descriptor{Name: "seconds", Kind: KindReal})
	if err != nil {
		t.Fatal(err)
	}

	var s Set
	r.Update(&s, samples, IntValue(2))
	r.Update(&s, samples, IntValue(3))
	r.Update(&s, seconds, RealValue(0.25))
	r.Update(&s, seconds, RealValue(0.5))

	if got := s.Get(samples).Int(); got != 5 {
		t.Fatalf("expected 5 samples, got %d", got)
	}
	if got := s.Get(seconds).Real(); got != 0.75 {
		t.Fatalf("expected 0.75 seconds, got %g", got)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 stored metrics, got %d", s.Len())
	}
}

func TestRegistryFreeze(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Register(Descriptor{Name: "samples"})
	descs := r.Freeze()
	if len(descs) != 1 || descs[0].Period != 1 {
		t.Fatalf("unexpected descriptors: %+v", descs)
	}
	if again, err := r.Register(Descriptor{Name: "samples"}); err != nil || again != id {
		t.Fatalf("expected existing id %d, got %d (%v)", id, again, err)
	}
	if _, err := r.Register(Descriptor{Name: "cycles"}); err != ErrRegistryFrozen {
		t.Fatalf("expected ErrRegistryFrozen, got %v", err)
	}
	if _, err := r.Register(Descriptor{Name: "samples", Kind: KindReal}); err == nil {
		t.Fatalf("expected an error on kind mismatch")
	}
}

func TestTableIgnoresRetainFlag(t *testing.T) {
	tbl := NewTable()
	tbl.Reify(12).AddInt(0, 4)
	if got := tbl.Get(13).Get(0).Int(); got != 4 {
		t.Fatalf("expected the retained id to share the set, got %d", got)
	}
	if tbl.Reify(13) != tbl.Get(12) {
		t.Fatalf("expected Reify to return the existing set")
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 set, got %d", tbl.Len())
	}
	if tbl.Get(14) != nil {
		t.Fatalf("expected no set for an unknown id")
	}
}

func TestTableTotals(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "samples", Kind: KindInt})
	r.Register(Descriptor{Name: "seconds", Kind: KindReal})

	tbl := NewTable()
	tbl.Reify(2).AddInt(0, 1)
	tbl.Reify(4).AddInt(0, 2)
	tbl.Reify(4).AddReal(1, 1.5)

	got := tbl.Totals(r)
	want := []Value{IntValue(3), RealValue(1.5)}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}
