package profile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/hpcprof/cct/internal/cct"
	"github.com/hpcprof/cct/internal/hpcfmt"
	"github.com/hpcprof/cct/internal/metric"
)

// MetricSource supplies the metric values of a node by persistent id.
type MetricSource interface {
	DenseCopy(id int32, dst []metric.Value)
}

// WriteTree writes the tree below root as a cct section: the node count,
// then one record per node, each node before its children.
func WriteTree(w io.Writer, root *cct.Node, metrics MetricSource, numMetrics int, flags hpcfmt.EpochFlags) error {
	bw := bufio.NewWriter(w)
	if err := writeTree(hpcfmt.NewEncoder(bw), root, metrics, numMetrics, flags); err != nil {
		return err
	}
	return bw.Flush()
}

func writeTree(e *hpcfmt.Encoder, root *cct.Node, metrics MetricSource, numMetrics int, flags hpcfmt.EpochFlags) error {
	count := cct.NumNodes(root)
	if err := hpcfmt.WriteNodeCount(e, uint64(count)); err != nil {
		return fmt.Errorf("profile: writing node count: %w", err)
	}
	rec := hpcfmt.NodeRecord{Metrics: make([]metric.Value, numMetrics)}
	cct.WalkNodeFirst(root, func(n *cct.Node, _ int) {
		if e.Err() != nil {
			return
		}
		fillRecord(&rec, n, metrics)
		_ = hpcfmt.WriteNode(e, &rec, flags)
	}, 0)
	if err := e.Err(); err != nil {
		return fmt.Errorf("profile: writing cct: %w", err)
	}
	return nil
}

func fillRecord(rec *hpcfmt.NodeRecord, n *cct.Node, metrics MetricSource) {
	rec.ID = n.ID()
	if !n.HasChildren() {
		rec.ID = -rec.ID
	}
	rec.ParentID = 0
	if p := n.Parent(); p != nil {
		rec.ParentID = uint32(p.ID())
	}
	addr := n.Addr()
	rec.LoadModule = addr.LoadModule
	rec.Offset = addr.Offset
	rec.Assoc = addr.Logical.Assoc
	rec.LIP = addr.Logical.LIP
	if metrics == nil {
		for i := range rec.Metrics {
			rec.Metrics[i] = 0
		}
		return
	}
	metrics.DenseCopy(n.ID(), rec.Metrics)
}

// Epoch is everything written for one epoch of a thread.
type Epoch struct {
	Header  hpcfmt.EpochHeader
	Metrics []metric.Descriptor
	Modules []hpcfmt.LoadModule
	Root    *cct.Node
	Values  MetricSource
}

// Writer writes a profile file: the file header followed by any number of
// epochs. Close flushes the buffered output but does not close the
// underlying writer.
type Writer struct {
	bw *bufio.Writer
	e  *hpcfmt.Encoder
}

// NewWriter writes h to w and returns a Writer for the epochs.
func NewWriter(w io.Writer, h hpcfmt.Header) (*Writer, error) {
	bw := bufio.NewWriter(w)
	pw := &Writer{bw: bw, e: hpcfmt.NewEncoder(bw)}
	if err := hpcfmt.WriteHeader(pw.e, h); err != nil {
		return nil, fmt.Errorf("profile: writing header: %w", err)
	}
	return pw, nil
}

func (w *Writer) WriteEpoch(ep Epoch) error {
	if err := hpcfmt.WriteEpochHeader(w.e, ep.Header); err != nil {
		return fmt.Errorf("profile: writing epoch header: %w", err)
	}
	if err := hpcfmt.WriteMetricTable(w.e, ep.Metrics); err != nil {
		return fmt.Errorf("profile: writing metric table: %w", err)
	}
	if err := hpcfmt.WriteLoadmap(w.e, ep.Modules); err != nil {
		return fmt.Errorf("profile: writing loadmap: %w", err)
	}
	return writeTree(w.e, ep.Root, ep.Values, len(ep.Metrics), ep.Header.Flags)
}

// Written returns the number of bytes encoded so far, buffered or not.
func (w *Writer) Written() int64 {
	return w.e.Written()
}

func (w *Writer) Close() error {
	if err := w.e.Err(); err != nil {
		return err
	}
	return w.bw.Flush()
}
