package profile

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/hpcprof/cct/internal/hpcfmt"
	"github.com/hpcprof/cct/internal/metric"
)

type (
	// ExportNode is the JSON form of a node.
	ExportNode struct {
		ID         int32                  `json:"id"`
		Module     string                 `json:"module,omitempty"`
		LoadModule uint16                 `json:"load_module"`
		Offset     string                 `json:"offset"`
		Assoc      uint32                 `json:"assoc,omitempty"`
		LIP        []string               `json:"lip,omitempty"`
		IsLeaf     bool                   `json:"is_leaf"`
		Metrics    map[string]interface{} `json:"metrics,omitempty"`
		Children   []*ExportNode          `json:"children,omitempty"`
	}

	ExportEpoch struct {
		Flags   hpcfmt.EpochFlags   `json:"flags"`
		Metrics []metric.Descriptor `json:"metrics"`
		Modules []hpcfmt.LoadModule `json:"modules"`
		Nodes   int                 `json:"nodes"`
		Roots   []*ExportNode       `json:"roots"`
	}

	ExportProfile struct {
		Name    string             `json:"name"`
		Version string             `json:"version"`
		Values  []hpcfmt.NameValue `json:"values,omitempty"`
		Epochs  []ExportEpoch      `json:"epochs"`
	}
)

// Export converts p into its JSON form. Zero metric values are omitted.
func Export(p *Profile) ExportProfile {
	out := ExportProfile{
		Name:    p.Name,
		Version: p.Header.Version,
		Values:  p.Header.Values,
		Epochs:  make([]ExportEpoch, 0, len(p.Epochs)),
	}
	for _, ep := range p.Epochs {
		e := ExportEpoch{
			Flags:   ep.Header.Flags,
			Metrics: ep.Metrics,
			Modules: ep.Modules,
			Nodes:   ep.Tree.Len(),
			Roots:   make([]*ExportNode, 0, len(ep.Tree.Roots)),
		}
		for _, r := range ep.Tree.Roots {
			e.Roots = append(e.Roots, exportNode(ep, r))
		}
		out.Epochs = append(out.Epochs, e)
	}
	return out
}

func exportNode(ep *LoadedEpoch, n *Node) *ExportNode {
	en := &ExportNode{
		ID:         n.ID,
		Module:     ep.Module(n.Addr.LoadModule),
		LoadModule: n.Addr.LoadModule,
		Offset:     fmt.Sprintf("0x%x", n.Addr.Offset),
		IsLeaf:     n.Leaf,
	}
	if n.Addr.HasLogical {
		en.Assoc = n.Addr.Logical.Assoc
		en.LIP = []string{
			fmt.Sprintf("0x%x", n.Addr.Logical.LIP[0]),
			fmt.Sprintf("0x%x", n.Addr.Logical.LIP[1]),
		}
	}
	for i, v := range n.Metrics {
		if v.IsZero() || i >= len(ep.Metrics) {
			continue
		}
		if en.Metrics == nil {
			en.Metrics = make(map[string]interface{})
		}
		d := ep.Metrics[i]
		if d.Kind == metric.KindReal {
			en.Metrics[d.Name] = v.Real()
		} else {
			en.Metrics[d.Name] = v.Int()
		}
	}
	if len(n.Children) > 0 {
		en.Children = make([]*ExportNode, 0, len(n.Children))
		for _, c := range n.Children {
			en.Children = append(en.Children, exportNode(ep, c))
		}
	}
	return en
}

// WriteJSON writes the JSON form of p to w.
func WriteJSON(w io.Writer, p *Profile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Export(p))
}
