package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/hpcprof/cct/internal/profile"
)

func printText(w io.Writer, p *profile.Profile) {
	fmt.Fprintf(w, "%s (version %s)\n", p.Name, p.Header.Version)
	for i, ep := range p.Epochs {
		fmt.Fprintf(w, "epoch %d: %d nodes, flags %#x\n", i, ep.Tree.Len(), uint64(ep.Header.Flags))
		ep.Tree.Walk(func(n *profile.Node, depth int) {
			fmt.Fprintf(w, "%s%s", strings.Repeat("  ", depth+1), ep.FrameName(n.Addr))
			if n.Leaf {
				fmt.Fprint(w, " [leaf]")
			}
			for j, v := range n.Metrics {
				if v.IsZero() || j >= len(ep.Metrics) {
					continue
				}
				fmt.Fprintf(w, " %s=%s", ep.Metrics[j].Name, v.Format(ep.Metrics[j].Kind))
			}
			fmt.Fprintln(w)
		})
	}
}

func printSummary(w io.Writer, p *profile.Profile) {
	for i, ep := range p.Epochs {
		fmt.Fprintf(w, "%s\tepoch %d\tnodes %d\tleaves %d", p.Name, i, ep.Tree.Len(), ep.Tree.Leaves())
		totals := ep.Tree.Totals(ep.Metrics)
		for j, d := range ep.Metrics {
			fmt.Fprintf(w, "\t%s %s", d.Name, totals[j].Format(d.Kind))
		}
		fmt.Fprintln(w)
	}
}
