package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/OutfinityResearch/hdc-algebra/registry"
)

func runInfo(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGEOMETRY\tBUNDLE CAP\tBIND COST\tSPARSE\tSTRONG\tWEAK\tBASELINE")
	for _, id := range registry.IDs() {
		s, err := registry.Lookup(id)
		if err != nil {
			return err
		}
		m := s.Meta()
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%v\t%.2f\t%.2f\t%.2f\n",
			m.ID, m.DefaultGeometry, m.RecommendedBundleCapacity, m.BindComplexity,
			m.SparseOptimized, m.Reasoning.StrongMatch, m.Reasoning.WeakMatch, m.Holographic.RandomBaseline)
	}
	return w.Flush()
}
