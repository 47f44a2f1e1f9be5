package main

import (
	"fmt"
	"io"

	hdc "github.com/OutfinityResearch/hdc-algebra"
	"github.com/OutfinityResearch/hdc-algebra/registry"
)

func runBench(out io.Writer) error {
	var s hdc.Strategy
	if strategyFlag == "exact" {
		// EXACT's global facade refuses every algebra call (§4.6 session
		// isolation); bench needs a live session instead.
		s = registry.NewExactSession(hdc.DefaultExactOptions())
	} else {
		var err error
		s, err = registry.Lookup(strategyFlag)
		if err != nil {
			return err
		}
	}
	geometry := geometryFlag
	if geometry == 0 {
		geometry = s.Meta().DefaultGeometry
	}

	var seedPtr *uint64
	if seedFlag != 0 {
		seed := uint64(seedFlag)
		seedPtr = &seed
	}

	vocabulary := make(map[string]hdc.Vector, countFlag)
	for i := 0; i < countFlag; i++ {
		name := fmt.Sprintf("atom-%d", i)
		v, err := s.CreateFromName(name, geometry, "hdcbench")
		if err != nil {
			return fmt.Errorf("hdcbench: create %s: %w", name, err)
		}
		vocabulary[name] = v
	}

	query, err := s.CreateRandom(geometry, seedPtr)
	if err != nil {
		return fmt.Errorf("hdcbench: create query: %w", err)
	}

	var stats hdc.Stats
	results, err := s.TopKSimilar(query, vocabulary, kFlag, &stats)
	if err != nil {
		return fmt.Errorf("hdcbench: top-k: %w", err)
	}

	fmt.Fprintf(out, "strategy=%s geometry=%d vocabulary=%d comparisons=%d\n", s.Meta().ID, geometry, countFlag, stats.Comparisons)
	for i, r := range results {
		fmt.Fprintf(out, "%2d. %-16s similarity=%.4f\n", i+1, r.Name, r.Similarity)
	}
	return nil
}
