package hdc

import (
	"context"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// topKParallelThreshold is the vocabulary size above which TopKSimilar fans
// similarity comparisons out across goroutines instead of scanning serially.
// Below it the errgroup/goroutine overhead isn't worth paying.
const topKParallelThreshold = 64

// TopKSimilar is the generic nearest-neighbor scan (§4.9) shared by every
// strategy's TopKSimilar method: compute Similarity(query, v) for each
// vocabulary entry, optionally incrementing stats, and return the top k
// entries by descending similarity, ties broken by name ascending.
//
// Similarity on immutable vectors is data-parallel-safe (§5 "Parallelism
// model"), so for large vocabularies the per-entry comparisons run
// concurrently via errgroup; each goroutine only ever writes its own slot
// of a preallocated slice, so no locking is needed beyond the atomic
// comparison counter.
func TopKSimilar(s Strategy, query Vector, vocabulary map[string]Vector, k int, stats *Stats) ([]Scored, error) {
	if k < 0 {
		return nil, ErrInvalidArgument
	}
	names := make([]string, 0, len(vocabulary))
	for name := range vocabulary {
		names = append(names, name)
	}
	results := make([]Scored, len(names))
	var comparisons int64

	if len(names) >= topKParallelThreshold {
		g, _ := errgroup.WithContext(context.Background())
		for i, name := range names {
			i, name := i, name
			g.Go(func() error {
				v := vocabulary[name]
				sim, err := s.Similarity(query, v)
				if err != nil {
					return err
				}
				atomic.AddInt64(&comparisons, 1)
				results[i] = Scored{Name: name, Vector: v, Similarity: sim}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, name := range names {
			v := vocabulary[name]
			sim, err := s.Similarity(query, v)
			if err != nil {
				return nil, err
			}
			comparisons++
			results[i] = Scored{Name: name, Vector: v, Similarity: sim}
		}
	}

	if stats != nil {
		stats.Comparisons += comparisons
		stats.TopKCalls++
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Name < results[j].Name
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}
