package sparsepoly

import "container/heap"

// mix is a SplitMix64-style finalizer used to hash a candidate exponent
// for Min-Hash sparsification (§4.5). It is a pure function of its input
// (no running state), unlike hash.PRNG's generator step.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	return x
}

type hashPair struct {
	h uint64
	v uint64
}

// maxHeap keeps the k smallest-hash candidates seen so far by evicting
// its current maximum whenever a smaller-hash candidate arrives (§9
// "Min-Hash for SP").
type maxHeap []hashPair

func (h maxHeap) Len() int { return len(h) }
func (h maxHeap) Less(i, j int) bool {
	if h[i].h != h[j].h {
		return h[i].h > h[j].h
	}
	return h[i].v > h[j].v
}
func (h maxHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)   { *h = append(*h, x.(hashPair)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// sparsifyToK deduplicates candidates and returns the k with the smallest
// mix() hash, ties broken by value, sorted ascending. If there are k or
// fewer unique candidates, all of them are returned (sorted).
func sparsifyToK(candidates []uint64, k int) []uint64 {
	seen := make(map[uint64]struct{}, len(candidates))
	h := &maxHeap{}
	heap.Init(h)
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		hv := mix(c)
		if h.Len() < k {
			heap.Push(h, hashPair{h: hv, v: c})
			continue
		}
		top := (*h)[0]
		if hv < top.h || (hv == top.h && c < top.v) {
			heap.Pop(h)
			heap.Push(h, hashPair{h: hv, v: c})
		}
	}
	out := make([]uint64, 0, h.Len())
	for _, p := range *h {
		out = append(out, p.v)
	}
	sortUint64s(out)
	return out
}

func sortUint64s(s []uint64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
