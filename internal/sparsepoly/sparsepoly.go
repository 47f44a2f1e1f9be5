// Package sparsepoly implements the sparse-polynomial (SP) HDC strategy:
// vectors are sets of up to k 64-bit exponents, bind is Cartesian XOR
// followed by Min-Hash sparsification, similarity is Jaccard (§4.5).
package sparsepoly

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/OutfinityResearch/hdc-algebra"
	"github.com/OutfinityResearch/hdc-algebra/internal/hash"
)

// ID is the strategy's registry name.
const ID = "sparse-polynomial"

// LegacyAliasID is the legacy "fractal-semantic" alias the source carries
// for SP (§9 Open Questions): the registry resolves it to this strategy.
const LegacyAliasID = "fractal-semantic"

const defaultK = 4

// cartesianPairCeiling hard-bounds the Cartesian XOR product computed by
// Bind before sparsification (§4.5, §5 "Cancellation / timeouts").
const cartesianPairCeiling = 50000

// Vector is a sorted, unique, at-most-k set of 64-bit exponents.
type Vector struct {
	k         int
	exponents []uint64 // sorted ascending, unique
}

// StrategyID implements hdc.Vector.
func (v *Vector) StrategyID() string { return ID }

// Geometry implements hdc.Vector.
func (v *Vector) Geometry() int { return v.k }

// Exponents returns a read-only view of the vector's sorted exponent set.
func (v *Vector) Exponents() []uint64 { return v.exponents }

func asVector(v hdc.Vector) (*Vector, error) {
	sv, ok := v.(*Vector)
	if !ok {
		return nil, hdc.ErrStrategyMismatch
	}
	return sv, nil
}

func systemSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0x2545F4914F6CDD1D
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Strategy implements hdc.Strategy for the sparse-polynomial
// representation. Stateless, safe to share process-wide.
type Strategy struct {
	// PairCeiling overrides the default Cartesian-product cap (0 uses
	// the documented default of 50000).
	PairCeiling int
}

// New is the process-wide sparse-polynomial strategy instance.
var New = &Strategy{}

func (s *Strategy) pairCeiling() int {
	if s.PairCeiling <= 0 {
		return cartesianPairCeiling
	}
	return s.PairCeiling
}

// Meta implements hdc.Strategy.
func (s *Strategy) Meta() hdc.Metadata {
	return hdc.Metadata{
		ID:                        ID,
		DisplayName:               "Sparse Polynomial",
		Description:               "Sets of up to k 64-bit exponents; Cartesian-XOR bind with Min-Hash sparsification, Jaccard similarity.",
		DefaultGeometry:           defaultK,
		RecommendedBundleCapacity: 8,
		MaxBundleCapacity:         256,
		BindComplexity:            "O(|A|*|B|) capped, then O(n log k) sparsify",
		SparseOptimized:           true,
		Reasoning: hdc.ReasoningThresholds{
			StrongMatch:    0.5,
			WeakMatch:      0.2,
			OrthogonalBand: 0.05,
		},
		Holographic: hdc.HolographicThresholds{
			RandomBaseline:     1.0 / (2*float64(defaultK) - 1),
			BundleDegradeAfter: 8,
		},
	}
}

// BytesPerVector implements hdc.Strategy: up to k 8-byte exponents.
func (s *Strategy) BytesPerVector(geometry int) int { return geometry * 8 }

func validateK(k int) error {
	if k <= 0 {
		return fmt.Errorf("sparsepoly: k must be positive, got %d: %w", k, hdc.ErrInvalidGeometry)
	}
	return nil
}

// CreateZero implements hdc.Strategy: the empty exponent set.
func (s *Strategy) CreateZero(geometry int) (hdc.Vector, error) {
	if err := validateK(geometry); err != nil {
		return nil, err
	}
	return &Vector{k: geometry, exponents: nil}, nil
}

// CreateRandom implements hdc.Strategy: k unique uniform 64-bit
// exponents.
func (s *Strategy) CreateRandom(geometry int, seed *uint64) (hdc.Vector, error) {
	if err := validateK(geometry); err != nil {
		return nil, err
	}
	sd := systemSeed()
	if seed != nil {
		sd = *seed
	}
	prng := hash.NewPRNG(sd)
	return &Vector{k: geometry, exponents: uniqueDraws(prng, geometry)}, nil
}

func uniqueDraws(prng *hash.PRNG, k int) []uint64 {
	seen := make(map[uint64]struct{}, k)
	out := make([]uint64, 0, k)
	for len(out) < k {
		v := prng.NextUint64()
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sortUint64s(out)
	return out
}

// CreateFromName implements hdc.Strategy. §4.5 specifies the seed as
// djb2(name); this implementation theory-scopes it (djb2(theoryID+":"+name))
// like every other strategy's from-name factory, to satisfy the global
// invariant that identity is a pure function of (name, geometry, theoryId,
// strategyId) (§3 invariant 6) — see DESIGN.md.
func (s *Strategy) CreateFromName(name string, geometry int, theoryID string) (hdc.Vector, error) {
	if err := validateK(geometry); err != nil {
		return nil, err
	}
	if theoryID == "" {
		theoryID = "default"
	}
	prng := hash.NewPRNG(hash.TheoryScopedSeed(theoryID, name))
	return &Vector{k: geometry, exponents: uniqueDraws(prng, geometry)}, nil
}

func cartesianXOR(a, b []uint64, ceiling int) []uint64 {
	out := make([]uint64, 0, len(a)*len(b))
	count := 0
outer:
	for _, x := range a {
		for _, y := range b {
			if count >= ceiling {
				break outer
			}
			out = append(out, x^y)
			count++
		}
	}
	return out
}

// BindFull returns the unsparsified Cartesian-XOR product of a and b,
// capped at the strategy's pair ceiling but not reduced to k (§4.5
// "Bind-full / sparsify-to").
func (s *Strategy) BindFull(a, b hdc.Vector) (hdc.Vector, error) {
	av, err := asVector(a)
	if err != nil {
		return nil, err
	}
	bv, err := asVector(b)
	if err != nil {
		return nil, err
	}
	raw := cartesianXOR(av.exponents, bv.exponents, s.pairCeiling())
	dedup := dedupeSorted(raw)
	k := av.k
	if bv.k > k {
		k = bv.k
	}
	return &Vector{k: k, exponents: dedup}, nil
}

// SparsifyTo lowers v to at most target cardinality via Min-Hash.
func (s *Strategy) SparsifyTo(v hdc.Vector, target int) (hdc.Vector, error) {
	sv, err := asVector(v)
	if err != nil {
		return nil, err
	}
	if target <= 0 {
		return nil, hdc.ErrInvalidArgument
	}
	return &Vector{k: sv.k, exponents: sparsifyToK(sv.exponents, target)}, nil
}

func dedupeSorted(xs []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(xs))
	out := make([]uint64, 0, len(xs))
	for _, x := range xs {
		if _, dup := seen[x]; dup {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	sortUint64s(out)
	return out
}

// Bind implements hdc.Strategy: capped Cartesian XOR, then sparsified
// back to k via Min-Hash (§4.5).
func (s *Strategy) Bind(a, b hdc.Vector) (hdc.Vector, error) {
	av, err := asVector(a)
	if err != nil {
		return nil, err
	}
	bv, err := asVector(b)
	if err != nil {
		return nil, err
	}
	raw := cartesianXOR(av.exponents, bv.exponents, s.pairCeiling())
	k := av.k
	return &Vector{k: k, exponents: sparsifyToK(raw, k)}, nil
}

// BindAll implements hdc.Strategy by folding Bind left to right.
func (s *Strategy) BindAll(vs ...hdc.Vector) (hdc.Vector, error) {
	if len(vs) == 0 {
		return nil, hdc.ErrEmptyInput
	}
	acc := vs[0]
	for _, v := range vs[1:] {
		next, err := s.Bind(acc, v)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

// Bundle implements hdc.Strategy: set union across inputs, sparsified to
// k when the union exceeds k. tieBreaker is unused (Min-Hash is
// deterministic without one).
func (s *Strategy) Bundle(vs []hdc.Vector, tieBreaker hdc.Vector) (hdc.Vector, error) {
	if len(vs) == 0 {
		return nil, hdc.ErrEmptyInput
	}
	k := 0
	union := make([]uint64, 0)
	for i, v := range vs {
		sv, err := asVector(v)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			k = sv.k
		}
		union = append(union, sv.exponents...)
	}
	dedup := dedupeSorted(union)
	if len(dedup) > k {
		dedup = sparsifyToK(dedup, k)
	}
	return &Vector{k: k, exponents: dedup}, nil
}

// Unbind implements hdc.Strategy: XOR is self-inverse, identical to Bind.
func (s *Strategy) Unbind(composite, component hdc.Vector) (hdc.Vector, error) {
	return s.Bind(composite, component)
}

// jaccard computes |A∩B|/|A∪B| via a two-pointer walk over sorted
// arrays; empty-vs-empty is defined as 1 (§4.5).
func jaccard(a, b []uint64) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	i, j := 0, 0
	inter, union := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			union++
			i++
			j++
		case a[i] < b[j]:
			union++
			i++
		default:
			union++
			j++
		}
	}
	union += (len(a) - i) + (len(b) - j)
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

// Similarity implements hdc.Strategy: Jaccard index.
func (s *Strategy) Similarity(a, b hdc.Vector) (float64, error) {
	av, err := asVector(a)
	if err != nil {
		return 0, err
	}
	bv, err := asVector(b)
	if err != nil {
		return 0, err
	}
	return jaccard(av.exponents, bv.exponents), nil
}

// Distance implements hdc.Strategy.
func (s *Strategy) Distance(a, b hdc.Vector) (float64, error) {
	sim, err := s.Similarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

// Containment returns |A∩B|/|A|, the fraction of a covered by b, used by
// clients to match candidate answers against a noisy unbind residue
// (§4.5).
func (s *Strategy) Containment(a, b hdc.Vector) (float64, error) {
	av, err := asVector(a)
	if err != nil {
		return 0, err
	}
	bv, err := asVector(b)
	if err != nil {
		return 0, err
	}
	if len(av.exponents) == 0 {
		return 1.0, nil
	}
	bset := make(map[uint64]struct{}, len(bv.exponents))
	for _, x := range bv.exponents {
		bset[x] = struct{}{}
	}
	hit := 0
	for _, x := range av.exponents {
		if _, ok := bset[x]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(av.exponents)), nil
}

// IsOrthogonal implements hdc.Strategy.
func (s *Strategy) IsOrthogonal(a, b hdc.Vector, threshold float64) (bool, error) {
	if threshold <= 0 {
		threshold = s.Meta().Reasoning.OrthogonalBand
	}
	sim, err := s.Similarity(a, b)
	if err != nil {
		return false, err
	}
	diff := sim - s.Meta().Holographic.RandomBaseline
	if diff < 0 {
		diff = -diff
	}
	return diff < threshold, nil
}

// Clone implements hdc.Strategy.
func (s *Strategy) Clone(v hdc.Vector) (hdc.Vector, error) {
	sv, err := asVector(v)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(sv.exponents))
	copy(out, sv.exponents)
	return &Vector{k: sv.k, exponents: out}, nil
}

// Equals implements hdc.Strategy.
func (s *Strategy) Equals(a, b hdc.Vector) (bool, error) {
	av, err := asVector(a)
	if err != nil {
		return false, err
	}
	bv, err := asVector(b)
	if err != nil {
		return false, err
	}
	if av.k != bv.k || len(av.exponents) != len(bv.exponents) {
		return false, nil
	}
	for i := range av.exponents {
		if av.exponents[i] != bv.exponents[i] {
			return false, nil
		}
	}
	return true, nil
}

type sparseWire struct {
	Exponents []string `json:"exponents"`
	MaxSize   int      `json:"maxSize"`
}

func toWire(v *Vector) sparseWire {
	strs := make([]string, len(v.exponents))
	for i, x := range v.exponents {
		strs[i] = strconv.FormatUint(x, 10)
	}
	return sparseWire{Exponents: strs, MaxSize: v.k}
}

func fromWire(w sparseWire) (*Vector, error) {
	exps := make([]uint64, len(w.Exponents))
	for i, str := range w.Exponents {
		x, err := strconv.ParseUint(str, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sparsepoly: decode exponent %q: %w", str, err)
		}
		exps[i] = x
	}
	sortUint64s(exps)
	return &Vector{k: w.MaxSize, exponents: exps}, nil
}

// Serialize implements hdc.Strategy: {exponents: []decimal string,
// maxSize: k} (§6).
func (s *Strategy) Serialize(v hdc.Vector) ([]byte, error) {
	sv, err := asVector(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(toWire(sv))
	if err != nil {
		return nil, err
	}
	return json.Marshal(hdc.VectorEnvelope{StrategyID: ID, Version: 1, Geometry: sv.k, Data: data})
}

// Deserialize implements hdc.Strategy.
func (s *Strategy) Deserialize(payload []byte) (hdc.Vector, error) {
	env, err := hdc.DecodeVectorEnvelope(payload, ID)
	if err != nil {
		return nil, err
	}
	var w sparseWire
	if err := json.Unmarshal(env.Data, &w); err != nil {
		return nil, fmt.Errorf("sparsepoly: decode data: %w", err)
	}
	return fromWire(w)
}

// SerializeKB implements hdc.Strategy.
func (s *Strategy) SerializeKB(entries []hdc.KBEntry) ([]byte, error) {
	geometry := 0
	facts := make([]hdc.FactEnvelope, 0, len(entries))
	for i, e := range entries {
		sv, err := asVector(e.Vector)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			geometry = sv.k
		}
		data, err := json.Marshal(toWire(sv))
		if err != nil {
			return nil, err
		}
		fact := hdc.FactEnvelope{Data: data, Metadata: e.Metadata}
		if e.HasName {
			name := e.Name
			fact.Name = &name
		}
		facts = append(facts, fact)
	}
	return json.Marshal(hdc.KBEnvelope{StrategyID: ID, Version: 1, Geometry: geometry, Count: len(facts), Facts: facts})
}

// DeserializeKB implements hdc.Strategy.
func (s *Strategy) DeserializeKB(blob []byte) ([]hdc.KBEntry, error) {
	env, err := hdc.DecodeKBEnvelope(blob, ID)
	if err != nil {
		return nil, err
	}
	entries := make([]hdc.KBEntry, 0, len(env.Facts))
	for _, f := range env.Facts {
		var w sparseWire
		if err := json.Unmarshal(f.Data, &w); err != nil {
			return nil, fmt.Errorf("sparsepoly: decode fact data: %w", err)
		}
		v, err := fromWire(w)
		if err != nil {
			return nil, err
		}
		entry := hdc.KBEntry{Vector: v, Metadata: f.Metadata}
		if f.Name != nil {
			entry.Name = *f.Name
			entry.HasName = true
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// TopKSimilar implements hdc.Strategy via the shared generic scan.
func (s *Strategy) TopKSimilar(query hdc.Vector, vocabulary map[string]hdc.Vector, k int, stats *hdc.Stats) ([]hdc.Scored, error) {
	return hdc.TopKSimilar(s, query, vocabulary, k, stats)
}
