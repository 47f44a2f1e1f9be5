// Package exact implements the EXACT HDC strategy: polynomials over
// arbitrary-precision BigInt monomials with an OR-product bind, set-union
// bundle, subset-test unbind in two modes, and ⊥/⊤ absorbing normalization
// (§4.6). Unlike every other strategy, EXACT carries mandatory per-session
// state (the atom dictionary) and refuses to run on the process-global
// facade (§3 "Lifecycle", §4.6 "Session isolation").
package exact

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"math/bits"
	"sort"

	"github.com/OutfinityResearch/hdc-algebra"
	"github.com/OutfinityResearch/hdc-algebra/internal/hash"
)

// ID is the strategy's registry name.
const ID = "exact"

const defaultGeometry = 256

// Vector is a sorted, unique list of BigInt monomials (§4.6).
type Vector struct {
	geometry  int
	monomials []*big.Int
}

// StrategyID implements hdc.Vector.
func (v *Vector) StrategyID() string { return ID }

// Geometry implements hdc.Vector.
func (v *Vector) Geometry() int { return v.geometry }

// Monomials returns a read-only view of the vector's sorted monomial
// list.
func (v *Vector) Monomials() []*big.Int { return v.monomials }

func asVector(v hdc.Vector) (*Vector, error) {
	ev, ok := v.(*Vector)
	if !ok {
		return nil, hdc.ErrStrategyMismatch
	}
	return ev, nil
}

// Strategy implements hdc.Strategy for the EXACT representation. A nil
// session marks the process-global facade, which fails fast on every
// algebra call (§4.6).
type Strategy struct {
	session *Session
}

// Global is the process-wide EXACT facade. It answers read-only metadata
// queries but refuses every algebra operation with ErrSessionRequired;
// callers must build a session-local instance via NewSessionStrategy.
var Global = &Strategy{session: nil}

// NewSessionStrategy returns an EXACT strategy bound to session s. s must
// not be nil.
func NewSessionStrategy(s *Session) *Strategy {
	return &Strategy{session: s}
}

// Session returns the strategy's bound session, or nil for the global
// facade.
func (s *Strategy) Session() *Session { return s.session }

func (s *Strategy) requireSession() error {
	if s.session == nil {
		return fmt.Errorf("exact: algebra requires a session-local strategy instance (NewSessionStrategy): %w", hdc.ErrSessionRequired)
	}
	return nil
}

// Meta implements hdc.Strategy. Available without a session.
func (s *Strategy) Meta() hdc.Metadata {
	return hdc.Metadata{
		ID:                        ID,
		DisplayName:               "Exact (BigInt Polynomial)",
		Description:               "Sorted unique BigInt monomial lists; OR-product bind, set-union bundle, subset-test unbind, ⊥/⊤ absorbing normalization.",
		DefaultGeometry:           defaultGeometry,
		RecommendedBundleCapacity: 64,
		MaxBundleCapacity:         0, // bounded by PolyTermLimit, not a fixed count
		BindComplexity:            "O(|A|*|B|)",
		SparseOptimized:           true,
		Reasoning: hdc.ReasoningThresholds{
			StrongMatch:    0.75,
			WeakMatch:      0.25,
			OrthogonalBand: 0.05,
		},
		Holographic: hdc.HolographicThresholds{
			RandomBaseline:     0.0,
			BundleDegradeAfter: 200000,
		},
	}
}

// BytesPerVector implements hdc.Strategy: a rough estimate assuming one
// geometry-bit-wide monomial; real polynomials vary with term count.
func (s *Strategy) BytesPerVector(geometry int) int {
	if geometry <= 0 {
		geometry = defaultGeometry
	}
	return (geometry + 7) / 8
}

func popcountBig(m *big.Int) int {
	n := 0
	for _, w := range m.Bits() {
		n += bits.OnesCount(uint(w))
	}
	return n
}

func setBitIndices(m *big.Int) []int {
	out := make([]int, 0, popcountBig(m))
	for i := 0; i < m.BitLen(); i++ {
		if m.Bit(i) == 1 {
			out = append(out, i)
		}
	}
	return out
}

func sortMonomials(ms []*big.Int) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].Cmp(ms[j]) < 0 })
}

func dedupeSortedMonomials(ms []*big.Int) []*big.Int {
	if len(ms) == 0 {
		return ms
	}
	sortMonomials(ms)
	out := ms[:1]
	for _, m := range ms[1:] {
		if m.Cmp(out[len(out)-1]) != 0 {
			out = append(out, m)
		}
	}
	return out
}

// normalize applies §4.6's monomial- then polynomial-level absorption:
// any monomial touching ⊥ is replaced with ⊥ within the polynomial; else
// any monomial touching ⊤ (directly, or via exceeding MonomBitLimit) is
// replaced with ⊤; finally, after deduplication, a polynomial whose term
// count still exceeds PolyTermLimit collapses to [⊤]. ⊥ wins over ⊤.
func (s *Session) normalize(monomials []*big.Int) []*big.Int {
	bottomIdx, topIdx := s.BottomIndex(), s.TopIndex()
	ceilings := s.Options.Ceilings
	mapped := make([]*big.Int, len(monomials))
	for i, m := range monomials {
		switch {
		case m.Bit(bottomIdx) == 1:
			mapped[i] = s.BottomMonomial()
		case m.Bit(topIdx) == 1:
			mapped[i] = s.TopMonomial()
		case popcountBig(m) > ceilings.MonomBitLimit:
			mapped[i] = s.TopMonomial()
		default:
			mapped[i] = m
		}
	}
	deduped := dedupeSortedMonomials(mapped)
	if len(deduped) > ceilings.PolyTermLimit {
		return []*big.Int{s.TopMonomial()}
	}
	return deduped
}

func validateGeometry(geometry int) (int, error) {
	if geometry < 0 {
		return 0, fmt.Errorf("exact: geometry must be non-negative, got %d: %w", geometry, hdc.ErrInvalidGeometry)
	}
	if geometry == 0 {
		return defaultGeometry, nil
	}
	return geometry, nil
}

// CreateZero implements hdc.Strategy: the empty polynomial.
func (s *Strategy) CreateZero(geometry int) (hdc.Vector, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	g, err := validateGeometry(geometry)
	if err != nil {
		return nil, err
	}
	return &Vector{geometry: g}, nil
}

func systemSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0x2545F4914F6CDD1D
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// CreateRandom implements hdc.Strategy: a single monomial with a small
// random set of bits above the two reserved indices. This is a layout-only
// convenience (§4.6 does not define a canonical "random" factory); it
// never consults the atom dictionary, so its bits do not necessarily
// correspond to any registered atom name.
func (s *Strategy) CreateRandom(geometry int, seed *uint64) (hdc.Vector, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	g, err := validateGeometry(geometry)
	if err != nil {
		return nil, err
	}
	sd := systemSeed()
	if seed != nil {
		sd = *seed
	}
	prng := hash.NewPRNG(sd)
	numBits := 1 + int(prng.NextUint32()%4)
	m := new(big.Int)
	span := g - 2
	if span < 1 {
		span = 1
	}
	for i := 0; i < numBits; i++ {
		bit := 2 + int(prng.NextUint32())%span
		m.SetBit(m, bit, 1)
	}
	monomials := s.session.normalize([]*big.Int{m})
	return &Vector{geometry: g, monomials: monomials}, nil
}

// CreateFromName implements hdc.Strategy: ensures name has a dictionary
// index (theory-scoped, per the global invariant that identity is a pure
// function of (name, geometry, theoryId, strategyId), §3 invariant 6; see
// DESIGN.md) and returns the singleton polynomial [1<<idx].
func (s *Strategy) CreateFromName(name string, geometry int, theoryID string) (hdc.Vector, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	g, err := validateGeometry(geometry)
	if err != nil {
		return nil, err
	}
	if theoryID == "" {
		theoryID = "default"
	}
	qualified := theoryID + ":" + name
	idx := s.session.AtomIndex(qualified)
	m := new(big.Int).Lsh(big.NewInt(1), uint(idx))
	return &Vector{geometry: g, monomials: s.session.normalize([]*big.Int{m})}, nil
}

// Bind implements hdc.Strategy: the OR-product {a|b : a in A, b in B},
// sorted, deduplicated, and normalized (§4.6).
func (s *Strategy) Bind(a, b hdc.Vector) (hdc.Vector, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	av, err := asVector(a)
	if err != nil {
		return nil, err
	}
	bv, err := asVector(b)
	if err != nil {
		return nil, err
	}
	out := make([]*big.Int, 0, len(av.monomials)*len(bv.monomials))
	for _, x := range av.monomials {
		for _, y := range bv.monomials {
			out = append(out, new(big.Int).Or(x, y))
		}
	}
	geometry := av.geometry
	if bv.geometry > geometry {
		geometry = bv.geometry
	}
	return &Vector{geometry: geometry, monomials: s.session.normalize(out)}, nil
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

// Bundle implements hdc.Strategy: sorted set union of monomials, then
// normalization. tieBreaker is unused; EXACT bundling has no tie to
// break.
func (s *Strategy) Bundle(vs []hdc.Vector, tieBreaker hdc.Vector) (hdc.Vector, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, hdc.ErrEmptyInput
	}
	geometry := 0
	union := make([]*big.Int, 0)
	for i, v := range vs {
		ev, err := asVector(v)
		if err != nil {
			return nil, err
		}
		if i == 0 || ev.geometry > geometry {
			geometry = ev.geometry
		}
		union = append(union, ev.monomials...)
	}
	return &Vector{geometry: geometry, monomials: s.session.normalize(union)}, nil
}

func isSubset(q, t *big.Int) bool {
	tmp := new(big.Int).And(t, q)
	return tmp.Cmp(q) == 0
}

func residueForSingle(composite []*big.Int, q *big.Int) []*big.Int {
	out := make([]*big.Int, 0, len(composite))
	for _, t := range composite {
		if isSubset(q, t) {
			out = append(out, new(big.Int).AndNot(t, q))
		}
	}
	return dedupeSortedMonomials(out)
}

func intersectSorted(a, b []*big.Int) []*big.Int {
	out := make([]*big.Int, 0)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		c := a[i].Cmp(b[j])
		switch {
		case c == 0:
			out = append(out, a[i])
			i++
			j++
		case c < 0:
			i++
		default:
			j++
		}
	}
	return out
}

// Unbind implements hdc.Strategy under the session's configured mode
// (§4.6): mode A (existential quotient) emits t&^q for every (t,q) pair
// with q subset of t; mode B (right residual) intersects the mode-A
// per-term residues.
func (s *Strategy) Unbind(composite, component hdc.Vector) (hdc.Vector, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	cv, err := asVector(composite)
	if err != nil {
		return nil, err
	}
	qv, err := asVector(component)
	if err != nil {
		return nil, err
	}
	if len(qv.monomials) == 0 {
		return &Vector{geometry: cv.geometry}, nil
	}
	var result []*big.Int
	switch s.session.Options.UnbindMode {
	case hdc.UnbindRightResidual:
		result = residueForSingle(cv.monomials, qv.monomials[0])
		for _, q := range qv.monomials[1:] {
			if len(result) == 0 {
				break
			}
			result = intersectSorted(result, residueForSingle(cv.monomials, q))
		}
	default: // UnbindExistentialQuotient
		merged := make([]*big.Int, 0)
		for _, q := range qv.monomials {
			merged = append(merged, residueForSingle(cv.monomials, q)...)
		}
		result = dedupeSortedMonomials(merged)
	}
	return &Vector{geometry: cv.geometry, monomials: s.session.normalize(result)}, nil
}

// Similarity implements hdc.Strategy: align sorted monomial lists by
// position (padding the shorter with 0), compute bit-level Jaccard per
// aligned pair (0|0 treated as 1), and return the mean (§4.6).
func (s *Strategy) Similarity(a, b hdc.Vector) (float64, error) {
	av, err := asVector(a)
	if err != nil {
		return 0, err
	}
	bv, err := asVector(b)
	if err != nil {
		return 0, err
	}
	n := len(av.monomials)
	if len(bv.monomials) > n {
		n = len(bv.monomials)
	}
	if n == 0 {
		return 1.0, nil
	}
	zero := big.NewInt(0)
	sum := 0.0
	for i := 0; i < n; i++ {
		ma, mb := zero, zero
		if i < len(av.monomials) {
			ma = av.monomials[i]
		}
		if i < len(bv.monomials) {
			mb = bv.monomials[i]
		}
		andCount := popcountBig(new(big.Int).And(ma, mb))
		orCount := popcountBig(new(big.Int).Or(ma, mb))
		if orCount == 0 {
			sum += 1.0
			continue
		}
		sum += float64(andCount) / float64(orCount)
	}
	return sum / float64(n), nil
}

// Distance implements hdc.Strategy.
func (s *Strategy) Distance(a, b hdc.Vector) (float64, error) {
	sim, err := s.Similarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
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
	ev, err := asVector(v)
	if err != nil {
		return nil, err
	}
	out := make([]*big.Int, len(ev.monomials))
	for i, m := range ev.monomials {
		out[i] = new(big.Int).Set(m)
	}
	return &Vector{geometry: ev.geometry, monomials: out}, nil
}

// Equals implements hdc.Strategy: compares monomial lists only (geometry
// is a layout hint, not part of EXACT's algebraic identity).
func (s *Strategy) Equals(a, b hdc.Vector) (bool, error) {
	av, err := asVector(a)
	if err != nil {
		return false, err
	}
	bv, err := asVector(b)
	if err != nil {
		return false, err
	}
	if len(av.monomials) != len(bv.monomials) {
		return false, nil
	}
	for i := range av.monomials {
		if av.monomials[i].Cmp(bv.monomials[i]) != 0 {
			return false, nil
		}
	}
	return true, nil
}

// Serialize implements hdc.Strategy: string[] of decimal BigInts (§6).
func (s *Strategy) Serialize(v hdc.Vector) ([]byte, error) {
	ev, err := asVector(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(monomialsToStrings(ev.monomials))
	if err != nil {
		return nil, err
	}
	return json.Marshal(hdc.VectorEnvelope{StrategyID: ID, Version: 1, Geometry: ev.geometry, Data: data})
}

func monomialsToStrings(ms []*big.Int) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.String()
	}
	return out
}

func monomialsFromStrings(strs []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(strs))
	for i, str := range strs {
		m, ok := new(big.Int).SetString(str, 10)
		if !ok {
			return nil, fmt.Errorf("exact: decode monomial %q: %w", str, hdc.ErrInvalidArgument)
		}
		out[i] = m
	}
	return out, nil
}

// Deserialize implements hdc.Strategy.
func (s *Strategy) Deserialize(payload []byte) (hdc.Vector, error) {
	env, err := hdc.DecodeVectorEnvelope(payload, ID)
	if err != nil {
		return nil, err
	}
	var strs []string
	if err := json.Unmarshal(env.Data, &strs); err != nil {
		return nil, fmt.Errorf("exact: decode data: %w", err)
	}
	ms, err := monomialsFromStrings(strs)
	if err != nil {
		return nil, err
	}
	return &Vector{geometry: env.Geometry, monomials: ms}, nil
}

// SerializeKB implements hdc.Strategy.
func (s *Strategy) SerializeKB(entries []hdc.KBEntry) ([]byte, error) {
	geometry := 0
	facts := make([]hdc.FactEnvelope, 0, len(entries))
	for i, e := range entries {
		ev, err := asVector(e.Vector)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			geometry = ev.geometry
		}
		data, err := json.Marshal(monomialsToStrings(ev.monomials))
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
		var strs []string
		if err := json.Unmarshal(f.Data, &strs); err != nil {
			return nil, fmt.Errorf("exact: decode fact data: %w", err)
		}
		ms, err := monomialsFromStrings(strs)
		if err != nil {
			return nil, err
		}
		entry := hdc.KBEntry{Vector: &Vector{geometry: env.Geometry, monomials: ms}, Metadata: f.Metadata}
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
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	return hdc.TopKSimilar(s, query, vocabulary, k, stats)
}

func isReservedName(name string) bool {
	return name == BottomName || name == TopName
}

// DecodeUnboundCandidates implements hdc.CandidateDecoder: projects an
// unbound polynomial onto a ranked list of plausible atomic names (§4.6).
func (s *Strategy) DecodeUnboundCandidates(unbound hdc.Vector, opts hdc.DecodeOptions) ([]hdc.Candidate, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	uv, err := asVector(unbound)
	if err != nil {
		return nil, err
	}
	domain := toSet(opts.Domain)
	known := toSet(opts.Known)

	witnesses := map[string]int{}
	order := make([]string, 0)
	for _, m := range uv.monomials {
		for _, idx := range setBitIndices(m) {
			name, ok := s.session.AtomName(idx)
			if !ok {
				continue
			}
			if opts.ExcludeReserved && isReservedName(name) {
				continue
			}
			if known[name] {
				continue
			}
			if len(domain) > 0 && !domain[name] {
				continue
			}
			if _, seen := witnesses[name]; !seen {
				order = append(order, name)
			}
			witnesses[name]++
		}
	}
	total := 0
	for _, w := range witnesses {
		total += w
	}
	candidates := make([]hdc.Candidate, 0, len(order))
	for _, name := range order {
		w := witnesses[name]
		score := 0.0
		if total > 0 {
			score = float64(w) / float64(total)
		}
		candidates = append(candidates, hdc.Candidate{Name: name, Witnesses: w, Score: score})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Witnesses != candidates[j].Witnesses {
			return candidates[i].Witnesses > candidates[j].Witnesses
		}
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Name < candidates[j].Name
	})
	if opts.MaxCandidates > 0 && opts.MaxCandidates < len(candidates) {
		candidates = candidates[:opts.MaxCandidates]
	}
	return candidates, nil
}

func toSet(xs []string) map[string]bool {
	if len(xs) == 0 {
		return nil
	}
	out := make(map[string]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}
