// Package densebinary implements the dense-binary HDC strategy: bit-packed
// vectors over a fixed geometry, XOR bind, majority-vote bundle, and
// Hamming similarity (§4.2).
package densebinary

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/bits"

	"github.com/OutfinityResearch/hdc-algebra"
	"github.com/OutfinityResearch/hdc-algebra/internal/hash"
)

// systemSeed draws an unpredictable seed from the OS CSPRNG for
// CreateRandom calls with no explicit seed (§5: "Math.random-style
// sources are permitted only when no seed is supplied").
func systemSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0x2545F4914F6CDD1D
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// ID is the strategy's registry name.
const ID = "dense-binary"

// Vector is a bit-packed little-endian 32-bit word array. Bit i lives at
// word i/32, offset i%32.
type Vector struct {
	geometry int // bit width
	words    []uint32
}

// StrategyID implements hdc.Vector.
func (v *Vector) StrategyID() string { return ID }

// Geometry implements hdc.Vector.
func (v *Vector) Geometry() int { return v.geometry }

func wordCount(geometry int) int { return (geometry + 31) / 32 }

func asVector(v hdc.Vector) (*Vector, error) {
	dv, ok := v.(*Vector)
	if !ok {
		return nil, hdc.ErrStrategyMismatch
	}
	return dv, nil
}

// Strategy implements hdc.Strategy for the dense-binary representation.
// It carries no per-instance state and is safe to share process-wide.
type Strategy struct{}

// New is the process-wide dense-binary strategy instance.
var New = &Strategy{}

// Meta implements hdc.Strategy.
func (s *Strategy) Meta() hdc.Metadata {
	return hdc.Metadata{
		ID:                        ID,
		DisplayName:               "Dense Binary",
		Description:               "Bit-packed binary vectors with XOR bind, majority-vote bundle, and Hamming similarity.",
		DefaultGeometry:           2048,
		RecommendedBundleCapacity: 16,
		MaxBundleCapacity:         1024,
		BindComplexity:            "O(G/32)",
		SparseOptimized:           false,
		Reasoning: hdc.ReasoningThresholds{
			StrongMatch:    0.85,
			WeakMatch:      0.6,
			OrthogonalBand: 0.05,
		},
		Holographic: hdc.HolographicThresholds{
			RandomBaseline:     0.5,
			BundleDegradeAfter: 16,
		},
	}
}

// BytesPerVector implements hdc.Strategy.
func (s *Strategy) BytesPerVector(geometry int) int { return wordCount(geometry) * 4 }

func validateGeometry(geometry int) error {
	if geometry <= 0 || geometry%32 != 0 {
		return fmt.Errorf("densebinary: geometry must be a positive multiple of 32, got %d: %w", geometry, hdc.ErrInvalidGeometry)
	}
	return nil
}

// CreateZero implements hdc.Strategy.
func (s *Strategy) CreateZero(geometry int) (hdc.Vector, error) {
	if err := validateGeometry(geometry); err != nil {
		return nil, err
	}
	return &Vector{geometry: geometry, words: make([]uint32, wordCount(geometry))}, nil
}

// CreateRandom implements hdc.Strategy.
func (s *Strategy) CreateRandom(geometry int, seed *uint64) (hdc.Vector, error) {
	if err := validateGeometry(geometry); err != nil {
		return nil, err
	}
	var prng *hash.PRNG
	if seed != nil {
		prng = hash.NewPRNG(*seed)
	} else {
		prng = hash.NewPRNG(systemSeed())
	}
	words := make([]uint32, wordCount(geometry))
	for i := range words {
		words[i] = prng.NextUint32()
	}
	return &Vector{geometry: geometry, words: words}, nil
}

// asciiStamp packs the ASCII bytes of name into 8 32-bit words, cycling
// the name if it is shorter than 32 bytes; empty names pad with zero.
func asciiStamp(name string) [8]uint32 {
	var stamp [8]uint32
	if len(name) == 0 {
		return stamp
	}
	for w := 0; w < 8; w++ {
		var word uint32
		for b := 0; b < 4; b++ {
			idx := (w*4 + b) % len(name)
			word |= uint32(name[idx]) << (8 * b)
		}
		stamp[w] = word
	}
	return stamp
}

// CreateFromName implements hdc.Strategy. §4.2: theory-scoped seed, ASCII
// stamp XORed with fresh PRNG words every 8-word (256-bit) stride.
func (s *Strategy) CreateFromName(name string, geometry int, theoryID string) (hdc.Vector, error) {
	if err := validateGeometry(geometry); err != nil {
		return nil, err
	}
	if theoryID == "" {
		theoryID = "default"
	}
	seed := hash.TheoryScopedSeed(theoryID, name)
	prng := hash.NewPRNG(seed)
	stamp := asciiStamp(name)

	words := make([]uint32, wordCount(geometry))
	for i := 0; i < len(words); i += 8 {
		strideLen := 8
		if i+strideLen > len(words) {
			strideLen = len(words) - i
		}
		for j := 0; j < strideLen; j++ {
			words[i+j] = stamp[j] ^ prng.NextUint32()
		}
	}
	return &Vector{geometry: geometry, words: words}, nil
}

// Bind implements hdc.Strategy: word-wise XOR.
func (s *Strategy) Bind(a, b hdc.Vector) (hdc.Vector, error) {
	av, err := asVector(a)
	if err != nil {
		return nil, err
	}
	bv, err := asVector(b)
	if err != nil {
		return nil, err
	}
	if av.geometry != bv.geometry {
		return nil, hdc.ErrGeometryMismatch
	}
	out := make([]uint32, len(av.words))
	for i := range out {
		out[i] = av.words[i] ^ bv.words[i]
	}
	return &Vector{geometry: av.geometry, words: out}, nil
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

// Bundle implements hdc.Strategy: per-bit majority vote, ties broken by
// tieBreaker (or 0 if nil), §4.2.
func (s *Strategy) Bundle(vs []hdc.Vector, tieBreaker hdc.Vector) (hdc.Vector, error) {
	if len(vs) == 0 {
		return nil, hdc.ErrEmptyInput
	}
	dvs := make([]*Vector, len(vs))
	geometry := 0
	for i, v := range vs {
		dv, err := asVector(v)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			geometry = dv.geometry
		} else if dv.geometry != geometry {
			return nil, hdc.ErrGeometryMismatch
		}
		dvs[i] = dv
	}
	var tb *Vector
	if tieBreaker != nil {
		tbv, err := asVector(tieBreaker)
		if err != nil {
			return nil, err
		}
		if tbv.geometry != geometry {
			return nil, hdc.ErrGeometryMismatch
		}
		tb = tbv
	}

	out := make([]uint32, wordCount(geometry))
	n := len(dvs)
	for bit := 0; bit < geometry; bit++ {
		wordIdx, offset := bit/32, uint(bit%32)
		ones := 0
		for _, dv := range dvs {
			if (dv.words[wordIdx]>>offset)&1 == 1 {
				ones++
			}
		}
		var result uint32
		switch {
		case ones*2 > n:
			result = 1
		case ones*2 < n:
			result = 0
		default: // exact tie (only possible when n is even)
			if tb != nil {
				result = (tb.words[wordIdx] >> offset) & 1
			} else {
				result = 0
			}
		}
		out[wordIdx] |= result << offset
	}
	return &Vector{geometry: geometry, words: out}, nil
}

// Unbind implements hdc.Strategy: XOR is its own inverse.
func (s *Strategy) Unbind(composite, component hdc.Vector) (hdc.Vector, error) {
	return s.Bind(composite, component)
}

func popcountWords(words []uint32) int {
	n := 0
	for _, w := range words {
		n += bits.OnesCount32(w)
	}
	return n
}

// Similarity implements hdc.Strategy: 1 - Hamming(a,b)/G.
func (s *Strategy) Similarity(a, b hdc.Vector) (float64, error) {
	av, err := asVector(a)
	if err != nil {
		return 0, err
	}
	bv, err := asVector(b)
	if err != nil {
		return 0, err
	}
	if av.geometry != bv.geometry {
		return 0, hdc.ErrGeometryMismatch
	}
	xored := make([]uint32, len(av.words))
	for i := range xored {
		xored[i] = av.words[i] ^ bv.words[i]
	}
	dist := popcountWords(xored)
	return 1.0 - float64(dist)/float64(av.geometry), nil
}

// Distance implements hdc.Strategy.
func (s *Strategy) Distance(a, b hdc.Vector) (float64, error) {
	sim, err := s.Similarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

// IsOrthogonal implements hdc.Strategy. threshold <= 0 defaults to the
// strategy's orthogonal band around its random baseline (0.5).
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
	dv, err := asVector(v)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(dv.words))
	copy(out, dv.words)
	return &Vector{geometry: dv.geometry, words: out}, nil
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
	if av.geometry != bv.geometry {
		return false, nil
	}
	for i := range av.words {
		if av.words[i] != bv.words[i] {
			return false, nil
		}
	}
	return true, nil
}

// Serialize implements hdc.Strategy, per §6: array of uint32, length
// ceil(G/32).
func (s *Strategy) Serialize(v hdc.Vector) ([]byte, error) {
	dv, err := asVector(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(dv.words)
	if err != nil {
		return nil, err
	}
	return json.Marshal(hdc.VectorEnvelope{StrategyID: ID, Version: 1, Geometry: dv.geometry, Data: data})
}

// Deserialize implements hdc.Strategy.
func (s *Strategy) Deserialize(payload []byte) (hdc.Vector, error) {
	env, err := hdc.DecodeVectorEnvelope(payload, ID)
	if err != nil {
		return nil, err
	}
	var words []uint32
	if err := json.Unmarshal(env.Data, &words); err != nil {
		return nil, fmt.Errorf("densebinary: decode data: %w", err)
	}
	return &Vector{geometry: env.Geometry, words: words}, nil
}

// SerializeKB implements hdc.Strategy.
func (s *Strategy) SerializeKB(entries []hdc.KBEntry) ([]byte, error) {
	geometry := 0
	facts := make([]hdc.FactEnvelope, 0, len(entries))
	for i, e := range entries {
		dv, err := asVector(e.Vector)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			geometry = dv.geometry
		} else if dv.geometry != geometry {
			return nil, hdc.ErrGeometryMismatch
		}
		data, err := json.Marshal(dv.words)
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
		var words []uint32
		if err := json.Unmarshal(f.Data, &words); err != nil {
			return nil, fmt.Errorf("densebinary: decode fact data: %w", err)
		}
		entry := hdc.KBEntry{Vector: &Vector{geometry: env.Geometry, words: words}, Metadata: f.Metadata}
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
