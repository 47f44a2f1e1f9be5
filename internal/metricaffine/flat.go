// Package metricaffine implements the metric-affine HDC strategies: byte
// vectors over [0,255]^G with XOR bind, arithmetic-mean bundle, and
// normalized L1 similarity. Flat holds a single running mean per vector
// (§4.3); Elastic chunks bundles to preserve superposition depth (§4.4).
package metricaffine

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/OutfinityResearch/hdc-algebra"
	"github.com/OutfinityResearch/hdc-algebra/internal/hash"
)

// FlatID is the flat metric-affine strategy's registry name.
const FlatID = "metric-affine"

const defaultFlatGeometry = 32

// FlatVector is a plain byte vector in [0,255]^G.
type FlatVector struct {
	bytes []byte
}

// StrategyID implements hdc.Vector.
func (v *FlatVector) StrategyID() string { return FlatID }

// Geometry implements hdc.Vector.
func (v *FlatVector) Geometry() int { return len(v.bytes) }

func asFlat(v hdc.Vector) (*FlatVector, error) {
	fv, ok := v.(*FlatVector)
	if !ok {
		return nil, hdc.ErrStrategyMismatch
	}
	return fv, nil
}

func systemSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0x2545F4914F6CDD1D
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func clampByte(x float64) byte {
	r := math.Round(x)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return byte(r)
}

// FlatStrategy implements hdc.Strategy for the flat metric-affine
// representation. Stateless, safe to share process-wide.
type FlatStrategy struct{}

// NewFlat is the process-wide flat metric-affine strategy instance.
var NewFlat = &FlatStrategy{}

// Meta implements hdc.Strategy.
func (s *FlatStrategy) Meta() hdc.Metadata {
	return hdc.Metadata{
		ID:                        FlatID,
		DisplayName:               "Metric Affine (flat)",
		Description:               "Byte-channel vectors in [0,255]^G with XOR bind and arithmetic-mean bundle.",
		DefaultGeometry:           defaultFlatGeometry,
		RecommendedBundleCapacity: 16,
		MaxBundleCapacity:         4096,
		BindComplexity:            "O(G)",
		SparseOptimized:           false,
		Reasoning: hdc.ReasoningThresholds{
			StrongMatch:    0.85,
			WeakMatch:      0.72,
			OrthogonalBand: 0.05,
		},
		Holographic: hdc.HolographicThresholds{
			RandomBaseline:     0.67,
			BundleDegradeAfter: 16,
		},
	}
}

// BytesPerVector implements hdc.Strategy.
func (s *FlatStrategy) BytesPerVector(geometry int) int { return geometry }

func validateFlatGeometry(geometry int) error {
	if geometry <= 0 {
		return fmt.Errorf("metricaffine: geometry must be positive, got %d: %w", geometry, hdc.ErrInvalidGeometry)
	}
	return nil
}

// CreateZero implements hdc.Strategy.
func (s *FlatStrategy) CreateZero(geometry int) (hdc.Vector, error) {
	if err := validateFlatGeometry(geometry); err != nil {
		return nil, err
	}
	return &FlatVector{bytes: make([]byte, geometry)}, nil
}

// CreateRandom implements hdc.Strategy.
func (s *FlatStrategy) CreateRandom(geometry int, seed *uint64) (hdc.Vector, error) {
	if err := validateFlatGeometry(geometry); err != nil {
		return nil, err
	}
	sd := systemSeed()
	if seed != nil {
		sd = *seed
	}
	prng := hash.NewPRNG(sd)
	out := make([]byte, geometry)
	for i := range out {
		out[i] = byte(prng.NextUint32())
	}
	return &FlatVector{bytes: out}, nil
}

// CreateFromName implements hdc.Strategy: PRNG-filled bytes XORed with
// the ASCII codes of name over the first min(|name|,G) positions (§4.3).
func (s *FlatStrategy) CreateFromName(name string, geometry int, theoryID string) (hdc.Vector, error) {
	if err := validateFlatGeometry(geometry); err != nil {
		return nil, err
	}
	if theoryID == "" {
		theoryID = "default"
	}
	prng := hash.NewPRNG(hash.TheoryScopedSeed(theoryID, name))
	out := make([]byte, geometry)
	for i := range out {
		out[i] = byte(prng.NextUint32())
	}
	n := len(name)
	if n > geometry {
		n = geometry
	}
	for i := 0; i < n; i++ {
		out[i] ^= name[i]
	}
	return &FlatVector{bytes: out}, nil
}

// Bind implements hdc.Strategy: byte-wise XOR.
func (s *FlatStrategy) Bind(a, b hdc.Vector) (hdc.Vector, error) {
	av, err := asFlat(a)
	if err != nil {
		return nil, err
	}
	bv, err := asFlat(b)
	if err != nil {
		return nil, err
	}
	if len(av.bytes) != len(bv.bytes) {
		return nil, hdc.ErrGeometryMismatch
	}
	out := make([]byte, len(av.bytes))
	for i := range out {
		out[i] = av.bytes[i] ^ bv.bytes[i]
	}
	return &FlatVector{bytes: out}, nil
}

// BindAll implements hdc.Strategy.
func (s *FlatStrategy) BindAll(vs ...hdc.Vector) (hdc.Vector, error) {
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

// Bundle implements hdc.Strategy: per-byte arithmetic mean, rounded and
// clamped to [0,255] (§4.3). tieBreaker is unused by the flat variant;
// the mean never needs one.
func (s *FlatStrategy) Bundle(vs []hdc.Vector, tieBreaker hdc.Vector) (hdc.Vector, error) {
	if len(vs) == 0 {
		return nil, hdc.ErrEmptyInput
	}
	fvs := make([]*FlatVector, len(vs))
	geometry := 0
	for i, v := range vs {
		fv, err := asFlat(v)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			geometry = len(fv.bytes)
		} else if len(fv.bytes) != geometry {
			return nil, hdc.ErrGeometryMismatch
		}
		fvs[i] = fv
	}
	out := make([]byte, geometry)
	n := float64(len(fvs))
	for i := 0; i < geometry; i++ {
		sum := 0.0
		for _, fv := range fvs {
			sum += float64(fv.bytes[i])
		}
		out[i] = clampByte(sum / n)
	}
	return &FlatVector{bytes: out}, nil
}

// Unbind implements hdc.Strategy: XOR is self-inverse.
func (s *FlatStrategy) Unbind(composite, component hdc.Vector) (hdc.Vector, error) {
	return s.Bind(composite, component)
}

func l1Distance(a, b []byte) int {
	d := 0
	for i := range a {
		diff := int(a[i]) - int(b[i])
		if diff < 0 {
			diff = -diff
		}
		d += diff
	}
	return d
}

// Similarity implements hdc.Strategy: 1 - L1(a,b)/(G*255).
func (s *FlatStrategy) Similarity(a, b hdc.Vector) (float64, error) {
	av, err := asFlat(a)
	if err != nil {
		return 0, err
	}
	bv, err := asFlat(b)
	if err != nil {
		return 0, err
	}
	if len(av.bytes) != len(bv.bytes) {
		return 0, hdc.ErrGeometryMismatch
	}
	if len(av.bytes) == 0 {
		return 1.0, nil
	}
	dist := l1Distance(av.bytes, bv.bytes)
	return 1.0 - float64(dist)/(float64(len(av.bytes))*255.0), nil
}

// Distance implements hdc.Strategy.
func (s *FlatStrategy) Distance(a, b hdc.Vector) (float64, error) {
	sim, err := s.Similarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

// IsOrthogonal implements hdc.Strategy: |sim - 0.67| < threshold (default
// the strategy's OrthogonalBand), reflecting the nonzero random baseline.
func (s *FlatStrategy) IsOrthogonal(a, b hdc.Vector, threshold float64) (bool, error) {
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
func (s *FlatStrategy) Clone(v hdc.Vector) (hdc.Vector, error) {
	fv, err := asFlat(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(fv.bytes))
	copy(out, fv.bytes)
	return &FlatVector{bytes: out}, nil
}

// Equals implements hdc.Strategy.
func (s *FlatStrategy) Equals(a, b hdc.Vector) (bool, error) {
	av, err := asFlat(a)
	if err != nil {
		return false, err
	}
	bv, err := asFlat(b)
	if err != nil {
		return false, err
	}
	if len(av.bytes) != len(bv.bytes) {
		return false, nil
	}
	for i := range av.bytes {
		if av.bytes[i] != bv.bytes[i] {
			return false, nil
		}
	}
	return true, nil
}

// Serialize implements hdc.Strategy: array of byte integers, length G.
func (s *FlatStrategy) Serialize(v hdc.Vector) ([]byte, error) {
	fv, err := asFlat(v)
	if err != nil {
		return nil, err
	}
	ints := make([]int, len(fv.bytes))
	for i, b := range fv.bytes {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return nil, err
	}
	return json.Marshal(hdc.VectorEnvelope{StrategyID: FlatID, Version: 1, Geometry: len(fv.bytes), Data: data})
}

// Deserialize implements hdc.Strategy.
func (s *FlatStrategy) Deserialize(payload []byte) (hdc.Vector, error) {
	env, err := hdc.DecodeVectorEnvelope(payload, FlatID)
	if err != nil {
		return nil, err
	}
	var ints []int
	if err := json.Unmarshal(env.Data, &ints); err != nil {
		return nil, fmt.Errorf("metricaffine: decode data: %w", err)
	}
	out := make([]byte, len(ints))
	for i, n := range ints {
		out[i] = byte(n)
	}
	return &FlatVector{bytes: out}, nil
}

// SerializeKB implements hdc.Strategy.
func (s *FlatStrategy) SerializeKB(entries []hdc.KBEntry) ([]byte, error) {
	geometry := 0
	facts := make([]hdc.FactEnvelope, 0, len(entries))
	for i, e := range entries {
		fv, err := asFlat(e.Vector)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			geometry = len(fv.bytes)
		} else if len(fv.bytes) != geometry {
			return nil, hdc.ErrGeometryMismatch
		}
		ints := make([]int, len(fv.bytes))
		for j, b := range fv.bytes {
			ints[j] = int(b)
		}
		data, err := json.Marshal(ints)
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
	return json.Marshal(hdc.KBEnvelope{StrategyID: FlatID, Version: 1, Geometry: geometry, Count: len(facts), Facts: facts})
}

// DeserializeKB implements hdc.Strategy.
func (s *FlatStrategy) DeserializeKB(blob []byte) ([]hdc.KBEntry, error) {
	env, err := hdc.DecodeKBEnvelope(blob, FlatID)
	if err != nil {
		return nil, err
	}
	entries := make([]hdc.KBEntry, 0, len(env.Facts))
	for _, f := range env.Facts {
		var ints []int
		if err := json.Unmarshal(f.Data, &ints); err != nil {
			return nil, fmt.Errorf("metricaffine: decode fact data: %w", err)
		}
		out := make([]byte, len(ints))
		for i, n := range ints {
			out[i] = byte(n)
		}
		entry := hdc.KBEntry{Vector: &FlatVector{bytes: out}, Metadata: f.Metadata}
		if f.Name != nil {
			entry.Name = *f.Name
			entry.HasName = true
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// TopKSimilar implements hdc.Strategy via the shared generic scan.
func (s *FlatStrategy) TopKSimilar(query hdc.Vector, vocabulary map[string]hdc.Vector, k int, stats *hdc.Stats) ([]hdc.Scored, error) {
	return hdc.TopKSimilar(s, query, vocabulary, k, stats)
}
