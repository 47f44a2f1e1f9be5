package metricaffine

import (
	"encoding/json"
	"fmt"

	"github.com/OutfinityResearch/hdc-algebra"
	"github.com/OutfinityResearch/hdc-algebra/internal/hash"
)

// ElasticID is the elastic (chunked) metric-affine strategy's registry
// name.
const ElasticID = "metric-affine-elastic"

const defaultChunkCapacity = 32

// Chunk is a mean-chunk record (§3): k accumulated atomics, the
// unclamped per-channel running sum, and the rounded per-channel mean.
type Chunk struct {
	K    int
	Sum  []int
	Mean []byte
}

func newChunkFromAtomic(atomic []byte) Chunk {
	sum := make([]int, len(atomic))
	mean := make([]byte, len(atomic))
	for i, b := range atomic {
		sum[i] = int(b)
		mean[i] = b
	}
	return Chunk{K: 1, Sum: sum, Mean: mean}
}

func (c *Chunk) absorb(atomic []byte) {
	c.K++
	for i := range c.Sum {
		c.Sum[i] += int(atomic[i])
		c.Mean[i] = clampByte(float64(c.Sum[i]) / float64(c.K))
	}
}

// ElasticVector is either atomic (a single byte vector) or a bundle (an
// ordered list of mean chunks plus a cached summary byte vector, §4.4).
type ElasticVector struct {
	geometry      int
	atomic        []byte // non-nil iff atomic
	chunks        []Chunk
	chunkCapacity int
	summary       []byte
}

// StrategyID implements hdc.Vector.
func (v *ElasticVector) StrategyID() string { return ElasticID }

// Geometry implements hdc.Vector.
func (v *ElasticVector) Geometry() int { return v.geometry }

// IsAtomic reports whether this vector is a single atomic byte vector
// rather than a chunked bundle.
func (v *ElasticVector) IsAtomic() bool { return v.atomic != nil }

func asElastic(v hdc.Vector) (*ElasticVector, error) {
	ev, ok := v.(*ElasticVector)
	if !ok {
		return nil, hdc.ErrStrategyMismatch
	}
	return ev, nil
}

func computeSummary(geometry int, chunks []Chunk) []byte {
	totalK := 0
	sum := make([]int, geometry)
	for _, c := range chunks {
		totalK += c.K
		for i := range sum {
			sum[i] += c.Sum[i]
		}
	}
	out := make([]byte, geometry)
	if totalK == 0 {
		return out
	}
	for i := range out {
		out[i] = clampByte(float64(sum[i]) / float64(totalK))
	}
	return out
}

func (v *ElasticVector) summaryBytes() []byte {
	if v.IsAtomic() {
		return v.atomic
	}
	return v.summary
}

// ElasticStrategy implements hdc.Strategy for the chunked metric-affine
// representation. Stateless beyond its configured chunk capacity.
type ElasticStrategy struct {
	ChunkCapacity int
}

// NewElastic is the process-wide elastic metric-affine strategy instance,
// using the documented default chunk capacity of 32.
var NewElastic = &ElasticStrategy{ChunkCapacity: defaultChunkCapacity}

func (s *ElasticStrategy) capacity() int {
	if s.ChunkCapacity <= 0 {
		return defaultChunkCapacity
	}
	return s.ChunkCapacity
}

// Meta implements hdc.Strategy.
func (s *ElasticStrategy) Meta() hdc.Metadata {
	return hdc.Metadata{
		ID:                        ElasticID,
		DisplayName:               "Metric Affine (elastic)",
		Description:               "Chunked metric-affine bundles that preserve superposition depth across bind.",
		DefaultGeometry:           defaultFlatGeometry,
		RecommendedBundleCapacity: s.capacity(),
		MaxBundleCapacity:         s.capacity() * 64,
		BindComplexity:            "O(G) atomic; O(chunks_a * chunks_b) bundle-bundle",
		SparseOptimized:           false,
		Reasoning: hdc.ReasoningThresholds{
			StrongMatch:    0.85,
			WeakMatch:      0.72,
			OrthogonalBand: 0.05,
		},
		Holographic: hdc.HolographicThresholds{
			RandomBaseline:     0.67,
			BundleDegradeAfter: s.capacity(),
		},
	}
}

// BytesPerVector implements hdc.Strategy (atomic estimate; bundles grow
// with chunk count).
func (s *ElasticStrategy) BytesPerVector(geometry int) int { return geometry }

// CreateZero implements hdc.Strategy: an atomic all-zero vector.
func (s *ElasticStrategy) CreateZero(geometry int) (hdc.Vector, error) {
	if err := validateFlatGeometry(geometry); err != nil {
		return nil, err
	}
	return &ElasticVector{geometry: geometry, atomic: make([]byte, geometry), chunkCapacity: s.capacity()}, nil
}

// CreateRandom implements hdc.Strategy: an atomic random vector.
func (s *ElasticStrategy) CreateRandom(geometry int, seed *uint64) (hdc.Vector, error) {
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
	return &ElasticVector{geometry: geometry, atomic: out, chunkCapacity: s.capacity()}, nil
}

// CreateFromName implements hdc.Strategy: an atomic vector built exactly
// as the flat variant's from-name factory.
func (s *ElasticStrategy) CreateFromName(name string, geometry int, theoryID string) (hdc.Vector, error) {
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
	return &ElasticVector{geometry: geometry, atomic: out, chunkCapacity: s.capacity()}, nil
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// Bind implements hdc.Strategy across the four shape combinations of
// §4.4.
func (s *ElasticStrategy) Bind(a, b hdc.Vector) (hdc.Vector, error) {
	av, err := asElastic(a)
	if err != nil {
		return nil, err
	}
	bv, err := asElastic(b)
	if err != nil {
		return nil, err
	}
	if av.geometry != bv.geometry {
		return nil, hdc.ErrGeometryMismatch
	}
	switch {
	case av.IsAtomic() && bv.IsAtomic():
		return &ElasticVector{geometry: av.geometry, atomic: xorBytes(av.atomic, bv.atomic), chunkCapacity: s.capacity()}, nil
	case !av.IsAtomic() && bv.IsAtomic():
		return s.bindBundleAtomic(av, bv.atomic), nil
	case av.IsAtomic() && !bv.IsAtomic():
		return s.bindBundleAtomic(bv, av.atomic), nil
	default:
		return s.bindBundleBundle(av, bv), nil
	}
}

func (s *ElasticStrategy) bindBundleAtomic(bundle *ElasticVector, key []byte) *ElasticVector {
	chunks := make([]Chunk, len(bundle.chunks))
	for i, c := range bundle.chunks {
		mean := xorBytes(c.Mean, key)
		sum := make([]int, len(mean))
		for j, m := range mean {
			sum[j] = int(m) * c.K
		}
		chunks[i] = Chunk{K: c.K, Sum: sum, Mean: mean}
	}
	out := &ElasticVector{geometry: bundle.geometry, chunks: chunks, chunkCapacity: s.capacity()}
	out.summary = computeSummary(out.geometry, out.chunks)
	return out
}

func (s *ElasticStrategy) bindBundleBundle(a, b *ElasticVector) *ElasticVector {
	chunks := make([]Chunk, 0, len(a.chunks)*len(b.chunks))
	for _, ca := range a.chunks {
		for _, cb := range b.chunks {
			mean := xorBytes(ca.Mean, cb.Mean)
			sum := make([]int, len(mean))
			for i, m := range mean {
				sum[i] = int(m)
			}
			chunks = append(chunks, Chunk{K: 1, Sum: sum, Mean: mean})
		}
	}
	out := &ElasticVector{geometry: a.geometry, chunks: chunks, chunkCapacity: s.capacity()}
	out.summary = computeSummary(out.geometry, out.chunks)
	return out
}

// BindAll implements hdc.Strategy.
func (s *ElasticStrategy) BindAll(vs ...hdc.Vector) (hdc.Vector, error) {
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

// Bundle implements hdc.Strategy: atomics append into the open (not-full)
// last chunk; bundles concatenate their chunk lists without nesting
// (§4.4). tieBreaker is unused; elastic bundling has no tie to break.
func (s *ElasticStrategy) Bundle(vs []hdc.Vector, tieBreaker hdc.Vector) (hdc.Vector, error) {
	if len(vs) == 0 {
		return nil, hdc.ErrEmptyInput
	}
	capacity := s.capacity()
	geometry := 0
	var chunks []Chunk
	for i, v := range vs {
		ev, err := asElastic(v)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			geometry = ev.geometry
		} else if ev.geometry != geometry {
			return nil, hdc.ErrGeometryMismatch
		}
		if ev.IsAtomic() {
			if len(chunks) > 0 && chunks[len(chunks)-1].K < capacity {
				last := &chunks[len(chunks)-1]
				last.absorb(ev.atomic)
			} else {
				chunks = append(chunks, newChunkFromAtomic(ev.atomic))
			}
		} else {
			for _, c := range ev.chunks {
				chunks = append(chunks, Chunk{K: c.K, Sum: append([]int(nil), c.Sum...), Mean: append([]byte(nil), c.Mean...)})
			}
		}
	}
	out := &ElasticVector{geometry: geometry, chunks: chunks, chunkCapacity: capacity}
	out.summary = computeSummary(geometry, chunks)
	return out, nil
}

// Unbind implements hdc.Strategy: identical to Bind (XOR self-inverse).
func (s *ElasticStrategy) Unbind(composite, component hdc.Vector) (hdc.Vector, error) {
	return s.Bind(composite, component)
}

func l1Similarity(a, b []byte) float64 {
	if len(a) == 0 {
		return 1.0
	}
	dist := l1Distance(a, b)
	return 1.0 - float64(dist)/(float64(len(a))*255.0)
}

// Similarity implements hdc.Strategy: atomic-atomic uses L1; any shape
// involving a bundle returns the max L1-similarity over the relevant
// chunk means, "any member matches" semantics (§4.4).
func (s *ElasticStrategy) Similarity(a, b hdc.Vector) (float64, error) {
	av, err := asElastic(a)
	if err != nil {
		return 0, err
	}
	bv, err := asElastic(b)
	if err != nil {
		return 0, err
	}
	if av.geometry != bv.geometry {
		return 0, hdc.ErrGeometryMismatch
	}
	switch {
	case av.IsAtomic() && bv.IsAtomic():
		return l1Similarity(av.atomic, bv.atomic), nil
	case !av.IsAtomic() && bv.IsAtomic():
		return maxSimAgainstAtomic(av.chunks, bv.atomic), nil
	case av.IsAtomic() && !bv.IsAtomic():
		return maxSimAgainstAtomic(bv.chunks, av.atomic), nil
	default:
		return maxSimBundleBundle(av.chunks, bv.chunks), nil
	}
}

func maxSimAgainstAtomic(chunks []Chunk, atomic []byte) float64 {
	best := 0.0
	for _, c := range chunks {
		sim := l1Similarity(c.Mean, atomic)
		if sim > best {
			best = sim
		}
		if best >= 1.0 {
			return 1.0
		}
	}
	return best
}

func maxSimBundleBundle(a, b []Chunk) float64 {
	best := 0.0
	for _, ca := range a {
		for _, cb := range b {
			sim := l1Similarity(ca.Mean, cb.Mean)
			if sim > best {
				best = sim
			}
			if best >= 1.0 {
				return 1.0
			}
		}
	}
	return best
}

// Distance implements hdc.Strategy.
func (s *ElasticStrategy) Distance(a, b hdc.Vector) (float64, error) {
	sim, err := s.Similarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

// IsOrthogonal implements hdc.Strategy.
func (s *ElasticStrategy) IsOrthogonal(a, b hdc.Vector, threshold float64) (bool, error) {
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
func (s *ElasticStrategy) Clone(v hdc.Vector) (hdc.Vector, error) {
	ev, err := asElastic(v)
	if err != nil {
		return nil, err
	}
	out := &ElasticVector{geometry: ev.geometry, chunkCapacity: ev.chunkCapacity}
	if ev.IsAtomic() {
		out.atomic = append([]byte(nil), ev.atomic...)
		return out, nil
	}
	out.chunks = make([]Chunk, len(ev.chunks))
	for i, c := range ev.chunks {
		out.chunks[i] = Chunk{K: c.K, Sum: append([]int(nil), c.Sum...), Mean: append([]byte(nil), c.Mean...)}
	}
	out.summary = append([]byte(nil), ev.summary...)
	return out, nil
}

// Equals implements hdc.Strategy.
func (s *ElasticStrategy) Equals(a, b hdc.Vector) (bool, error) {
	av, err := asElastic(a)
	if err != nil {
		return false, err
	}
	bv, err := asElastic(b)
	if err != nil {
		return false, err
	}
	if av.geometry != bv.geometry || av.IsAtomic() != bv.IsAtomic() {
		return false, nil
	}
	if av.IsAtomic() {
		for i := range av.atomic {
			if av.atomic[i] != bv.atomic[i] {
				return false, nil
			}
		}
		return true, nil
	}
	if len(av.chunks) != len(bv.chunks) {
		return false, nil
	}
	for i := range av.chunks {
		ca, cb := av.chunks[i], bv.chunks[i]
		if ca.K != cb.K {
			return false, nil
		}
		for j := range ca.Mean {
			if ca.Mean[j] != cb.Mean[j] || ca.Sum[j] != cb.Sum[j] {
				return false, nil
			}
		}
	}
	return true, nil
}

type chunkWire struct {
	K    int    `json:"k"`
	Sum  []int  `json:"sum"`
	Mean []byte `json:"mean"`
}

type elasticWire struct {
	Data          []byte       `json:"data"`
	ChunkCapacity int          `json:"chunkCapacity"`
	Chunks        []*chunkWire `json:"chunks"`
}

func (v *ElasticVector) toWire() elasticWire {
	w := elasticWire{ChunkCapacity: v.chunkCapacity, Data: v.summaryBytes()}
	if !v.IsAtomic() {
		w.Chunks = make([]*chunkWire, len(v.chunks))
		for i, c := range v.chunks {
			w.Chunks[i] = &chunkWire{K: c.K, Sum: c.Sum, Mean: c.Mean}
		}
	}
	return w
}

func fromWire(geometry int, w elasticWire) *ElasticVector {
	ev := &ElasticVector{geometry: geometry, chunkCapacity: w.ChunkCapacity}
	if w.Chunks == nil {
		ev.atomic = w.Data
		return ev
	}
	ev.chunks = make([]Chunk, len(w.Chunks))
	for i, c := range w.Chunks {
		ev.chunks[i] = Chunk{K: c.K, Sum: c.Sum, Mean: c.Mean}
	}
	ev.summary = w.Data
	return ev
}

// Serialize implements hdc.Strategy, per §6's elastic data shape:
// {data, chunkCapacity, chunks|null}. The byte fields (data and each
// chunk's mean) are encoded as base64 strings, Go's JSON form for []byte,
// not as arrays of byte integers; each chunk's sum is an integer array.
func (s *ElasticStrategy) Serialize(v hdc.Vector) ([]byte, error) {
	ev, err := asElastic(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(ev.toWire())
	if err != nil {
		return nil, err
	}
	return json.Marshal(hdc.VectorEnvelope{StrategyID: ElasticID, Version: 1, Geometry: ev.geometry, Data: data})
}

// Deserialize implements hdc.Strategy.
func (s *ElasticStrategy) Deserialize(payload []byte) (hdc.Vector, error) {
	env, err := hdc.DecodeVectorEnvelope(payload, ElasticID)
	if err != nil {
		return nil, err
	}
	var w elasticWire
	if err := json.Unmarshal(env.Data, &w); err != nil {
		return nil, fmt.Errorf("metricaffine: decode elastic data: %w", err)
	}
	return fromWire(env.Geometry, w), nil
}

// SerializeKB implements hdc.Strategy.
func (s *ElasticStrategy) SerializeKB(entries []hdc.KBEntry) ([]byte, error) {
	geometry := 0
	facts := make([]hdc.FactEnvelope, 0, len(entries))
	for i, e := range entries {
		ev, err := asElastic(e.Vector)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			geometry = ev.geometry
		} else if ev.geometry != geometry {
			return nil, hdc.ErrGeometryMismatch
		}
		data, err := json.Marshal(ev.toWire())
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
	return json.Marshal(hdc.KBEnvelope{StrategyID: ElasticID, Version: 1, Geometry: geometry, Count: len(facts), Facts: facts})
}

// DeserializeKB implements hdc.Strategy.
func (s *ElasticStrategy) DeserializeKB(blob []byte) ([]hdc.KBEntry, error) {
	env, err := hdc.DecodeKBEnvelope(blob, ElasticID)
	if err != nil {
		return nil, err
	}
	entries := make([]hdc.KBEntry, 0, len(env.Facts))
	for _, f := range env.Facts {
		var w elasticWire
		if err := json.Unmarshal(f.Data, &w); err != nil {
			return nil, fmt.Errorf("metricaffine: decode elastic fact: %w", err)
		}
		entry := hdc.KBEntry{Vector: fromWire(env.Geometry, w), Metadata: f.Metadata}
		if f.Name != nil {
			entry.Name = *f.Name
			entry.HasName = true
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// TopKSimilar implements hdc.Strategy via the shared generic scan.
func (s *ElasticStrategy) TopKSimilar(query hdc.Vector, vocabulary map[string]hdc.Vector, k int, stats *hdc.Stats) ([]hdc.Scored, error) {
	return hdc.TopKSimilar(s, query, vocabulary, k, stats)
}
