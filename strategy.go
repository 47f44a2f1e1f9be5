package hdc

// Metadata is the read-only description every strategy publishes about
// itself. Values are populated once at strategy construction and never
// mutated.
type Metadata struct {
	ID                        string
	DisplayName               string
	Description               string
	DefaultGeometry           int
	RecommendedBundleCapacity int
	MaxBundleCapacity         int
	BindComplexity            string // e.g. "O(G)", "O(|A|*|B|)"
	SparseOptimized           bool

	// Reasoning/holographic threshold tables calibrated for this strategy,
	// exposed read-only so a downstream reasoning layer can consume the
	// calibrated values instead of hard-coding them (§9 Open Questions).
	Reasoning   ReasoningThresholds
	Holographic HolographicThresholds
}

// BytesPerVector reports the serialized payload size, in bytes, for a
// vector of the given geometry under this strategy. Implementations with
// variable-length payloads (SP, EXACT) return an estimate.
type BytesPerVectorFunc func(geometry int) int

// DecodeOptions configures decodeUnboundCandidates (EXACT only).
type DecodeOptions struct {
	MaxCandidates   int
	Domain          []string // restrict candidates to this set, if non-empty
	Known           []string // atoms already known, excluded from results
	ExcludeReserved bool     // drop ⊥/⊤ and other reserved atoms
}

// Stats is an optional per-session counter bag threaded through
// topKSimilar. It has no internal synchronization: TopKSimilar adds to its
// fields directly from the calling goroutine once the scan is done.
type Stats struct {
	Comparisons int64
	TopKCalls   int64
}

// Candidate is one ranked result from decodeUnboundCandidates.
type Candidate struct {
	Name      string
	Witnesses int
	Score     float64
}

// Scored is one ranked result from TopKSimilar.
type Scored struct {
	Name       string
	Vector     Vector
	Similarity float64
}

// Strategy is the polymorphic contract every concrete representation
// implements. A single strategy instance is either stateless and safe to
// share process-wide (dense-binary, metric-affine, SP) or stateful and
// scoped to one session (EXACT); see Metadata and the registry for which
// is which.
type Strategy interface {
	Meta() Metadata
	BytesPerVector(geometry int) int

	CreateZero(geometry int) (Vector, error)
	CreateRandom(geometry int, seed *uint64) (Vector, error)
	CreateFromName(name string, geometry int, theoryID string) (Vector, error)

	Bind(a, b Vector) (Vector, error)
	BindAll(vs ...Vector) (Vector, error)
	Bundle(vs []Vector, tieBreaker Vector) (Vector, error)
	Unbind(composite, component Vector) (Vector, error)

	Similarity(a, b Vector) (float64, error)
	Distance(a, b Vector) (float64, error)
	IsOrthogonal(a, b Vector, threshold float64) (bool, error)

	Clone(v Vector) (Vector, error)
	Equals(a, b Vector) (bool, error)

	Serialize(v Vector) ([]byte, error)
	Deserialize(payload []byte) (Vector, error)

	SerializeKB(entries []KBEntry) ([]byte, error)
	DeserializeKB(blob []byte) ([]KBEntry, error)

	TopKSimilar(query Vector, vocabulary map[string]Vector, k int, stats *Stats) ([]Scored, error)
}

// CandidateDecoder is implemented by strategies that can project an
// unbound polynomial onto a ranked list of plausible atomic names (EXACT
// only). Other strategies simply don't implement it; callers type-assert.
type CandidateDecoder interface {
	DecodeUnboundCandidates(unbound Vector, opts DecodeOptions) ([]Candidate, error)
}
