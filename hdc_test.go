package hdc

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain fails the package if any test leaks a goroutine, matching the
// teacher's standard convention for packages that spawn goroutines (here,
// TopKSimilar's errgroup fan-out).
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeVector struct {
	id  string
	sim float64
}

func (f fakeVector) StrategyID() string { return f.id }
func (f fakeVector) Geometry() int      { return 1 }

type fakeStrategy struct{}

func (fakeStrategy) Meta() Metadata                                  { return Metadata{ID: "fake"} }
func (fakeStrategy) BytesPerVector(int) int                          { return 0 }
func (fakeStrategy) CreateZero(int) (Vector, error)                  { return nil, nil }
func (fakeStrategy) CreateRandom(int, *uint64) (Vector, error)       { return nil, nil }
func (fakeStrategy) CreateFromName(string, int, string) (Vector, error) { return nil, nil }
func (fakeStrategy) Bind(Vector, Vector) (Vector, error)             { return nil, nil }
func (fakeStrategy) BindAll(...Vector) (Vector, error)               { return nil, nil }
func (fakeStrategy) Bundle([]Vector, Vector) (Vector, error)         { return nil, nil }
func (fakeStrategy) Unbind(Vector, Vector) (Vector, error)           { return nil, nil }
func (fakeStrategy) Distance(Vector, Vector) (float64, error)        { return 0, nil }
func (fakeStrategy) IsOrthogonal(Vector, Vector, float64) (bool, error) { return false, nil }
func (fakeStrategy) Clone(Vector) (Vector, error)                    { return nil, nil }
func (fakeStrategy) Equals(Vector, Vector) (bool, error)             { return false, nil }
func (fakeStrategy) Serialize(Vector) ([]byte, error)                { return nil, nil }
func (fakeStrategy) Deserialize([]byte) (Vector, error)              { return nil, nil }
func (fakeStrategy) SerializeKB([]KBEntry) ([]byte, error)           { return nil, nil }
func (fakeStrategy) DeserializeKB([]byte) ([]KBEntry, error)         { return nil, nil }
func (fakeStrategy) TopKSimilar(Vector, map[string]Vector, int, *Stats) ([]Scored, error) {
	return nil, nil
}

func (fakeStrategy) Similarity(a, b Vector) (float64, error) {
	return b.(fakeVector).sim, nil
}

func TestTopKSimilarOrdersDescendingThenByName(t *testing.T) {
	vocab := map[string]Vector{
		"b": fakeVector{id: "fake", sim: 0.5},
		"a": fakeVector{id: "fake", sim: 0.5},
		"c": fakeVector{id: "fake", sim: 0.9},
	}
	var stats Stats
	results, err := TopKSimilar(fakeStrategy{}, fakeVector{id: "fake", sim: 0}, vocab, 2, &stats)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "c", results[0].Name)
	require.Equal(t, "a", results[1].Name)
	require.EqualValues(t, 3, stats.Comparisons)
	require.EqualValues(t, 1, stats.TopKCalls)
}

func TestTopKSimilarNegativeKErrors(t *testing.T) {
	_, err := TopKSimilar(fakeStrategy{}, fakeVector{id: "fake"}, nil, -1, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDecodeVectorEnvelopeMismatchedStrategy(t *testing.T) {
	payload, err := json.Marshal(VectorEnvelope{StrategyID: "dense-binary", Version: 1, Geometry: 32})
	require.NoError(t, err)
	_, err = DecodeVectorEnvelope(payload, "sparse-polynomial")
	require.ErrorIs(t, err, ErrStrategyMismatch)
}

func TestDecodeKBEnvelopeMismatchedStrategy(t *testing.T) {
	payload, err := json.Marshal(KBEnvelope{StrategyID: "dense-binary", Version: 1})
	require.NoError(t, err)
	_, err = DecodeKBEnvelope(payload, "exact")
	require.ErrorIs(t, err, ErrStrategyMismatch)
}

func TestReasoningThresholdsValidate(t *testing.T) {
	require.NoError(t, ReasoningThresholds{StrongMatch: 0.8, WeakMatch: 0.3, OrthogonalBand: 0.05}.Validate())
	require.Error(t, ReasoningThresholds{StrongMatch: 1.5}.Validate())
}

func TestExactCeilingsValidate(t *testing.T) {
	require.NoError(t, DefaultExactCeilings().Validate())
	require.Error(t, ExactCeilings{MonomBitLimit: 0, PolyTermLimit: 10}.Validate())
}

func TestUnbindModeString(t *testing.T) {
	require.Equal(t, "existential-quotient", UnbindExistentialQuotient.String())
	require.Equal(t, "right-residual", UnbindRightResidual.String())
}

func TestSetLoggerRestoresNopOnNil(t *testing.T) {
	SetLogger(nil)
	require.NotNil(t, log)
}

func TestKBEnvelopeRoundTripsThroughJSON(t *testing.T) {
	name := "cat"
	original := KBEnvelope{
		StrategyID: "dense-binary",
		Version:    1,
		Geometry:   32,
		Count:      1,
		Facts: []FactEnvelope{
			{Data: json.RawMessage(`[1,2,3]`), Name: &name, Metadata: map[string]any{"k": "v"}},
		},
	}
	blob, err := json.Marshal(original)
	require.NoError(t, err)

	decoded, err := DecodeKBEnvelope(blob, "dense-binary")
	require.NoError(t, err)

	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Fatalf("KBEnvelope round trip mismatch (-want +got):\n%s", diff)
	}
}
