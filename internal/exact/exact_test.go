package exact

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/OutfinityResearch/hdc-algebra"
)

// TestMain guards against goroutine leaks. This is the one package in the
// module carrying mutex-guarded, mutable per-instance state (the session's
// atom dictionary), so it's the most likely place a future change could
// accidentally leak a goroutine holding the lock.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStrategy() *Strategy {
	return NewSessionStrategy(NewSession(hdc.DefaultExactOptions()))
}

func TestGlobalFacadeRefusesAlgebra(t *testing.T) {
	_, err := Global.CreateZero(8)
	require.ErrorIs(t, err, hdc.ErrSessionRequired)

	a := &Vector{geometry: 8, monomials: []*big.Int{big.NewInt(4)}}
	_, err = Global.Bind(a, a)
	require.ErrorIs(t, err, hdc.ErrSessionRequired)
}

func TestCreateFromNameDeterministicWithinSession(t *testing.T) {
	s := newTestStrategy()
	a, err := s.CreateFromName("cat", 8, "animals")
	require.NoError(t, err)
	b, err := s.CreateFromName("cat", 8, "animals")
	require.NoError(t, err)
	eq, err := s.Equals(a, b)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestSessionIsolationIndexesEachDictionaryIndependently(t *testing.T) {
	s1 := newTestStrategy()
	s2 := newTestStrategy()
	a, err := s1.CreateFromName("first", 8, "t")
	require.NoError(t, err)
	// In s2, "other" is the first atom registered after bottom/top, same as
	// "first" was in s1, so it lands on the same dictionary index and the
	// two polynomials coincide even though the names differ. This is
	// expected: each session's dictionary is independent (§4.6 "Session
	// isolation"), not cross-session content-addressed.
	b, err := s2.CreateFromName("other", 8, "t")
	require.NoError(t, err)
	eq, err := s1.Equals(a, b)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestBindIsOrProductOfMonomials(t *testing.T) {
	s := newTestStrategy()
	role, err := s.CreateFromName("role", 8, "t")
	require.NoError(t, err)
	filler, err := s.CreateFromName("filler", 8, "t")
	require.NoError(t, err)
	bound, err := s.Bind(role, filler)
	require.NoError(t, err)
	bv := bound.(*Vector)
	require.Len(t, bv.monomials, 1)

	roleV := role.(*Vector)
	fillerV := filler.(*Vector)
	expected := new(big.Int).Or(roleV.monomials[0], fillerV.monomials[0])
	require.Equal(t, 0, expected.Cmp(bv.monomials[0]))
}

func TestUnbindModeAExistentialQuotientRecoversComponent(t *testing.T) {
	s := newTestStrategy()
	role, _ := s.CreateFromName("role", 8, "t")
	filler, _ := s.CreateFromName("filler", 8, "t")
	bound, _ := s.Bind(role, filler)
	back, err := s.Unbind(bound, filler)
	require.NoError(t, err)
	sim, err := s.Similarity(back, role)
	require.NoError(t, err)
	require.Equal(t, 1.0, sim)
}

func TestUnbindModeBRightResidualOnPair(t *testing.T) {
	opts := hdc.DefaultExactOptions()
	opts.UnbindMode = hdc.UnbindRightResidual
	s := NewSessionStrategy(NewSession(opts))

	a, _ := s.CreateFromName("a", 8, "t")
	b, _ := s.CreateFromName("b", 8, "t")
	q, _ := s.CreateFromName("q", 8, "t")

	composite, err := s.Bundle([]hdc.Vector{
		mustBind(t, s, a, q),
		mustBind(t, s, b, q),
	}, nil)
	require.NoError(t, err)

	back, err := s.Unbind(composite, q)
	require.NoError(t, err)
	bv := back.(*Vector)
	require.Len(t, bv.monomials, 2)
}

func mustBind(t *testing.T, s *Strategy, a, b hdc.Vector) hdc.Vector {
	t.Helper()
	out, err := s.Bind(a, b)
	require.NoError(t, err)
	return out
}

func TestUnbindModesCoincideOnSingleton(t *testing.T) {
	sA := newTestStrategy()
	role, _ := sA.CreateFromName("role", 8, "t")
	filler, _ := sA.CreateFromName("filler", 8, "t")
	bound, _ := sA.Bind(role, filler)
	backA, err := sA.Unbind(bound, filler)
	require.NoError(t, err)

	optsB := hdc.DefaultExactOptions()
	optsB.UnbindMode = hdc.UnbindRightResidual
	sB := NewSessionStrategy(NewSession(optsB))
	role2, _ := sB.CreateFromName("role", 8, "t")
	filler2, _ := sB.CreateFromName("filler", 8, "t")
	bound2, _ := sB.Bind(role2, filler2)
	backB, err := sB.Unbind(bound2, filler2)
	require.NoError(t, err)

	simA, err := sA.Similarity(backA, role)
	require.NoError(t, err)
	simB, err := sB.Similarity(backB, role2)
	require.NoError(t, err)
	require.Equal(t, simA, simB)
}

func TestNormalizeBottomAbsorbsItsMonomial(t *testing.T) {
	s := newTestStrategy()
	session := s.session
	bottomWithOther := new(big.Int).SetBit(session.BottomMonomial(), 3, 1)
	other := new(big.Int).Lsh(big.NewInt(1), 5)
	result := session.normalize([]*big.Int{bottomWithOther, other})
	require.Len(t, result, 2)
	require.Equal(t, 0, result[0].Cmp(session.BottomMonomial()))
	require.Equal(t, 0, result[1].Cmp(other))
}

func TestNormalizeOverflowingMonomialBecomesTop(t *testing.T) {
	opts := hdc.DefaultExactOptions()
	opts.Ceilings.MonomBitLimit = 3
	s := NewSessionStrategy(NewSession(opts))
	session := s.session
	huge := new(big.Int)
	for i := 2; i < 10; i++ {
		huge.SetBit(huge, i, 1)
	}
	result := session.normalize([]*big.Int{huge})
	require.Len(t, result, 1)
	require.Equal(t, 0, result[0].Cmp(session.TopMonomial()))
}

func TestNormalizeTermCountOverflowCollapsesToTop(t *testing.T) {
	opts := hdc.DefaultExactOptions()
	opts.Ceilings.PolyTermLimit = 2
	s := NewSessionStrategy(NewSession(opts))
	session := s.session
	monomials := []*big.Int{
		new(big.Int).Lsh(big.NewInt(1), 2),
		new(big.Int).Lsh(big.NewInt(1), 3),
		new(big.Int).Lsh(big.NewInt(1), 4),
	}
	result := session.normalize(monomials)
	require.Len(t, result, 1)
	require.Equal(t, 0, result[0].Cmp(session.TopMonomial()))
}

func TestDecodeUnboundCandidatesRanksByWitnessCount(t *testing.T) {
	s := newTestStrategy()
	cat, _ := s.CreateFromName("cat", 8, "animals")
	dog, _ := s.CreateFromName("dog", 8, "animals")
	bird, _ := s.CreateFromName("bird", 8, "animals")
	role, _ := s.CreateFromName("role", 8, "t")
	extra, _ := s.CreateFromName("extra", 8, "t")

	// Bundle is a set union, so a repeated term adds no witness; cat gets
	// its second witness from the distinct term role|cat|extra instead.
	// Dictionary names are theory-qualified ("animals:cat").
	b1, _ := s.Bind(role, cat)
	b2, _ := s.Bind(role, dog)
	b3, _ := s.Bind(role, bird)
	b4, _ := s.Bind(b1, extra)
	bundle, err := s.Bundle([]hdc.Vector{b1, b2, b4, b3}, nil)
	require.NoError(t, err)

	unbound, err := s.Unbind(bundle, role)
	require.NoError(t, err)

	candidates, err := s.DecodeUnboundCandidates(unbound, hdc.DecodeOptions{ExcludeReserved: true})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	require.Equal(t, "animals:cat", candidates[0].Name)
}

func TestDecodeUnboundCandidatesExcludesReserved(t *testing.T) {
	s := newTestStrategy()
	session := s.session
	bottom := session.BottomMonomial()
	v := &Vector{geometry: 8, monomials: []*big.Int{bottom}}
	candidates, err := s.DecodeUnboundCandidates(v, hdc.DecodeOptions{ExcludeReserved: true})
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestSerializeRoundTrip(t *testing.T) {
	s := newTestStrategy()
	v, err := s.CreateFromName("cat", 8, "animals")
	require.NoError(t, err)
	payload, err := s.Serialize(v)
	require.NoError(t, err)
	back, err := s.Deserialize(payload)
	require.NoError(t, err)
	eq, err := s.Equals(v, back)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestKBRoundTrip(t *testing.T) {
	s := newTestStrategy()
	cat, _ := s.CreateFromName("cat", 8, "animals")
	dog, _ := s.CreateFromName("dog", 8, "animals")
	entries := []hdc.KBEntry{
		{Vector: cat, Name: "cat", HasName: true},
		{Vector: dog, Name: "dog", HasName: true},
	}
	blob, err := s.SerializeKB(entries)
	require.NoError(t, err)
	back, err := s.DeserializeKB(blob)
	require.NoError(t, err)
	require.Len(t, back, 2)
	eq, err := s.Equals(back[0].Vector, cat)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestSimilaritySelfIsOne(t *testing.T) {
	s := newTestStrategy()
	v, _ := s.CreateFromName("x", 8, "t")
	sim, err := s.Similarity(v, v)
	require.NoError(t, err)
	require.Equal(t, 1.0, sim)
}

func TestSimilarityEmptyVsEmptyIsOne(t *testing.T) {
	s := newTestStrategy()
	a, _ := s.CreateZero(8)
	b, _ := s.CreateZero(8)
	sim, err := s.Similarity(a, b)
	require.NoError(t, err)
	require.Equal(t, 1.0, sim)
}
