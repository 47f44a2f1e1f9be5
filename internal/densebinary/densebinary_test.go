package densebinary

import (
	"math"
	"testing"

	"github.com/OutfinityResearch/hdc-algebra"
)

func mustVec(t *testing.T, v hdc.Vector, err error) hdc.Vector {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func TestCreateFromNameDeterministic(t *testing.T) {
	s := New
	a := mustVec(t, s.CreateFromName("cat", 256, "animals"))
	b := mustVec(t, s.CreateFromName("cat", 256, "animals"))
	eq, err := s.Equals(a, b)
	if err != nil || !eq {
		t.Fatalf("expected equal vectors, got eq=%v err=%v", eq, err)
	}
	sim, err := s.Similarity(a, b)
	if err != nil || sim != 1.0 {
		t.Fatalf("expected similarity 1.0, got %v (err=%v)", sim, err)
	}
}

func TestCreateFromNameTheoryScoped(t *testing.T) {
	s := New
	a := mustVec(t, s.CreateFromName("cat", 256, "animals"))
	b := mustVec(t, s.CreateFromName("cat", 256, "food"))
	sim, err := s.Similarity(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim >= 0.55 {
		t.Fatalf("expected low similarity across theories, got %v", sim)
	}
}

func TestBindSelfInverse(t *testing.T) {
	s := New
	seed := uint64(11)
	a := mustVec(t, s.CreateRandom(256, &seed))
	seed2 := uint64(22)
	b := mustVec(t, s.CreateRandom(256, &seed2))
	bound := mustVec(t, s.Bind(a, b))
	back := mustVec(t, s.Unbind(bound, b))
	eq, err := s.Equals(a, back)
	if err != nil || !eq {
		t.Fatalf("expected bind/unbind round trip, eq=%v err=%v", eq, err)
	}
}

func TestBindCommutative(t *testing.T) {
	s := New
	seed1, seed2 := uint64(1), uint64(2)
	a := mustVec(t, s.CreateRandom(64, &seed1))
	b := mustVec(t, s.CreateRandom(64, &seed2))
	ab := mustVec(t, s.Bind(a, b))
	ba := mustVec(t, s.Bind(b, a))
	eq, err := s.Equals(ab, ba)
	if err != nil || !eq {
		t.Fatalf("bind not commutative")
	}
}

func TestBundleMajorityOddCase(t *testing.T) {
	s := New
	zero := mustVec(t, s.CreateZero(32))
	one := mustVec(t, s.CreateZero(32))
	ov := one.(*Vector)
	ov.words[0] = 1 // bit 0 set

	zv := zero.(*Vector)
	_ = zv

	// two vectors with bit0=1, one with bit0=0: majority is 1.
	b := mustVec(t, s.Bundle([]hdc.Vector{one, one, zero}, nil))
	bv := b.(*Vector)
	if bv.words[0]&1 != 1 {
		t.Fatalf("expected majority bit 1")
	}
}

func TestBundleMajorityTieNoBreaker(t *testing.T) {
	s := New
	zero := mustVec(t, s.CreateZero(32))
	one := mustVec(t, s.CreateZero(32))
	one.(*Vector).words[0] = 1

	b := mustVec(t, s.Bundle([]hdc.Vector{one, zero}, nil))
	bv := b.(*Vector)
	if bv.words[0]&1 != 0 {
		t.Fatalf("expected tie to resolve to 0 with no tie-breaker")
	}
}

func TestBundleMajorityTieWithBreaker(t *testing.T) {
	s := New
	zero := mustVec(t, s.CreateZero(32))
	one := mustVec(t, s.CreateZero(32))
	one.(*Vector).words[0] = 1
	tb := mustVec(t, s.CreateZero(32))
	tb.(*Vector).words[0] = 1

	b := mustVec(t, s.Bundle([]hdc.Vector{one, zero}, tb))
	bv := b.(*Vector)
	if bv.words[0]&1 != 1 {
		t.Fatalf("expected tie to follow tie-breaker")
	}
}

func TestSelfSimilarityIsOne(t *testing.T) {
	s := New
	seed := uint64(9)
	v := mustVec(t, s.CreateRandom(128, &seed))
	sim, err := s.Similarity(v, v)
	if err != nil || sim != 1.0 {
		t.Fatalf("expected self similarity 1.0, got %v", sim)
	}
}

func TestRandomPairsNearHalf(t *testing.T) {
	s := New
	sims := 0.0
	trials := 40
	for i := 0; i < trials; i++ {
		s1, s2 := uint64(100+i), uint64(900+i)
		a := mustVec(t, s.CreateRandom(4096, &s1))
		b := mustVec(t, s.CreateRandom(4096, &s2))
		sim, _ := s.Similarity(a, b)
		sims += sim
	}
	avg := sims / float64(trials)
	if math.Abs(avg-0.5) > 0.05 {
		t.Fatalf("expected average similarity near 0.5, got %v", avg)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	s := New
	seed := uint64(5)
	v := mustVec(t, s.CreateRandom(64, &seed))
	payload, err := s.Serialize(v)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	back, err := s.Deserialize(payload)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	eq, err := s.Equals(v, back)
	if err != nil || !eq {
		t.Fatalf("round trip mismatch: eq=%v err=%v", eq, err)
	}
}

func TestKBRoundTrip(t *testing.T) {
	s := New
	seed1, seed2 := uint64(1), uint64(2)
	a := mustVec(t, s.CreateRandom(64, &seed1))
	b := mustVec(t, s.CreateRandom(64, &seed2))
	entries := []hdc.KBEntry{
		{Vector: a, Name: "alpha", HasName: true, Metadata: map[string]any{"k": "v"}},
		{Vector: b},
	}
	blob, err := s.SerializeKB(entries)
	if err != nil {
		t.Fatalf("serializeKB: %v", err)
	}
	back, err := s.DeserializeKB(blob)
	if err != nil {
		t.Fatalf("deserializeKB: %v", err)
	}
	if len(back) != 2 || back[0].Name != "alpha" || !back[0].HasName || back[1].HasName {
		t.Fatalf("unexpected kb round trip: %+v", back)
	}
}

func TestGeometryMismatchErrors(t *testing.T) {
	s := New
	a := mustVec(t, s.CreateZero(32))
	b := mustVec(t, s.CreateZero(64))
	if _, err := s.Bind(a, b); err == nil {
		t.Fatalf("expected geometry mismatch error")
	}
}

func TestInvalidGeometryRejected(t *testing.T) {
	s := New
	if _, err := s.CreateZero(33); err == nil {
		t.Fatalf("expected invalid geometry error for non-multiple-of-32")
	}
	if _, err := s.CreateZero(0); err == nil {
		t.Fatalf("expected invalid geometry error for zero geometry")
	}
}
