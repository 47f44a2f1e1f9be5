package sparsepoly

import (
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

func TestFromNameDeterministic(t *testing.T) {
	s := New
	a := mustVec(t, s.CreateFromName("role", 4, "default"))
	b := mustVec(t, s.CreateFromName("role", 4, "default"))
	eq, err := s.Equals(a, b)
	if err != nil || !eq {
		t.Fatalf("expected deterministic from-name vectors")
	}
}

func TestSelfInverseUnderSmallCartesian(t *testing.T) {
	s := New
	a := mustVec(t, s.CreateFromName("role", 4, "default"))
	b := mustVec(t, s.CreateFromName("filler", 4, "default"))
	c := mustVec(t, s.Bind(a, b))
	back := mustVec(t, s.Unbind(c, b))
	sim, err := s.Similarity(back, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim != 1.0 {
		t.Fatalf("expected exact self-inverse for |A|*|B|=16 <= ceiling, got similarity %v", sim)
	}
}

func TestBindCommutative(t *testing.T) {
	s := New
	a := mustVec(t, s.CreateFromName("a", 4, "t"))
	b := mustVec(t, s.CreateFromName("b", 4, "t"))
	ab := mustVec(t, s.Bind(a, b))
	ba := mustVec(t, s.Bind(b, a))
	eq, err := s.Equals(ab, ba)
	if err != nil || !eq {
		t.Fatalf("expected commutative bind for SP")
	}
}

func TestJaccardEmptyVsEmpty(t *testing.T) {
	s := New
	a := mustVec(t, s.CreateZero(4))
	b := mustVec(t, s.CreateZero(4))
	sim, err := s.Similarity(a, b)
	if err != nil || sim != 1.0 {
		t.Fatalf("expected empty-vs-empty similarity 1.0, got %v", sim)
	}
}

func TestSelfSimilarityIsOne(t *testing.T) {
	s := New
	a := mustVec(t, s.CreateFromName("x", 4, "t"))
	sim, err := s.Similarity(a, a)
	if err != nil || sim != 1.0 {
		t.Fatalf("expected self similarity 1.0, got %v", sim)
	}
}

func TestContainmentEngineeredSubset(t *testing.T) {
	s := New
	// Engineered scenario: role carries 8 literal exponents, twice bind's
	// k=4, and filler is the identity exponent {0} (x^0 = x verbatim).
	// Binding forces Min-Hash to sparsify the 8 candidates down to 4, but
	// every candidate is a literal member of role's own exponent set, so
	// whichever 4 survive remain fully contained in role regardless of
	// which ones Min-Hash happens to keep (§8's "containment... should
	// remain above a documented threshold for engineered inputs").
	role := &Vector{k: 4, exponents: []uint64{11, 22, 33, 44, 55, 66, 77, 88}}
	identity := &Vector{k: 4, exponents: []uint64{0}}
	bound := mustVec(t, s.Bind(role, identity)).(*Vector)
	if len(bound.exponents) != 4 {
		t.Fatalf("expected bind to sparsify 8 candidates down to k=4, got %d", len(bound.exponents))
	}
	const threshold = 0.99
	cont, err := s.Containment(bound, role)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cont < threshold {
		t.Fatalf("expected sparsified result fully contained in role (>= %v), got %v", threshold, cont)
	}
}

func TestBundleUnionSparsifies(t *testing.T) {
	s := New
	vs := make([]hdc.Vector, 0, 10)
	for i := 0; i < 10; i++ {
		seed := uint64(i + 1)
		v, err := s.CreateRandom(4, &seed)
		if err != nil {
			t.Fatalf("create random: %v", err)
		}
		vs = append(vs, v)
	}
	bundle := mustVec(t, s.Bundle(vs, nil)).(*Vector)
	if len(bundle.exponents) > 4 {
		t.Fatalf("expected bundle sparsified to k=4, got %d", len(bundle.exponents))
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	s := New
	v := mustVec(t, s.CreateFromName("cat", 4, "animals"))
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
		t.Fatalf("round trip mismatch")
	}
}

func TestMinHashDeterministic(t *testing.T) {
	candidates := []uint64{5, 1, 9, 2, 8, 3, 7, 4, 6}
	a := sparsifyToK(candidates, 4)
	b := sparsifyToK(candidates, 4)
	if len(a) != len(b) {
		t.Fatalf("sparsify not deterministic in length")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sparsify not deterministic in content")
		}
	}
}

func TestBindFullUncapped(t *testing.T) {
	s := New
	a := mustVec(t, s.CreateFromName("a", 3, "t"))
	b := mustVec(t, s.CreateFromName("b", 3, "t"))
	full, err := s.BindFull(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fv := full.(*Vector)
	if len(fv.exponents) > 9 {
		t.Fatalf("expected at most 3*3=9 exponents in full cartesian xor, got %d", len(fv.exponents))
	}
	if len(fv.exponents) <= 3 {
		t.Fatalf("expected BindFull not to sparsify down to k=3, got %d exponents", len(fv.exponents))
	}
}
