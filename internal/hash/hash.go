// Package hash provides the DJB2-class string hash and the seeded PRNG
// every strategy's from-name and random factories build on. Both are
// defined bit-exactly (§9 "Determinism across runtimes") so the same
// seed produces byte-identical vectors across processes and machines.
package hash

// DJB2 is Daniel J. Bernstein's classic string hash, widened to 64 bits.
// hash = 5381; for each byte c: hash = hash*33 + c.
func DJB2(s string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(s); i++ {
		h = h*33 + uint64(s[i])
	}
	return h
}

// TheoryScopedSeed computes the seed used by every from-name factory:
// djb2(theoryID + ":" + name).
func TheoryScopedSeed(theoryID, name string) uint64 {
	return DJB2(theoryID + ":" + name)
}

// splitmix64Next advances a SplitMix64 state and returns the next output,
// per the reference constants (Vigna, 2015).
func splitmix64Next(state *uint64) uint64 {
	*state += 0x9E3779B97F4A7C15
	z := *state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// PRNG is a small deterministic generator seeded by a single uint64. It is
// never shared across calls: every seeded factory builds a fresh instance
// from its seed (§5 "Shared-resource policy").
type PRNG struct {
	state uint64
}

// NewPRNG builds a PRNG from the given seed. A zero seed is nudged to a
// fixed nonzero constant so the SplitMix64 state never degenerates.
func NewPRNG(seed uint64) *PRNG {
	if seed == 0 {
		seed = 0x2545F4914F6CDD1D
	}
	return &PRNG{state: seed}
}

// NextUint64 returns the next raw 64-bit SplitMix64 output.
func (p *PRNG) NextUint64() uint64 {
	return splitmix64Next(&p.state)
}

// NextUint32 returns the low 32 bits of the next SplitMix64 output.
func (p *PRNG) NextUint32() uint32 {
	return uint32(p.NextUint64())
}

// NextFloat64 returns a uniform real in [0, 1), using the top 53 bits of
// the next output for full double precision.
func (p *PRNG) NextFloat64() float64 {
	return float64(p.NextUint64()>>11) / (1 << 53)
}
