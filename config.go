package hdc

import "fmt"

// ReasoningThresholds calibrates the downstream reasoning layer's
// tolerance for a given strategy's similarity scale. The core never reads
// these itself (§9 Open Questions); it only carries and validates them so
// a client can look them up from Metadata instead of hard-coding a magic
// number per strategy.
type ReasoningThresholds struct {
	StrongMatch    float64 `yaml:"strong_match" json:"strong_match"`
	WeakMatch      float64 `yaml:"weak_match" json:"weak_match"`
	OrthogonalBand float64 `yaml:"orthogonal_band" json:"orthogonal_band"`
}

// HolographicThresholds calibrates bundle/superposition behavior: how many
// items a bundle can hold before similarity to any one member degrades
// past usefulness, and the baseline similarity two unrelated vectors are
// expected to show.
type HolographicThresholds struct {
	RandomBaseline     float64 `yaml:"random_baseline" json:"random_baseline"`
	BundleDegradeAfter int     `yaml:"bundle_degrade_after" json:"bundle_degrade_after"`
}

// Validate checks every ReasoningThresholds field is within [0,1],
// mirroring the teacher's ValidateCoreLimits pattern.
func (r ReasoningThresholds) Validate() error {
	if r.StrongMatch < 0 || r.StrongMatch > 1 {
		return fmt.Errorf("hdc: strong_match must be in [0,1], got %v", r.StrongMatch)
	}
	if r.WeakMatch < 0 || r.WeakMatch > 1 {
		return fmt.Errorf("hdc: weak_match must be in [0,1], got %v", r.WeakMatch)
	}
	if r.OrthogonalBand < 0 || r.OrthogonalBand > 1 {
		return fmt.Errorf("hdc: orthogonal_band must be in [0,1], got %v", r.OrthogonalBand)
	}
	return nil
}

// Validate checks HolographicThresholds ranges.
func (h HolographicThresholds) Validate() error {
	if h.RandomBaseline < 0 || h.RandomBaseline > 1 {
		return fmt.Errorf("hdc: random_baseline must be in [0,1], got %v", h.RandomBaseline)
	}
	if h.BundleDegradeAfter < 1 {
		return fmt.Errorf("hdc: bundle_degrade_after must be >= 1")
	}
	return nil
}

// UnbindMode selects EXACT's unbind semantics (§4.6).
type UnbindMode int

const (
	// UnbindExistentialQuotient is mode A (the default): for each
	// (t, q) pair with q ⊆ t, emit t &^ q.
	UnbindExistentialQuotient UnbindMode = iota
	// UnbindRightResidual is mode B: intersect the mode-A residues
	// computed independently per term of the component polynomial.
	UnbindRightResidual
)

func (m UnbindMode) String() string {
	switch m {
	case UnbindExistentialQuotient:
		return "existential-quotient"
	case UnbindRightResidual:
		return "right-residual"
	default:
		return "unknown"
	}
}

// ExactCeilings bounds EXACT polynomial growth (§4.6, §5).
type ExactCeilings struct {
	MonomBitLimit int `yaml:"monom_bit_limit" json:"monom_bit_limit"`
	PolyTermLimit int `yaml:"poly_term_limit" json:"poly_term_limit"`
}

// DefaultExactCeilings returns the documented defaults: 1000 set bits per
// monomial, 200000 terms per polynomial.
func DefaultExactCeilings() ExactCeilings {
	return ExactCeilings{MonomBitLimit: 1000, PolyTermLimit: 200000}
}

// Validate checks ExactCeilings are positive.
func (c ExactCeilings) Validate() error {
	if c.MonomBitLimit < 1 {
		return fmt.Errorf("hdc: monom_bit_limit must be >= 1")
	}
	if c.PolyTermLimit < 1 {
		return fmt.Errorf("hdc: poly_term_limit must be >= 1")
	}
	return nil
}

// ExactOptions configures a session-local EXACT strategy instance.
type ExactOptions struct {
	UnbindMode UnbindMode    `yaml:"unbind_mode" json:"unbind_mode"`
	Ceilings   ExactCeilings `yaml:"ceilings" json:"ceilings"`
}

// DefaultExactOptions returns mode A with the documented ceilings.
func DefaultExactOptions() ExactOptions {
	return ExactOptions{UnbindMode: UnbindExistentialQuotient, Ceilings: DefaultExactCeilings()}
}
