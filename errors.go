package hdc

import "errors"

// Sentinel errors returned by strategy operations. Call sites wrap these
// with fmt.Errorf("...: %w", ErrX) so callers can still errors.Is against
// the sentinel.
var (
	// ErrInvalidGeometry is returned by factories given a geometry the
	// strategy cannot represent (non-positive, not a multiple of 32 for
	// dense-binary, etc).
	ErrInvalidGeometry = errors.New("hdc: invalid geometry")

	// ErrGeometryMismatch is returned by a binary op on vectors whose
	// geometry differs.
	ErrGeometryMismatch = errors.New("hdc: geometry mismatch")

	// ErrStrategyMismatch is returned by a binary op or deserialization
	// on cross-strategy inputs.
	ErrStrategyMismatch = errors.New("hdc: strategy mismatch")

	// ErrEmptyInput is returned by bindAll/bundle given no vectors.
	ErrEmptyInput = errors.New("hdc: empty input")

	// ErrInvalidArgument covers malformed arguments not covered above:
	// a negative k to TopKSimilar, a non-positive SparsifyTo target, a
	// serialized EXACT monomial that is not a decimal integer.
	ErrInvalidArgument = errors.New("hdc: invalid argument")

	// ErrSessionRequired is returned when EXACT algebra is invoked on the
	// process-global facade instead of a session-local instance.
	ErrSessionRequired = errors.New("hdc: strategy requires a session instance")

	// ErrUnknownStrategy is returned by the registry for an unregistered
	// strategy name.
	ErrUnknownStrategy = errors.New("hdc: unknown strategy")
)
