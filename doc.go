// Package hdc defines the hyperdimensional-computing algebra contract:
// the Strategy and Vector interfaces, the shared error sentinels,
// threshold/config types, and the serialization envelopes every concrete
// representation (dense-binary, metric-affine, sparse-polynomial, exact)
// implements or consumes. Concrete strategies live in the internal/
// subpackages; the registry package wires them into a name->strategy map.
package hdc
