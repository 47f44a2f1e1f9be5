// Package registry resolves strategy names to hdc.Strategy instances. It
// is the only package that imports every internal/<strategy> package
// alongside the root hdc package, which keeps the strategy packages
// themselves free of any dependency on one another (§4.7 "Strategy
// registry").
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/OutfinityResearch/hdc-algebra"
	"github.com/OutfinityResearch/hdc-algebra/internal/densebinary"
	"github.com/OutfinityResearch/hdc-algebra/internal/exact"
	"github.com/OutfinityResearch/hdc-algebra/internal/metricaffine"
	"github.com/OutfinityResearch/hdc-algebra/internal/sparsepoly"
)

// DefaultStrategyID is the strategy id that Default resolves.
const DefaultStrategyID = densebinary.ID

type registry struct {
	mu         sync.RWMutex
	byID       map[string]hdc.Strategy
	aliases    map[string]string
	registered []string
}

// global holds every stateless strategy plus EXACT's global facade, which
// answers Meta but refuses every algebra call; usable EXACT instances come
// from NewExactSession (§4.6 "Session isolation").
var global = newRegistry()

func newRegistry() *registry {
	r := &registry{
		byID:    make(map[string]hdc.Strategy),
		aliases: make(map[string]string),
	}
	r.mustRegister(densebinary.New)
	r.mustRegister(metricaffine.NewFlat)
	r.mustRegister(metricaffine.NewElastic)
	r.mustRegister(sparsepoly.New)
	r.mustRegister(exact.Global)
	r.aliases[sparsepoly.LegacyAliasID] = sparsepoly.ID
	return r
}

func (r *registry) mustRegister(s hdc.Strategy) {
	id := s.Meta().ID
	if _, exists := r.byID[id]; exists {
		panic(fmt.Sprintf("hdc/registry: duplicate strategy id %q", id))
	}
	r.byID[id] = s
	r.registered = append(r.registered, id)
}

func (r *registry) resolve(id string) string {
	if canonical, ok := r.aliases[id]; ok {
		return canonical
	}
	return id
}

// Lookup returns the stateless strategy registered under id, resolving
// legacy aliases (e.g. "fractal-semantic" -> "sparse-polynomial"). EXACT
// resolves here too, but every algebra call on it fails with
// ErrSessionRequired; use NewExactSession for a usable instance.
func Lookup(id string) (hdc.Strategy, error) {
	global.mu.RLock()
	defer global.mu.RUnlock()
	s, ok := global.byID[global.resolve(id)]
	if !ok {
		hdc.Logger().Warn("registry: unknown strategy requested", zap.String("id", id))
		return nil, fmt.Errorf("hdc/registry: %q: %w", id, hdc.ErrUnknownStrategy)
	}
	return s, nil
}

// Default returns the default dense-binary strategy.
func Default() hdc.Strategy {
	s, err := Lookup(DefaultStrategyID)
	if err != nil {
		panic("hdc/registry: default strategy missing: " + err.Error())
	}
	return s
}

// IDs returns every registered strategy id (not including aliases),
// sorted for deterministic CLI and test output.
func IDs() []string {
	global.mu.RLock()
	defer global.mu.RUnlock()
	out := make([]string, len(global.registered))
	copy(out, global.registered)
	sort.Strings(out)
	return out
}

// ExactSession pairs an exact.Session with the hdc.Strategy bound to it,
// so callers get both the algebra surface and the lifecycle handle (e.g.
// for AtomName lookups outside DecodeUnboundCandidates) from one call.
type ExactSession struct {
	hdc.Strategy
	Session *exact.Session
}

// NewExactSession constructs a fresh, isolated EXACT strategy instance
// with its own atom dictionary (§4.6 "Session isolation"). opts selects
// the unbind mode and normalization ceilings; pass
// hdc.DefaultExactOptions() for the documented defaults.
func NewExactSession(opts hdc.ExactOptions) *ExactSession {
	session := exact.NewSession(opts)
	return &ExactSession{
		Strategy: exact.NewSessionStrategy(session),
		Session:  session,
	}
}
