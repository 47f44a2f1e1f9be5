package exact

import (
	"math/big"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OutfinityResearch/hdc-algebra"
)

// BottomName and TopName are the two atoms preallocated at every Session's
// construction (§3 "Atom index", §4.6). Their dictionary indices are
// always 0 and 1 respectively, so their monomials are always 1 and 2.
const (
	BottomName = "BOTTOM_IMPOSSIBLE"
	TopName    = "TOP_INEFFABLE"
)

// Session owns one EXACT strategy's per-instance state: the atom
// dictionary (name -> first-appearance index) and the unbind-mode /
// ceiling configuration. The dictionary is never shared across sessions
// (§4.6 "Session isolation").
type Session struct {
	// ID identifies this session instance; useful for logging and for
	// downstream callers that need to correlate a strategy instance with
	// a reasoning session.
	ID string

	mu      sync.Mutex
	names   []string
	index   map[string]int
	Options hdc.ExactOptions
}

// NewSession constructs a fresh EXACT session with its own atom
// dictionary, preloaded with ⊥ and ⊤ at indices 0 and 1.
func NewSession(opts hdc.ExactOptions) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		names:   make([]string, 0, 8),
		index:   make(map[string]int, 8),
		Options: opts,
	}
	s.atomIndexLocked(BottomName)
	s.atomIndexLocked(TopName)
	hdc.Logger().Debug("exact: session constructed", zap.String("sessionId", s.ID))
	return s
}

// BottomIndex is the fixed dictionary index of ⊥.
func (s *Session) BottomIndex() int { return 0 }

// TopIndex is the fixed dictionary index of ⊤.
func (s *Session) TopIndex() int { return 1 }

// BottomMonomial is the singleton monomial 1<<BottomIndex.
func (s *Session) BottomMonomial() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(s.BottomIndex()))
}

// TopMonomial is the singleton monomial 1<<TopIndex.
func (s *Session) TopMonomial() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(s.TopIndex()))
}

func (s *Session) atomIndexLocked(name string) int {
	if idx, ok := s.index[name]; ok {
		return idx
	}
	idx := len(s.names)
	s.names = append(s.names, name)
	s.index[name] = idx
	return idx
}

// AtomIndex returns name's dictionary index, assigning the next
// first-appearance index if name has not been seen before. Safe for
// concurrent use; callers sharing a Session across goroutines still
// serialize through this lock (§5 "Per-session state").
func (s *Session) AtomIndex(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.atomIndexLocked(name)
}

// AtomName reverse-looks-up a dictionary index to its name.
func (s *Session) AtomName(idx int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.names) {
		return "", false
	}
	return s.names[idx], true
}
