package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/OutfinityResearch/hdc-algebra"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLookupKnownStrategies(t *testing.T) {
	for _, id := range []string{"dense-binary", "metric-affine", "metric-affine-elastic", "sparse-polynomial", "exact"} {
		s, err := Lookup(id)
		require.NoErrorf(t, err, "lookup %s", id)
		require.Equal(t, id, s.Meta().ID)
	}
}

func TestLookupLegacyAlias(t *testing.T) {
	s, err := Lookup("fractal-semantic")
	require.NoError(t, err)
	require.Equal(t, "sparse-polynomial", s.Meta().ID)
}

func TestLookupUnknownStrategyErrors(t *testing.T) {
	_, err := Lookup("not-a-real-strategy")
	require.ErrorIs(t, err, hdc.ErrUnknownStrategy)
}

func TestDefaultIsDenseBinary(t *testing.T) {
	require.Equal(t, "dense-binary", Default().Meta().ID)
}

func TestIDsSortedAndComplete(t *testing.T) {
	ids := IDs()
	require.Equal(t, []string{"dense-binary", "exact", "metric-affine", "metric-affine-elastic", "sparse-polynomial"}, ids)
}

func TestGlobalExactFacadeRefusesAlgebra(t *testing.T) {
	s, err := Lookup("exact")
	require.NoError(t, err)
	_, err = s.CreateZero(8)
	require.ErrorIs(t, err, hdc.ErrSessionRequired)
}

func TestNewExactSessionIsUsable(t *testing.T) {
	es := NewExactSession(hdc.DefaultExactOptions())
	v, err := es.CreateFromName("cat", 8, "animals")
	require.NoError(t, err)
	require.Equal(t, "exact", v.StrategyID())
}

func TestExactSessionsAreIsolated(t *testing.T) {
	a := NewExactSession(hdc.DefaultExactOptions())
	b := NewExactSession(hdc.DefaultExactOptions())
	require.NotEqual(t, a.Session.ID, b.Session.ID)
}
