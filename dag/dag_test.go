package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(levels [][]*Node) [][]string {
	out := make([][]string, len(levels))
	for i, level := range levels {
		for _, n := range level {
			out[i] = append(out[i], n.Name())
		}
	}
	return out
}

func TestLevels(t *testing.T) {
	g := New("test")
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		_, err := g.AddNamed(name, "")
		require.NoError(t, err)
	}
	// a -> b -> d, a -> c, e is independent.
	require.NoError(t, g.AddDependency("a", "b"))
	require.NoError(t, g.AddDependency("b", "d"))
	require.NoError(t, g.AddDependency("a", "c"))

	levels, err := g.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "e"}, {"b", "c"}, {"d"}}, names(levels))
}

func TestLevelsLongestPath(t *testing.T) {
	g := New("test")
	for _, name := range []string{"a", "b", "c"} {
		_, err := g.AddNamed(name, "")
		require.NoError(t, err)
	}
	// c depends on a directly and through b, so it lands after b.
	require.NoError(t, g.AddDependency("a", "b"))
	require.NoError(t, g.AddDependency("b", "c"))
	require.NoError(t, g.AddDependency("a", "c"))

	levels, err := g.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, names(levels))
}

func TestAddNamedDuplicate(t *testing.T) {
	g := New("test")
	_, err := g.AddNamed("a", "")
	require.NoError(t, err)
	_, err = g.AddNamed("a", "")
	assert.Error(t, err)
}

func TestAddDependencyErrors(t *testing.T) {
	g := New("test")
	_, err := g.AddNamed("a", "")
	require.NoError(t, err)

	assert.Error(t, g.AddDependency("a", "missing"))
	assert.Error(t, g.AddDependency("missing", "a"))
	assert.Error(t, g.AddDependency("a", "a"))
}

func TestExportToDot(t *testing.T) {
	g := New("pipeline")
	_, err := g.AddNamed("fetch", "Fetch sources")
	require.NoError(t, err)
	_, err = g.AddNamed("build", "")
	require.NoError(t, err)
	require.NoError(t, g.AddDependency("fetch", "build"))

	out, err := g.ExportToDot()
	require.NoError(t, err)
	assert.Contains(t, out, "digraph pipeline {")
	assert.Contains(t, out, `fetch [label="Fetch sources"];`)
	assert.Contains(t, out, "fetch -> build;")
}
