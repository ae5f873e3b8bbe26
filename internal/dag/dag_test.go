package dag

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, nodes []string, edges [][2]string) *Graph {
	t.Helper()
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a")
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes["a"]
	require.True(t, ok)
	assert.Equal(t, "a", nodeA.id)

	g.AddNode("a")
	assert.Len(t, g.nodes, 1)
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := build(t, []string{"a", "b", "c"}, [][2]string{{"a", "c"}, {"b", "c"}})

		deps, err := g.Dependencies("c")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, deps)

		dependents, err := g.Dependents("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := build(t, []string{"a"}, nil)

		assert.ErrorContains(t, g.AddEdge("dne", "a"), "source node not found")
		assert.ErrorContains(t, g.AddEdge("a", "dne"), "destination node not found")

		_, err := g.Dependencies("dne")
		assert.Error(t, err)
		_, err = g.Dependents("dne")
		assert.Error(t, err)
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := build(t, []string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}})
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("self reference is a cycle", func(t *testing.T) {
		g := build(t, []string{"a"}, [][2]string{{"a", "a"}})
		err := g.DetectCycles()
		require.ErrorIs(t, err, ErrCycle)
		assert.ErrorContains(t, err, "a -> a")
	})

	t.Run("longer cycle names its path", func(t *testing.T) {
		g := build(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}})
		err := g.DetectCycles()
		require.ErrorIs(t, err, ErrCycle)
		assert.ErrorContains(t, err, "a -> b -> c -> a")
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := build(t, []string{"a", "b", "x", "y"}, [][2]string{{"a", "b"}, {"x", "y"}, {"y", "x"}})
		assert.ErrorIs(t, g.DetectCycles(), ErrCycle)
	})
}

func TestOrder(t *testing.T) {
	g := build(t, []string{"cpu", "alu", "adder", "mux"}, [][2]string{
		{"adder", "alu"},
		{"mux", "alu"},
		{"alu", "cpu"},
		{"mux", "cpu"},
	})
	order, err := g.Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"adder", "mux", "alu", "cpu"}, order)

	require.NoError(t, g.AddEdge("cpu", "adder"))
	_, err = g.Order()
	assert.ErrorIs(t, err, ErrCycle)
}

func TestGraph_ConcurrentUse(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i%26))
			g.AddNode(id)
			_ = g.DetectCycles()
			_, _ = g.Dependents(id)
		}()
	}
	wg.Wait()
	assert.Len(t, g.nodes, 26)
}
