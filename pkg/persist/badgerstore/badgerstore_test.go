package badgerstore

import (
	"testing"

	"github.com/orneryd/mgraph/pkg/graph"
	"github.com/orneryd/mgraph/pkg/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New("sample")
	require.NoError(t, err)
	a, err := g.CreateNode([]string{"Person"}, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	b, err := g.CreateNode([]string{"Person"}, map[string]any{"name": "Grace"})
	require.NoError(t, err)
	_, err = g.CreateEdge(a, b, "KNOWS", nil)
	require.NoError(t, err)
	return g
}

func TestSaveAndLoadGraphRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	g := buildSampleGraph(t)
	shards, err := persist.Encode(g)
	require.NoError(t, err)

	require.NoError(t, store.SaveGraph(shards, false))

	loaded, err := store.LoadGraph("sample", false)
	require.NoError(t, err)
	assert.Len(t, loaded, len(shards))

	restored, err := persist.Decode("sample", loaded)
	require.NoError(t, err)
	assert.Equal(t, g.Stats().NodeCount, restored.Stats().NodeCount)
	assert.Equal(t, g.Stats().EdgeCount, restored.Stats().EdgeCount)
}

func TestLoadGraphIsolatesDifferentGraphs(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	g1, err := graph.New("g1")
	require.NoError(t, err)
	_, err = g1.CreateNode([]string{"X"}, nil)
	require.NoError(t, err)
	shards1, err := persist.Encode(g1)
	require.NoError(t, err)
	require.NoError(t, store.SaveGraph(shards1, false))

	g2, err := graph.New("g2")
	require.NoError(t, err)
	_, err = g2.CreateNode([]string{"Y"}, nil)
	require.NoError(t, err)
	_, err = g2.CreateNode([]string{"Y"}, nil)
	require.NoError(t, err)
	shards2, err := persist.Encode(g2)
	require.NoError(t, err)
	require.NoError(t, store.SaveGraph(shards2, false))

	loaded1, err := store.LoadGraph("g1", false)
	require.NoError(t, err)
	restored1, err := persist.Decode("g1", loaded1)
	require.NoError(t, err)
	assert.Equal(t, 1, restored1.Stats().NodeCount)

	loaded2, err := store.LoadGraph("g2", false)
	require.NoError(t, err)
	restored2, err := persist.Decode("g2", loaded2)
	require.NoError(t, err)
	assert.Equal(t, 2, restored2.Stats().NodeCount)
}

func TestDeleteGraphRemovesPriorShardsBeforeResave(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	g := buildSampleGraph(t)
	shards, err := persist.Encode(g)
	require.NoError(t, err)
	require.NoError(t, store.SaveGraph(shards, false))

	require.NoError(t, store.DeleteGraph("sample", false))

	smaller, err := graph.New("sample")
	require.NoError(t, err)
	_, err = smaller.CreateNode([]string{"Person"}, nil)
	require.NoError(t, err)
	newShards, err := persist.Encode(smaller)
	require.NoError(t, err)
	require.NoError(t, store.SaveGraph(newShards, false))

	loaded, err := store.LoadGraph("sample", false)
	require.NoError(t, err)
	restored, err := persist.Decode("sample", loaded)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Stats().NodeCount, "stale shards from the first save must not resurface")
}

func TestSaveGraphCoLocated(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	g := buildSampleGraph(t)
	shards, err := persist.Encode(g)
	require.NoError(t, err)
	require.NoError(t, store.SaveGraph(shards, true))

	loaded, err := store.LoadGraph("sample", true)
	require.NoError(t, err)
	assert.Len(t, loaded, len(shards))
}
