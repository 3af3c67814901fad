package persist

import (
	"testing"

	"github.com/orneryd/mgraph/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New("sample")
	require.NoError(t, err)

	a, err := g.CreateNode([]string{"Person"}, map[string]any{
		"name": "Ada",
		"age":  int64(36),
		"tags": []any{"math", "computing"},
	})
	require.NoError(t, err)
	b, err := g.CreateNode([]string{"Person", "Engineer"}, map[string]any{"name": "Grace"})
	require.NoError(t, err)

	_, err = g.CreateEdge(a, b, "KNOWS", map[string]any{"since": int64(1840)})
	require.NoError(t, err)
	_, err = g.CreateEdge(a, b, "KNOWS", nil) // second edge, same pair -> multi-edge cell
	require.NoError(t, err)

	return g
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := buildSampleGraph(t)

	shards, err := Encode(g)
	require.NoError(t, err)
	require.NotEmpty(t, shards)

	restored, err := Decode("sample", shards)
	require.NoError(t, err)

	origStats := g.Stats()
	restoredStats := restored.Stats()
	assert.Equal(t, origStats.NodeCount, restoredStats.NodeCount)
	assert.Equal(t, origStats.EdgeCount, restoredStats.EdgeCount)
}

func TestEncodeDecodePreservesProperties(t *testing.T) {
	g := buildSampleGraph(t)
	shards, err := Encode(g)
	require.NoError(t, err)

	restored, err := Decode("sample", shards)
	require.NoError(t, err)

	var found bool
	restored.IterateNodes(func(n graph.Node) bool {
		if n.Properties["name"] == "Ada" {
			found = true
			assert.Equal(t, int64(36), n.Properties["age"])
			assert.Equal(t, []any{"math", "computing"}, n.Properties["tags"])
		}
		return true
	})
	assert.True(t, found)
}

func TestMarshalUnmarshalShard(t *testing.T) {
	g := buildSampleGraph(t)
	shards, err := Encode(g)
	require.NoError(t, err)

	for _, s := range shards {
		wire := s.Marshal()
		back, err := UnmarshalShard(s.GraphName, wire)
		require.NoError(t, err)
		assert.Equal(t, s.Payload, back.Payload)
		assert.Equal(t, s.Kind, back.Kind)
		assert.Equal(t, s.Seq, back.Seq)
	}
}

func TestUnmarshalShardDetectsCorruption(t *testing.T) {
	g := buildSampleGraph(t)
	shards, err := Encode(g)
	require.NoError(t, err)

	wire := shards[0].Marshal()
	wire[len(wire)-1] ^= 0xFF // flip a payload byte

	_, err = UnmarshalShard(shards[0].GraphName, wire)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestShardKeyCoLocation(t *testing.T) {
	k := ShardKey("mygraph", "uuid-1", true)
	assert.Equal(t, "{mygraph}mygraph_uuid-1", k)

	k2 := ShardKey("mygraph", "uuid-1", false)
	assert.Equal(t, "mygraph_uuid-1", k2)
}
