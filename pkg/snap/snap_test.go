package snap

import (
	"fmt"
	"testing"

	"lintang/roadgraph/pkg/datastructure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seattleNodes() []datastructure.GraphNode {
	coords := [][2]float64{
		{47.615248, -122.320817},
		{47.615248, -122.321466},
		{47.615157, -122.321464},
		{47.614111, -122.321455},
		{47.615233, -122.322150},
		{47.614087, -122.322129},
		{47.614094, -122.323413},
		{47.612984, -122.322126},
		{47.612995, -122.323384},
	}
	nodes := make([]datastructure.GraphNode, 0, len(coords))
	for i, c := range coords {
		nodes = append(nodes, datastructure.NewGraphNode(fmt.Sprintf("node_%d", i), c[0], c[1]))
	}
	return nodes
}

func TestNearestNodes(t *testing.T) {
	snapper := NewNodeSnapper(seattleNodes())

	t.Run("closest node first", func(t *testing.T) {
		nodeIDs, err := snapper.NearestNodes(47.614090, -122.323400)
		require.NoError(t, err)
		require.Len(t, nodeIDs, defaultCandidates)
		assert.Equal(t, "node_6", nodeIDs[0])
	})

	t.Run("exact node position", func(t *testing.T) {
		nodeIDs, err := snapper.NearestNodes(47.615248, -122.320817)
		require.NoError(t, err)
		assert.Equal(t, "node_0", nodeIDs[0])
	})
}

func TestNearestNodesSmallGraph(t *testing.T) {
	snapper := NewNodeSnapper(seattleNodes()[:2])
	nodeIDs, err := snapper.NearestNodes(47.615248, -122.321400)
	require.NoError(t, err)
	assert.Equal(t, []string{"node_1", "node_0"}, nodeIDs)
}

func TestNearestNodesEmpty(t *testing.T) {
	snapper := NewNodeSnapper(nil)
	_, err := snapper.NearestNodes(0, 0)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}
