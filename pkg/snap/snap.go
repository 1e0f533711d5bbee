package snap

import (
	"errors"

	"lintang/roadgraph/pkg/datastructure"

	"github.com/dhconnelly/rtreego"
)

var (
	ErrEmptyIndex = errors.New("node index is empty")
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	pointTolerance   = 1e-7
	// rtree distance is euclidean in degree, so take a few candidates and let the caller rank them.
	defaultCandidates = 5
)

type nodeLeaf struct {
	id    string
	bound rtreego.Rect
}

func (n *nodeLeaf) Bounds() rtreego.Rect {
	return n.bound
}

// NodeSnapper is an in-memory rtree of graph nodes.
type NodeSnapper struct {
	rtree      *rtreego.Rtree
	candidates int
}

func NewNodeSnapper(nodes []datastructure.GraphNode) *NodeSnapper {
	rt := rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)
	for _, n := range nodes {
		rt.Insert(&nodeLeaf{
			id:    n.ID,
			bound: rtreego.Point{n.Lat, n.Lon}.ToRect(pointTolerance),
		})
	}
	return &NodeSnapper{rtree: rt, candidates: defaultCandidates}
}

// NearestNodes returns the ids of the nodes closest to (lat, lon), closest first.
func (s *NodeSnapper) NearestNodes(lat, lon float64) ([]string, error) {
	if s.rtree.Size() == 0 {
		return nil, ErrEmptyIndex
	}

	leaves := s.rtree.NearestNeighbors(s.candidates, rtreego.Point{lat, lon})
	nodeIDs := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		if leaf == nil {
			continue
		}
		nodeIDs = append(nodeIDs, leaf.(*nodeLeaf).id)
	}
	return nodeIDs, nil
}
