package graphbuilder

import (
	"errors"
	"fmt"
	"log"

	"lintang/roadgraph/pkg/datastructure"
	"lintang/roadgraph/pkg/geo"
	"lintang/roadgraph/pkg/util"
)

var (
	ErrTooFewCoordinates = errors.New("road segment must have at least 2 coordinates")
)

const lengthPrecision = 2

type Stats struct {
	Nodes         int
	Edges         int
	Intersections int
	TotalLength   float64 // km
}

// GraphBuilder holds the accumulation state of a single build. use Build, it is not reusable.
type GraphBuilder struct {
	coordUsage    map[datastructure.CoordKey]int
	intersections map[datastructure.CoordKey]struct{}
	nodeIDMap     map[datastructure.CoordKey]int
	nodeStreets   []map[string]struct{}
	nodes         []datastructure.GraphNode
	edges         []datastructure.GraphEdge
}

func newGraphBuilder() *GraphBuilder {
	return &GraphBuilder{
		coordUsage:    make(map[datastructure.CoordKey]int),
		intersections: make(map[datastructure.CoordKey]struct{}),
		nodeIDMap:     make(map[datastructure.CoordKey]int),
		nodeStreets:   make([]map[string]struct{}, 0),
		nodes:         make([]datastructure.GraphNode, 0),
		edges:         make([]datastructure.GraphEdge, 0),
	}
}

// Build turns road segments into a road graph. nodes are placed at polyline endpoints and at every
// coordinate used more than once across all segments, edges carry the haversine length (km) of the polyline between them.
// output is fully determined by the segment order.
func Build(segments []datastructure.RoadSegment) (datastructure.Graph, error) {
	graph, _, err := BuildWithStats(segments)
	return graph, err
}

func BuildWithStats(segments []datastructure.RoadSegment) (datastructure.Graph, Stats, error) {
	for i, segment := range segments {
		if len(segment.Coordinates) < 2 {
			return datastructure.Graph{}, Stats{}, fmt.Errorf("segment %d has %d coordinates: %w",
				i, len(segment.Coordinates), ErrTooFewCoordinates)
		}
	}

	b := newGraphBuilder()
	b.countCoordUsage(segments)

	for _, segment := range segments {
		b.processSegment(segment)
	}

	graph := b.finalize()

	stats := Stats{
		Nodes:         len(graph.Nodes),
		Edges:         len(graph.Edges),
		Intersections: len(b.intersections),
	}
	for _, edge := range graph.Edges {
		stats.TotalLength += edge.Length
	}

	log.Printf("total nodes: %d, total edges: %d, intersections: %d", stats.Nodes, stats.Edges, stats.Intersections)
	return graph, stats, nil
}

func (b *GraphBuilder) countCoordUsage(segments []datastructure.RoadSegment) {
	for _, segment := range segments {
		for _, coord := range segment.Coordinates {
			b.coordUsage[coord.Key()]++
		}
	}

	for key, count := range b.coordUsage {
		if count > 1 {
			b.intersections[key] = struct{}{}
		}
	}
}

func (b *GraphBuilder) isIntersection(coord datastructure.Coordinate) bool {
	_, ok := b.intersections[coord.Key()]
	return ok
}

// getOrCreateNode returns the id of the node at coord, creating it on first use.
// streetName (if not nil) is added to the node street names.
func (b *GraphBuilder) getOrCreateNode(coord datastructure.Coordinate, streetName *string) string {
	key := coord.Key()
	nodeIdx, ok := b.nodeIDMap[key]
	if !ok {
		nodeIdx = len(b.nodes)
		b.nodeIDMap[key] = nodeIdx
		b.nodes = append(b.nodes, datastructure.NewGraphNode(fmt.Sprintf("node_%d", nodeIdx), coord.Lat, coord.Lon))
		b.nodeStreets = append(b.nodeStreets, make(map[string]struct{}))
	}

	if streetName != nil {
		b.nodeStreets[nodeIdx][*streetName] = struct{}{}
	}

	return b.nodes[nodeIdx].ID
}

// splitPoints returns the ascending coordinate indices where the segment must be cut into edges.
func (b *GraphBuilder) splitPoints(coords []datastructure.Coordinate) []int {
	splits := []int{0}
	for i := 1; i < len(coords)-1; i++ {
		if b.isIntersection(coords[i]) {
			splits = append(splits, i)
		}
	}
	splits = append(splits, len(coords)-1)
	return splits
}

func (b *GraphBuilder) processSegment(segment datastructure.RoadSegment) {
	coords := segment.Coordinates
	splits := b.splitPoints(coords)
	for i := 0; i < len(splits)-1; i++ {
		b.addEdge(coords, splits[i], splits[i+1], segment.Name)
	}
}

// addEdge emits the edge covering coords[startIdx..endIdx].
// a run that starts and ends on the same coordinate is cut again at its second to last vertex, so no edge is a self loop.
// a two coordinate run on the same coordinate has zero length and only materializes the node.
func (b *GraphBuilder) addEdge(coords []datastructure.Coordinate, startIdx, endIdx int, streetName *string) {
	if coords[startIdx].Key() == coords[endIdx].Key() {
		if endIdx-startIdx < 2 {
			b.getOrCreateNode(coords[startIdx], streetName)
			return
		}
		b.addEdge(coords, startIdx, endIdx-1, streetName)
		b.addEdge(coords, endIdx-1, endIdx, streetName)
		return
	}

	fromNode := b.getOrCreateNode(coords[startIdx], streetName)
	toNode := b.getOrCreateNode(coords[endIdx], streetName)

	edgePoints := make([]datastructure.Coordinate, endIdx-startIdx+1)
	copy(edgePoints, coords[startIdx:endIdx+1])

	length := util.RoundFloat(geo.PolylineLength(edgePoints), lengthPrecision)

	b.edges = append(b.edges, datastructure.NewGraphEdge(fmt.Sprintf("edge_%d", len(b.edges)),
		fromNode, toNode, length, streetName, edgePoints))
}

func (b *GraphBuilder) finalize() datastructure.Graph {
	for i := range b.nodes {
		b.nodes[i].StreetNames = util.SetToSortedSlice(b.nodeStreets[i])
	}
	return datastructure.NewGraph(b.nodes, b.edges)
}
