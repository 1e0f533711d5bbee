package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"lintang/roadgraph/pkg/datastructure"
	"lintang/roadgraph/pkg/geo"
	"lintang/roadgraph/pkg/graphbuilder"
	"lintang/roadgraph/pkg/osmparser"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrEdgeNotFound = errors.New("edge not found")
)

// GraphService answers read-only queries over a built road graph. the graph is never mutated after NewGraphService.
type GraphService struct {
	graph     datastructure.Graph
	nodeIndex map[string]int
	edgeIndex map[string]int
	adjacency map[string][]string
	finder    NodeFinder
}

func NewGraphService(graph datastructure.Graph, finder NodeFinder) *GraphService {
	nodeIndex := make(map[string]int, len(graph.Nodes))
	adjacency := make(map[string][]string, len(graph.Nodes))
	for i, n := range graph.Nodes {
		nodeIndex[n.ID] = i
		adjacency[n.ID] = []string{}
	}

	edgeIndex := make(map[string]int, len(graph.Edges))
	for i, e := range graph.Edges {
		edgeIndex[e.ID] = i
		// undirected
		adjacency[e.FromNode] = append(adjacency[e.FromNode], e.ToNode)
		adjacency[e.ToNode] = append(adjacency[e.ToNode], e.FromNode)
	}

	return &GraphService{
		graph:     graph,
		nodeIndex: nodeIndex,
		edgeIndex: edgeIndex,
		adjacency: adjacency,
		finder:    finder,
	}
}

func (s *GraphService) Graph(ctx context.Context) datastructure.Graph {
	return s.graph
}

func (s *GraphService) GetNode(ctx context.Context, nodeID string) (datastructure.GraphNode, error) {
	idx, ok := s.nodeIndex[nodeID]
	if !ok {
		return datastructure.GraphNode{}, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	return s.graph.Nodes[idx], nil
}

// Neighbors returns the ids of the nodes sharing an edge with nodeID, in edge order.
func (s *GraphService) Neighbors(ctx context.Context, nodeID string) ([]string, error) {
	neighbors, ok := s.adjacency[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	return neighbors, nil
}

func (s *GraphService) GetEdge(ctx context.Context, edgeID string) (datastructure.GraphEdge, error) {
	idx, ok := s.edgeIndex[edgeID]
	if !ok {
		return datastructure.GraphEdge{}, fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeID)
	}
	return s.graph.Edges[idx], nil
}

// EdgePolyline returns the encoded polyline of the edge geometry, optionally simplified with ramer-douglas-peucker.
func (s *GraphService) EdgePolyline(ctx context.Context, edgeID string, simplify bool) (datastructure.GraphEdge, string, error) {
	edge, err := s.GetEdge(ctx, edgeID)
	if err != nil {
		return datastructure.GraphEdge{}, "", err
	}

	path := edge.Geometry
	if len(path) == 0 {
		// graph loaded from a json artifact has no geometry, fall back to the straight line
		from, err := s.GetNode(ctx, edge.FromNode)
		if err != nil {
			return datastructure.GraphEdge{}, "", err
		}
		to, err := s.GetNode(ctx, edge.ToNode)
		if err != nil {
			return datastructure.GraphEdge{}, "", err
		}
		path = []datastructure.Coordinate{from.Coordinate(), to.Coordinate()}
	}
	if simplify {
		path = geo.RamerDouglasPeucker(path, geo.DOUGLAS_PEUCKER_THRESHOLD)
	}
	return edge, datastructure.CreatePolyline(path), nil
}

// NearestNode returns the graph node closest to (lat, lon) and its great-circle distance in km.
func (s *GraphService) NearestNode(ctx context.Context, lat, lon float64) (datastructure.GraphNode, float64, error) {
	nodeIDs, err := s.finder.NearestNodes(lat, lon)
	if err != nil {
		return datastructure.GraphNode{}, 0, err
	}

	query := datastructure.NewCoordinate(lat, lon)
	bestDist := math.MaxFloat64
	bestIdx := -1
	for _, id := range nodeIDs {
		idx, ok := s.nodeIndex[id]
		if !ok {
			continue
		}
		dist := geo.GreatCircleDistance(query, s.graph.Nodes[idx].Coordinate())
		if dist < bestDist {
			bestDist = dist
			bestIdx = idx
		}
	}
	if bestIdx == -1 {
		return datastructure.GraphNode{}, 0, ErrNodeNotFound
	}
	return s.graph.Nodes[bestIdx], bestDist, nil
}

// BuildGraph filters a geojson feature collection and builds a new graph from it. the served graph is not replaced.
func (s *GraphService) BuildGraph(ctx context.Context, geojson []byte) (datastructure.Graph, graphbuilder.Stats, error) {
	segments, err := osmparser.FilterGeoJSON(geojson)
	if err != nil {
		return datastructure.Graph{}, graphbuilder.Stats{}, err
	}
	return graphbuilder.BuildWithStats(segments)
}
