package datastructure

// RoadSegment is one filtered road polyline. Name nil means the road has no name.
type RoadSegment struct {
	Name        *string
	Coordinates []Coordinate
}

func NewRoadSegment(name *string, coords []Coordinate) RoadSegment {
	return RoadSegment{
		Name:        name,
		Coordinates: coords,
	}
}

// StreetName returns a name pointer, nil for an empty name.
func StreetName(name string) *string {
	if name == "" {
		return nil
	}
	return &name
}

type GraphNode struct {
	ID          string   `json:"id"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	StreetNames []string `json:"streetNames"`
}

func NewGraphNode(id string, lat, lon float64) GraphNode {
	return GraphNode{
		ID:          id,
		Lat:         lat,
		Lon:         lon,
		StreetNames: []string{},
	}
}

func (n GraphNode) Coordinate() Coordinate {
	return NewCoordinate(n.Lat, n.Lon)
}

type GraphEdge struct {
	ID         string  `json:"id"`
	FromNode   string  `json:"fromNode"`
	ToNode     string  `json:"toNode"`
	Length     float64 `json:"length"` // km
	StreetName *string `json:"streetName"`

	// Geometry is the sub-run of the source polyline this edge covers, endpoints included.
	// not part of the graph artifact.
	Geometry []Coordinate `json:"-"`
}

func NewGraphEdge(id, from, to string, length float64, streetName *string, geometry []Coordinate) GraphEdge {
	return GraphEdge{
		ID:         id,
		FromNode:   from,
		ToNode:     to,
		Length:     length,
		StreetName: streetName,
		Geometry:   geometry,
	}
}

// GetStreetName returns the edge street name or "" for an unnamed road.
func (e GraphEdge) GetStreetName() string {
	if e.StreetName == nil {
		return ""
	}
	return *e.StreetName
}

type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

func NewGraph(nodes []GraphNode, edges []GraphEdge) Graph {
	if nodes == nil {
		nodes = []GraphNode{}
	}
	if edges == nil {
		edges = []GraphEdge{}
	}
	return Graph{
		Nodes: nodes,
		Edges: edges,
	}
}
