package kv

import (
	"lintang/roadgraph/pkg/datastructure"

	"github.com/kelindar/binary"
)

type kvCoordinate struct {
	Lat float64
	Lon float64
}

type kvNode struct {
	ID          string
	Lat         float64
	Lon         float64
	StreetNames []string
}

type kvEdge struct {
	ID            string
	FromNode      string
	ToNode        string
	Length        float64
	StreetName    string
	HasStreetName bool
	Geometry      []kvCoordinate
}

type kvCell struct {
	NodeIDs []string
}

func newKVNode(n datastructure.GraphNode) kvNode {
	return kvNode{
		ID:          n.ID,
		Lat:         n.Lat,
		Lon:         n.Lon,
		StreetNames: n.StreetNames,
	}
}

func (n kvNode) toGraphNode() datastructure.GraphNode {
	node := datastructure.NewGraphNode(n.ID, n.Lat, n.Lon)
	if len(n.StreetNames) > 0 {
		node.StreetNames = n.StreetNames
	}
	return node
}

func newKVEdge(e datastructure.GraphEdge) kvEdge {
	geometry := make([]kvCoordinate, 0, len(e.Geometry))
	for _, c := range e.Geometry {
		geometry = append(geometry, kvCoordinate{Lat: c.Lat, Lon: c.Lon})
	}
	return kvEdge{
		ID:            e.ID,
		FromNode:      e.FromNode,
		ToNode:        e.ToNode,
		Length:        e.Length,
		StreetName:    e.GetStreetName(),
		HasStreetName: e.StreetName != nil,
		Geometry:      geometry,
	}
}

func (e kvEdge) toGraphEdge() datastructure.GraphEdge {
	var streetName *string
	if e.HasStreetName {
		name := e.StreetName
		streetName = &name
	}
	var geometry []datastructure.Coordinate
	if len(e.Geometry) > 0 {
		geometry = make([]datastructure.Coordinate, 0, len(e.Geometry))
		for _, c := range e.Geometry {
			geometry = append(geometry, datastructure.NewCoordinate(c.Lat, c.Lon))
		}
	}
	return datastructure.NewGraphEdge(e.ID, e.FromNode, e.ToNode, e.Length, streetName, geometry)
}

// encode marshals v with kelindar/binary and compresses it with zstd.
func encode[T kvNode | kvEdge | kvCell](v T) ([]byte, error) {
	bb, err := binary.Marshal(v)
	if err != nil {
		return nil, err
	}
	return compress(bb)
}

func decode[T kvNode | kvEdge | kvCell](bbCompressed []byte) (T, error) {
	var v T
	bb, err := decompress(bbCompressed)
	if err != nil {
		return v, err
	}
	err = binary.Unmarshal(bb, &v)
	return v, err
}
