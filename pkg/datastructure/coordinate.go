package datastructure

import "math"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

func NewCoordinates(lat, lon []float64) []Coordinate {
	coords := make([]Coordinate, len(lat))
	for i := range lat {
		coords[i] = NewCoordinate(lat[i], lon[i])
	}
	return coords
}

// CoordKey is the identity of a coordinate in the road graph.
// two coordinates are the same graph point iff their (lon, lat) float64 bit patterns are equal.
// no tolerance matching.
type CoordKey [2]uint64

func (c Coordinate) Key() CoordKey {
	lon, lat := c.Lon, c.Lat
	// fold -0 into +0
	if lon == 0 {
		lon = 0
	}
	if lat == 0 {
		lat = 0
	}
	return CoordKey{math.Float64bits(lon), math.Float64bits(lat)}
}
