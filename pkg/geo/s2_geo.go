package geo

import (
	"lintang/roadgraph/pkg/datastructure"

	"github.com/golang/geo/s2"
)

func toS2Point(c datastructure.Coordinate) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon))
}

// GreatCircleDistance returns the s2 great-circle distance between a and b in km.
func GreatCircleDistance(a, b datastructure.Coordinate) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return angle.Radians() * earthRadiusKM
}

// PointLinePerpendicularDistance returns the distance in meter from p to the great-circle segment (a,b).
func PointLinePerpendicularDistance(a, b, p datastructure.Coordinate) float64 {
	angle := s2.DistanceFromSegment(toS2Point(p), toS2Point(a), toS2Point(b))
	return angle.Radians() * earthRadiusM
}
