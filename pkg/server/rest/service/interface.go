package service

// NodeFinder returns candidate node ids close to a location, closest first when it can tell.
type NodeFinder interface {
	NearestNodes(lat, lon float64) ([]string, error)
}
