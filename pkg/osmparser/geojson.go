package osmparser

import (
	"bytes"
	"errors"
	"log"
	"os"

	"lintang/roadgraph/pkg/datastructure"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func FilterGeoJSONFile(path string) ([]datastructure.RoadSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	log.Printf("reading geojson file %s", path)
	return FilterGeoJSON(data)
}

// FilterGeoJSON keeps LineString features whose highway property is an accepted road class.
// output order follows the input order of the kept features.
func FilterGeoJSON(data []byte) ([]datastructure.RoadSegment, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, parseError(errors.New("feature collection is null"))
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, parseError(err)
	}
	if fc == nil {
		return nil, parseError(errors.New("feature collection is null"))
	}

	segments := make([]datastructure.RoadSegment, 0, len(fc.Features))
	for _, feature := range fc.Features {
		if feature == nil {
			continue
		}
		line, ok := feature.Geometry.(orb.LineString)
		if !ok {
			continue
		}

		highway, ok := feature.Properties["highway"].(string)
		if !ok || !acceptHighway(highway) {
			continue
		}

		var name *string
		if val, ok := feature.Properties["name"].(string); ok {
			name = datastructure.StreetName(val)
		}

		coords := make([]datastructure.Coordinate, 0, len(line))
		for _, p := range line {
			coords = append(coords, datastructure.NewCoordinate(p.Lat(), p.Lon()))
		}
		segments = append(segments, datastructure.NewRoadSegment(name, coords))
	}

	log.Printf("total road segments filtered: %d of %d features", len(segments), len(fc.Features))
	return segments, nil
}
