package osmparser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"lintang/roadgraph/pkg/datastructure"
)

var (
	ErrParse = errors.New("input is not a feature collection")
)

// acceptedHighway is the road class allow-list. everything else is dropped silently.
var acceptedHighway = map[string]struct{}{
	"residential": {},
	"primary":     {},
	"secondary":   {},
	"tertiary":    {},
}

func acceptHighway(highway string) bool {
	_, ok := acceptedHighway[highway]
	return ok
}

// ReadSegments reads road segments from an openstreetmap pbf extract (.pbf) or a geojson feature collection.
func ReadSegments(ctx context.Context, path string) ([]datastructure.RoadSegment, error) {
	if strings.HasSuffix(path, ".pbf") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return FilterPBF(ctx, f)
	}
	return FilterGeoJSONFile(path)
}

func parseError(err error) error {
	return fmt.Errorf("%w: %v", ErrParse, err)
}
