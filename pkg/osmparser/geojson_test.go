package osmparser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lintang/roadgraph/pkg/datastructure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeatureCollection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"highway": "residential", "name": "Main St"},
      "geometry": {"type": "LineString", "coordinates": [[0, 0], [0, 1], [0, 2]]}
    },
    {
      "type": "Feature",
      "properties": {"highway": "footway", "name": "Park Path"},
      "geometry": {"type": "LineString", "coordinates": [[5, 5], [5, 6]]}
    },
    {
      "type": "Feature",
      "properties": {"highway": "primary"},
      "geometry": {"type": "LineString", "coordinates": [[-1, 1], [0, 1], [1, 1]]}
    },
    {
      "type": "Feature",
      "properties": {"highway": "secondary", "name": "Bus Stop"},
      "geometry": {"type": "Point", "coordinates": [3, 3]}
    },
    {
      "type": "Feature",
      "properties": {"name": "No Class Rd"},
      "geometry": {"type": "LineString", "coordinates": [[7, 7], [7, 8]]}
    },
    {
      "type": "Feature",
      "properties": {"highway": "tertiary", "name": ""},
      "geometry": {"type": "LineString", "coordinates": [[9, 9], [9.5, 9.25], [10, 10]]}
    },
    {
      "type": "Feature",
      "properties": {"highway": "secondary", "name": "Ring Rd"},
      "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 0]]]}
    }
  ]
}`

func TestFilterGeoJSON(t *testing.T) {
	segments, err := FilterGeoJSON([]byte(sampleFeatureCollection))
	require.NoError(t, err)
	require.Len(t, segments, 3)

	t.Run("keeps allowed line features in input order", func(t *testing.T) {
		require.NotNil(t, segments[0].Name)
		assert.Equal(t, "Main St", *segments[0].Name)
		assert.Equal(t, []datastructure.Coordinate{
			{Lat: 0, Lon: 0},
			{Lat: 1, Lon: 0},
			{Lat: 2, Lon: 0},
		}, segments[0].Coordinates)

		assert.Nil(t, segments[1].Name)
		assert.Equal(t, []datastructure.Coordinate{
			{Lat: 1, Lon: -1},
			{Lat: 1, Lon: 0},
			{Lat: 1, Lon: 1},
		}, segments[1].Coordinates)
	})

	t.Run("empty name becomes no name", func(t *testing.T) {
		assert.Nil(t, segments[2].Name)
		assert.Len(t, segments[2].Coordinates, 3)
		assert.Equal(t, datastructure.NewCoordinate(9.25, 9.5), segments[2].Coordinates[1])
	})
}

func TestFilterGeoJSONEmptyCollection(t *testing.T) {
	segments, err := FilterGeoJSON([]byte(`{"type": "FeatureCollection", "features": []}`))
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestFilterGeoJSONParseError(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"not json", `this is not geojson`},
		{"truncated", `{"type": "FeatureCollection", "features": [`},
		{"features is not a list", `{"type": "FeatureCollection", "features": 12}`},
		{"null", `null`},
		{"null with whitespace", " null\n"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			segments, err := FilterGeoJSON([]byte(c.input))
			assert.ErrorIs(t, err, ErrParse)
			assert.Nil(t, segments)
		})
	}
}

func TestReadSegmentsGeoJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roads.geojson")
	require.NoError(t, os.WriteFile(path, []byte(sampleFeatureCollection), 0o644))

	segments, err := ReadSegments(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, segments, 3)

	_, err = ReadSegments(context.Background(), filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrParse)
}
