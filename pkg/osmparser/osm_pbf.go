package osmparser

import (
	"context"
	"io"
	"log"

	"lintang/roadgraph/pkg/datastructure"

	"github.com/k0kubun/go-ansi"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/schollz/progressbar/v3"
)

type osmWay struct {
	name    *string
	nodeIDs []osm.NodeID
}

type nodeCoord struct {
	lat float64
	lon float64
}

// FilterPBF reads road segments from an openstreetmap pbf extract.
// first scan collects accepted ways, second scan resolves the coordinates of their nodes.
func FilterPBF(ctx context.Context, r io.ReadSeeker) ([]datastructure.RoadSegment, error) {
	ways, wayNodes, err := scanWays(ctx, r)
	if err != nil {
		return nil, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	coords, err := scanNodes(ctx, r, wayNodes)
	if err != nil {
		return nil, err
	}

	return assembleSegments(ways, coords), nil
}

func scanWays(ctx context.Context, r io.Reader) ([]osmWay, map[osm.NodeID]struct{}, error) {
	scanner := osmpbf.New(ctx, r, 0)
	// must not be parallel
	defer scanner.Close()
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	ways := make([]osmWay, 0)
	wayNodes := make(map[osm.NodeID]struct{})
	countWays := 0
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !acceptOsmWay(way) {
			continue
		}
		if (countWays+1)%50000 == 0 {
			log.Printf("reading openstreetmap ways: %d...", countWays+1)
		}
		countWays++

		nodeIDs := make([]osm.NodeID, 0, len(way.Nodes))
		for _, wn := range way.Nodes {
			nodeIDs = append(nodeIDs, wn.ID)
			wayNodes[wn.ID] = struct{}{}
		}
		ways = append(ways, osmWay{
			name:    datastructure.StreetName(way.Tags.Find("name")),
			nodeIDs: nodeIDs,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, parseError(err)
	}
	return ways, wayNodes, nil
}

func scanNodes(ctx context.Context, r io.Reader, wayNodes map[osm.NodeID]struct{}) (map[osm.NodeID]nodeCoord, error) {
	scanner := osmpbf.New(ctx, r, 0)
	defer scanner.Close()
	scanner.SkipWays = true
	scanner.SkipRelations = true

	coords := make(map[osm.NodeID]nodeCoord, len(wayNodes))
	countNodes := 0
	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if (countNodes+1)%50000 == 0 {
			log.Printf("processing openstreetmap nodes: %d...", countNodes+1)
		}
		countNodes++

		if _, ok := wayNodes[node.ID]; ok {
			coords[node.ID] = nodeCoord{
				lat: node.Lat,
				lon: node.Lon,
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, parseError(err)
	}
	return coords, nil
}

// assembleSegments turns accepted ways into road segments in file order.
// node refs missing from the extract are dropped, ways left with less than 2 coordinates are skipped.
func assembleSegments(ways []osmWay, coords map[osm.NodeID]nodeCoord) []datastructure.RoadSegment {
	bar := progressbar.NewOptions(len(ways),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription("[cyan][1/2][reset] assembling road segments from openstreetmap ways ..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	segments := make([]datastructure.RoadSegment, 0, len(ways))
	skipped := 0
	for _, way := range ways {
		bar.Add(1)

		wayCoords := make([]datastructure.Coordinate, 0, len(way.nodeIDs))
		for _, id := range way.nodeIDs {
			c, ok := coords[id]
			if !ok {
				continue
			}
			wayCoords = append(wayCoords, datastructure.NewCoordinate(c.lat, c.lon))
		}
		if len(wayCoords) < 2 {
			skipped++
			continue
		}
		segments = append(segments, datastructure.NewRoadSegment(way.name, wayCoords))
	}
	bar.Finish()

	log.Printf("total road segments: %d, skipped ways with unresolved nodes: %d", len(segments), skipped)
	return segments
}

func acceptOsmWay(way *osm.Way) bool {
	return acceptHighway(way.Tags.Find("highway"))
}
