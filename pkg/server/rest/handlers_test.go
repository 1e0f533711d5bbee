package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lintang/roadgraph/pkg/datastructure"
	"lintang/roadgraph/pkg/graphbuilder"
	"lintang/roadgraph/pkg/osmparser"
	"lintang/roadgraph/pkg/server/rest/service"
	"lintang/roadgraph/pkg/snap"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const crossingStreets = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"highway": "residential", "name": "Main St"},
     "geometry": {"type": "LineString", "coordinates": [[0, 0], [0, 0.0005], [0, 0.001], [0, 0.002]]}},
    {"type": "Feature", "properties": {"highway": "primary", "name": "Oak Ave"},
     "geometry": {"type": "LineString", "coordinates": [[-0.001, 0.001], [0, 0.001], [0.001, 0.001]]}}
  ]
}`

func newTestRouter(t *testing.T) (*chi.Mux, *Metrics) {
	t.Helper()
	segments, err := osmparser.FilterGeoJSON([]byte(crossingStreets))
	require.NoError(t, err)
	graph, err := graphbuilder.Build(segments)
	require.NoError(t, err)

	svc := service.NewGraphService(graph, snap.NewNodeSnapper(graph.Nodes))
	m := NewMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(PromeHttpMiddleware(m))
	GraphRouter(r, svc, m)
	return r, m
}

func doRequest(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// both streets are cut at their shared interior point (0, 0.001), node_1.
func assertCrossingEdges(t *testing.T, edges []datastructure.GraphEdge) {
	t.Helper()
	want := []struct {
		id, from, to, street string
	}{
		{"edge_0", "node_0", "node_1", "Main St"},
		{"edge_1", "node_1", "node_2", "Main St"},
		{"edge_2", "node_3", "node_1", "Oak Ave"},
		{"edge_3", "node_1", "node_4", "Oak Ave"},
	}
	require.Len(t, edges, len(want))
	for i, w := range want {
		assert.Equal(t, w.id, edges[i].ID)
		assert.Equal(t, w.from, edges[i].FromNode)
		assert.Equal(t, w.to, edges[i].ToNode)
		require.NotNil(t, edges[i].StreetName)
		assert.Equal(t, w.street, *edges[i].StreetName)
	}
}

func TestGetGraph(t *testing.T) {
	r, m := newTestRouter(t)

	rec := doRequest(r, http.MethodGet, "/api/graph", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var graph datastructure.Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graph))
	assert.Len(t, graph.Nodes, 5)
	assertCrossingEdges(t, graph.Edges)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HttpRequests.WithLabelValues("/api/graph", http.MethodGet, "200")))
}

func TestGetComponents(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(r, http.MethodGet, "/api/graph/components", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ComponentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Components, 1)
	assert.Len(t, resp.Components[0].Nodes, 5)
}

func TestGetNode(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("intersection node", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/api/nodes/node_1", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var node datastructure.GraphNode
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &node))
		assert.Equal(t, "node_1", node.ID)
		assert.Equal(t, []string{"Main St", "Oak Ave"}, node.StreetNames)
	})

	t.Run("unknown node", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/api/nodes/node_99", "")
		require.Equal(t, http.StatusNotFound, rec.Code)

		var errResp ErrResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "Resource not found.", errResp.StatusText)
	})
}

func TestGetNeighbors(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(r, http.MethodGet, "/api/nodes/node_1/neighbors", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp NeighborsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "node_1", resp.NodeID)
	assert.ElementsMatch(t, []string{"node_0", "node_2", "node_3", "node_4"}, resp.Neighbors)

	rec = doRequest(r, http.MethodGet, "/api/nodes/node_99/neighbors", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetEdge(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name       string
		target     string
		wantCode   int
		wantPoints int
	}{
		{name: "full geometry", target: "/api/edges/edge_0", wantCode: http.StatusOK, wantPoints: 3},
		{name: "simplified geometry", target: "/api/edges/edge_0?simplify=true", wantCode: http.StatusOK, wantPoints: 2},
		{name: "bad simplify flag", target: "/api/edges/edge_0?simplify=maybe", wantCode: http.StatusBadRequest},
		{name: "unknown edge", target: "/api/edges/edge_99", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(r, http.MethodGet, tt.target, "")
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp struct {
				ID         string  `json:"id"`
				FromNode   string  `json:"fromNode"`
				ToNode     string  `json:"toNode"`
				StreetName *string `json:"streetName"`
				Polyline   string  `json:"polyline"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "edge_0", resp.ID)
			assert.Equal(t, "node_0", resp.FromNode)
			assert.Equal(t, "node_1", resp.ToNode)
			require.NotNil(t, resp.StreetName)
			assert.Equal(t, "Main St", *resp.StreetName)

			path, err := datastructure.DecodePolyline(resp.Polyline)
			require.NoError(t, err)
			assert.Len(t, path, tt.wantPoints)
		})
	}
}

func TestNearestNode(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("snaps to closest node", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/api/nearest-node", `{"lat": 0.00101, "lon": 0.00001}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp NearestNodeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "node_1", resp.Node.ID)
		assert.Less(t, resp.Distance, 0.01)
	})

	t.Run("zero coordinate is a valid query", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/api/nearest-node", `{"lat": 0, "lon": 0}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp NearestNodeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "node_0", resp.Node.ID)
		assert.InDelta(t, 0.0, resp.Distance, 1e-9)
	})

	t.Run("latitude out of range", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/api/nearest-node", `{"lat": 91, "lon": 0}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var errResp ErrResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.NotEmpty(t, errResp.ErrValidation)
	})

	t.Run("missing longitude", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/api/nearest-node", `{"lat": 0}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/api/nearest-node", `{"lat":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBuildGraph(t *testing.T) {
	r, m := newTestRouter(t)

	t.Run("builds a new graph", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/api/graph/build", crossingStreets)
		require.Equal(t, http.StatusOK, rec.Code)

		var graph datastructure.Graph
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graph))
		assert.Len(t, graph.Nodes, 5)
		assertCrossingEdges(t, graph.Edges)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.GraphBuilds.WithLabelValues("ok")))
	})

	t.Run("invalid geojson", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/api/graph/build", `not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("segment with a single coordinate", func(t *testing.T) {
		body := `{"type": "FeatureCollection", "features": [
			{"type": "Feature", "properties": {"highway": "tertiary"},
			 "geometry": {"type": "LineString", "coordinates": [[1, 1]]}}]}`
		rec := doRequest(r, http.MethodPost, "/api/graph/build", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 2.0, testutil.ToFloat64(m.GraphBuilds.WithLabelValues("error")))
	})

	t.Run("served graph is unchanged", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, "/api/graph", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var graph datastructure.Graph
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graph))
		assert.Len(t, graph.Nodes, 5)
	})
}
