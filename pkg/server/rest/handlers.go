package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"lintang/roadgraph/pkg/datastructure"
	"lintang/roadgraph/pkg/graphbuilder"
	"lintang/roadgraph/pkg/kv"
	"lintang/roadgraph/pkg/osmparser"
	"lintang/roadgraph/pkg/server/rest/service"
	"lintang/roadgraph/pkg/snap"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

const maxBuildBodyBytes = 64 << 20

type GraphService interface {
	Graph(ctx context.Context) datastructure.Graph
	GetNode(ctx context.Context, nodeID string) (datastructure.GraphNode, error)
	Neighbors(ctx context.Context, nodeID string) ([]string, error)
	EdgePolyline(ctx context.Context, edgeID string, simplify bool) (datastructure.GraphEdge, string, error)
	NearestNode(ctx context.Context, lat, lon float64) (datastructure.GraphNode, float64, error)
	BuildGraph(ctx context.Context, geojson []byte) (datastructure.Graph, graphbuilder.Stats, error)
	Components(ctx context.Context) []service.Component
}

type GraphHandler struct {
	svc     GraphService
	metrics *Metrics
}

func GraphRouter(r *chi.Mux, svc GraphService, m *Metrics) {
	handler := &GraphHandler{svc, m}

	r.Group(func(r chi.Router) {
		r.Route("/api", func(r chi.Router) {
			r.Get("/graph", handler.GetGraph)
			r.Post("/graph/build", handler.BuildGraph)
			r.Get("/graph/components", handler.GetComponents)
			r.Get("/nodes/{id}", handler.GetNode)
			r.Get("/nodes/{id}/neighbors", handler.GetNeighbors)
			r.Get("/edges/{id}", handler.GetEdge)
			r.Post("/nearest-node", handler.NearestNode)
		})
	})
}

// GetGraph
//
//	@Summary		whole road network graph
//	@Description	returns every node and edge of the served road graph
//	@Tags			graph
//	@Produce		application/json
//	@Router			/graph [get]
//	@Success		200	{object}	datastructure.Graph
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, h.svc.Graph(r.Context()))
}

// ComponentsResponse model info
//
//	@Description	connected components of the road graph, largest first
type ComponentsResponse struct {
	Count      int                 `json:"count"`
	Components []service.Component `json:"components"`
}

// GetComponents
//
//	@Summary		connected components of the road graph
//	@Description	a road graph built from clipped extracts is often not connected, nodes of different components can not reach each other
//	@Tags			graph
//	@Produce		application/json
//	@Router			/graph/components [get]
//	@Success		200	{object}	ComponentsResponse
func (h *GraphHandler) GetComponents(w http.ResponseWriter, r *http.Request) {
	components := h.svc.Components(r.Context())

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &ComponentsResponse{Count: len(components), Components: components})
}

// GetNode
//
//	@Summary		get a graph node by id
//	@Tags			graph
//	@Param			id	path	string	true	"node id"
//	@Produce		application/json
//	@Router			/nodes/{id} [get]
//	@Success		200	{object}	datastructure.GraphNode
//	@Failure		404	{object}	ErrResponse
func (h *GraphHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.svc.GetNode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		render.Render(w, r, renderServiceError(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, node)
}

// NeighborsResponse model info
//
//	@Description	ids of the nodes adjacent to a node
type NeighborsResponse struct {
	NodeID    string   `json:"nodeId"`
	Neighbors []string `json:"neighbors"`
}

// GetNeighbors
//
//	@Summary		adjacent nodes of a graph node
//	@Description	edges are undirected, a node is adjacent to the other endpoint of every edge touching it
//	@Tags			graph
//	@Param			id	path	string	true	"node id"
//	@Produce		application/json
//	@Router			/nodes/{id}/neighbors [get]
//	@Success		200	{object}	NeighborsResponse
//	@Failure		404	{object}	ErrResponse
func (h *GraphHandler) GetNeighbors(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "id")
	neighbors, err := h.svc.Neighbors(r.Context(), nodeID)
	if err != nil {
		render.Render(w, r, renderServiceError(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &NeighborsResponse{NodeID: nodeID, Neighbors: neighbors})
}

// EdgeResponse model info
//
//	@Description	graph edge plus its geometry as google encoded polyline
type EdgeResponse struct {
	datastructure.GraphEdge
	Polyline string `json:"polyline"`
}

// GetEdge
//
//	@Summary		get a graph edge by id
//	@Tags			graph
//	@Param			id			path	string	true	"edge id"
//	@Param			simplify	query	bool	false	"simplify geometry with ramer-douglas-peucker"
//	@Produce		application/json
//	@Router			/edges/{id} [get]
//	@Success		200	{object}	EdgeResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
func (h *GraphHandler) GetEdge(w http.ResponseWriter, r *http.Request) {
	simplify := false
	if q := r.URL.Query().Get("simplify"); q != "" {
		var err error
		simplify, err = strconv.ParseBool(q)
		if err != nil {
			render.Render(w, r, ErrInvalidRequest(errors.New("simplify must be a boolean")))
			return
		}
	}

	edge, polyline, err := h.svc.EdgePolyline(r.Context(), chi.URLParam(r, "id"), simplify)
	if err != nil {
		render.Render(w, r, renderServiceError(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &EdgeResponse{GraphEdge: edge, Polyline: polyline})
}

// NearestNodeRequest model info
//
//	@Description	request body for snapping a coordinate to the nearest graph node
type NearestNodeRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

func (s *NearestNodeRequest) Bind(r *http.Request) error {
	if s.Lat == nil || s.Lon == nil {
		return errors.New("invalid request: lat and lon are required")
	}
	return nil
}

// NearestNodeResponse model info
//
//	@Description	nearest graph node and its great-circle distance in km
type NearestNodeResponse struct {
	Node     datastructure.GraphNode `json:"node"`
	Distance float64                 `json:"distance"`
}

// NearestNode
//
//	@Summary		snap a coordinate to the nearest graph node
//	@Tags			graph
//	@Param			body	body	NearestNodeRequest	true	"query coordinate"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/nearest-node [post]
//	@Success		200	{object}	NearestNodeResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *GraphHandler) NearestNode(w http.ResponseWriter, r *http.Request) {
	data := &NearestNodeRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	node, dist, err := h.svc.NearestNode(r.Context(), *data.Lat, *data.Lon)
	if err != nil {
		render.Render(w, r, renderServiceError(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &NearestNodeResponse{Node: node, Distance: dist})
}

// BuildGraph
//
//	@Summary		build a road graph from a geojson feature collection
//	@Description	filters the feature collection to road LineStrings and builds a new graph. the served graph is not replaced
//	@Tags			graph
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/graph/build [post]
//	@Success		200	{object}	datastructure.Graph
//	@Failure		400	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *GraphHandler) BuildGraph(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBuildBodyBytes))
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	graph, stats, err := h.svc.BuildGraph(r.Context(), body)
	if err != nil {
		h.metrics.GraphBuilds.WithLabelValues("error").Inc()
		render.Render(w, r, renderServiceError(err))
		return
	}
	h.metrics.GraphBuilds.WithLabelValues("ok").Inc()
	h.metrics.BuiltNodes.Observe(float64(stats.Nodes))
	h.metrics.BuiltEdges.Observe(float64(stats.Edges))

	render.Status(r, http.StatusOK)
	render.JSON(w, r, graph)
}

func renderServiceError(err error) render.Renderer {
	switch {
	case errors.Is(err, service.ErrNodeNotFound), errors.Is(err, service.ErrEdgeNotFound),
		errors.Is(err, kv.ErrNodesNotFound), errors.Is(err, snap.ErrEmptyIndex):
		return ErrNotFound(err)
	case errors.Is(err, osmparser.ErrParse), errors.Is(err, graphbuilder.ErrTooFewCoordinates):
		return ErrInvalidRequest(err)
	default:
		return ErrInternalServerErrorRend(errors.New("internal server error"))
	}
}
