package strata

import (
	"context"
	"fmt"

	"evalgo.org/strata/models"
)

// Graphs is the API group for named-graph management and vertex/edge
// document access.
type Graphs struct {
	apiGroup
}

// graphBody is the envelope the server wraps graph definitions in.
type graphBody struct {
	Graph  models.Graph   `json:"graph"`
	Graphs []models.Graph `json:"graphs"`
}

// List returns every named graph in the database.
func (g *Graphs) List(ctx context.Context) (Result[[]models.Graph], error) {
	req := NewRequest("get", "/_api/gharial")

	return executeAs(ctx, g.exec, req, func(resp *Response) ([]models.Graph, error) {
		if !resp.IsSuccess() {
			return nil, NewHTTPError("graph list", req, resp, "")
		}
		var body graphBody
		if err := resp.Body(&body); err != nil {
			return nil, NewHTTPError("graph list", req, resp, fmt.Sprintf("decode graphs: %v", err))
		}
		return body.Graphs, nil
	})
}

// Has reports whether the named graph exists.
func (g *Graphs) Has(ctx context.Context, name string) (Result[bool], error) {
	req := NewRequest("get", "/_api/gharial/"+name)

	return executeAs(ctx, g.exec, req, func(resp *Response) (bool, error) {
		if resp.StatusCode == 404 {
			return false, nil
		}
		if !resp.IsSuccess() {
			return false, NewHTTPError("graph get", req, resp, "")
		}
		return true, nil
	})
}

// Create creates a named graph from the given edge definitions.
func (g *Graphs) Create(ctx context.Context, name string, edgeDefinitions []models.EdgeDefinition) (Result[models.Graph], error) {
	body := map[string]any{"name": name}
	if len(edgeDefinitions) > 0 {
		body["edgeDefinitions"] = edgeDefinitions
	}
	req := NewRequest("post", "/_api/gharial", WithJSON(body))

	return executeAs(ctx, g.exec, req, func(resp *Response) (models.Graph, error) {
		if !resp.IsSuccess() {
			return models.Graph{}, NewHTTPError("graph create", req, resp, "")
		}
		var envelope graphBody
		if err := resp.Body(&envelope); err != nil {
			return models.Graph{}, NewHTTPError("graph create", req, resp, fmt.Sprintf("decode graph: %v", err))
		}
		return envelope.Graph, nil
	})
}

// Delete removes the named graph. With dropCollections, the graph's
// vertex and edge collections are dropped as well.
func (g *Graphs) Delete(ctx context.Context, name string, dropCollections bool) (Result[bool], error) {
	req := NewRequest("delete", "/_api/gharial/"+name,
		WithParams(Params{"dropCollections": dropCollections}))

	return executeAs(ctx, g.exec, req, func(resp *Response) (bool, error) {
		if !resp.IsSuccess() {
			return false, NewHTTPError("graph delete", req, resp, "")
		}
		return true, nil
	})
}

// VertexCollections lists the vertex collections of a graph.
func (g *Graphs) VertexCollections(ctx context.Context, graph string) (Result[[]string], error) {
	req := NewRequest("get", fmt.Sprintf("/_api/gharial/%s/vertex", graph))

	return executeAs(ctx, g.exec, req, func(resp *Response) ([]string, error) {
		if !resp.IsSuccess() {
			return nil, NewHTTPError("vertex collection list", req, resp, "")
		}
		var body struct {
			Collections []string `json:"collections"`
		}
		if err := resp.Body(&body); err != nil {
			return nil, NewHTTPError("vertex collection list", req, resp, fmt.Sprintf("decode collections: %v", err))
		}
		return body.Collections, nil
	})
}

// CreateVertexCollection adds a vertex collection to a graph.
func (g *Graphs) CreateVertexCollection(ctx context.Context, graph, collection string) (Result[models.Graph], error) {
	req := NewRequest("post", fmt.Sprintf("/_api/gharial/%s/vertex", graph),
		WithJSON(map[string]any{"collection": collection}))

	return executeAs(ctx, g.exec, req, func(resp *Response) (models.Graph, error) {
		if !resp.IsSuccess() {
			return models.Graph{}, NewHTTPError("vertex collection create", req, resp, "")
		}
		var envelope graphBody
		if err := resp.Body(&envelope); err != nil {
			return models.Graph{}, NewHTTPError("vertex collection create", req, resp, fmt.Sprintf("decode graph: %v", err))
		}
		return envelope.Graph, nil
	})
}

// DeleteVertexCollection removes a vertex collection from a graph. With
// dropCollection, the underlying collection is dropped as well.
func (g *Graphs) DeleteVertexCollection(ctx context.Context, graph, collection string, dropCollection bool) (Result[models.Graph], error) {
	req := NewRequest("delete", fmt.Sprintf("/_api/gharial/%s/vertex/%s", graph, collection),
		WithParams(Params{"dropCollection": dropCollection}))

	return executeAs(ctx, g.exec, req, func(resp *Response) (models.Graph, error) {
		if !resp.IsSuccess() {
			return models.Graph{}, NewHTTPError("vertex collection delete", req, resp, "")
		}
		var envelope graphBody
		if err := resp.Body(&envelope); err != nil {
			return models.Graph{}, NewHTTPError("vertex collection delete", req, resp, fmt.Sprintf("decode graph: %v", err))
		}
		return envelope.Graph, nil
	})
}

// EdgeCollections lists the edge collections of a graph.
func (g *Graphs) EdgeCollections(ctx context.Context, graph string) (Result[[]string], error) {
	req := NewRequest("get", fmt.Sprintf("/_api/gharial/%s/edge", graph))

	return executeAs(ctx, g.exec, req, func(resp *Response) ([]string, error) {
		if !resp.IsSuccess() {
			return nil, NewHTTPError("edge collection list", req, resp, "")
		}
		var body struct {
			Collections []string `json:"collections"`
		}
		if err := resp.Body(&body); err != nil {
			return nil, NewHTTPError("edge collection list", req, resp, fmt.Sprintf("decode collections: %v", err))
		}
		return body.Collections, nil
	})
}

// CreateEdgeDefinition adds an edge definition to a graph.
func (g *Graphs) CreateEdgeDefinition(ctx context.Context, graph string, def models.EdgeDefinition) (Result[models.Graph], error) {
	req := NewRequest("post", fmt.Sprintf("/_api/gharial/%s/edge", graph), WithJSON(def))

	return executeAs(ctx, g.exec, req, func(resp *Response) (models.Graph, error) {
		if !resp.IsSuccess() {
			return models.Graph{}, NewHTTPError("edge definition create", req, resp, "")
		}
		var envelope graphBody
		if err := resp.Body(&envelope); err != nil {
			return models.Graph{}, NewHTTPError("edge definition create", req, resp, fmt.Sprintf("decode graph: %v", err))
		}
		return envelope.Graph, nil
	})
}

// ReplaceEdgeDefinition replaces the edge definition of def.Collection.
func (g *Graphs) ReplaceEdgeDefinition(ctx context.Context, graph string, def models.EdgeDefinition) (Result[models.Graph], error) {
	req := NewRequest("put", fmt.Sprintf("/_api/gharial/%s/edge/%s", graph, def.Collection), WithJSON(def))

	return executeAs(ctx, g.exec, req, func(resp *Response) (models.Graph, error) {
		if !resp.IsSuccess() {
			return models.Graph{}, NewHTTPError("edge definition replace", req, resp, "")
		}
		var envelope graphBody
		if err := resp.Body(&envelope); err != nil {
			return models.Graph{}, NewHTTPError("edge definition replace", req, resp, fmt.Sprintf("decode graph: %v", err))
		}
		return envelope.Graph, nil
	})
}

// DeleteEdgeDefinition removes an edge definition from a graph. With
// dropCollections, the edge collection is dropped as well.
func (g *Graphs) DeleteEdgeDefinition(ctx context.Context, graph, collection string, dropCollections bool) (Result[models.Graph], error) {
	req := NewRequest("delete", fmt.Sprintf("/_api/gharial/%s/edge/%s", graph, collection),
		WithParams(Params{"dropCollections": dropCollections}))

	return executeAs(ctx, g.exec, req, func(resp *Response) (models.Graph, error) {
		if !resp.IsSuccess() {
			return models.Graph{}, NewHTTPError("edge definition delete", req, resp, "")
		}
		var envelope graphBody
		if err := resp.Body(&envelope); err != nil {
			return models.Graph{}, NewHTTPError("edge definition delete", req, resp, fmt.Sprintf("decode graph: %v", err))
		}
		return envelope.Graph, nil
	})
}

// InsertVertex stores a new vertex document in a graph's vertex
// collection. The write declares a shared lock on the collection so it can
// run inside a transaction.
func (g *Graphs) InsertVertex(ctx context.Context, graph, collection string, vertex models.Document) (Result[models.Document], error) {
	req := NewRequest("post", fmt.Sprintf("/_api/gharial/%s/vertex/%s", graph, collection),
		WithJSON(vertex),
		WithWriteLocks(collection))

	return executeAs(ctx, g.exec, req, func(resp *Response) (models.Document, error) {
		if !resp.IsSuccess() {
			return nil, NewHTTPError("vertex insert", req, resp, "")
		}
		var body struct {
			Vertex models.Document `json:"vertex"`
		}
		if err := resp.Body(&body); err != nil {
			return nil, NewHTTPError("vertex insert", req, resp, fmt.Sprintf("decode vertex: %v", err))
		}
		return body.Vertex, nil
	})
}

// Vertex fetches one vertex document by key.
func (g *Graphs) Vertex(ctx context.Context, graph, collection, key string) (Result[models.Document], error) {
	req := NewRequest("get", fmt.Sprintf("/_api/gharial/%s/vertex/%s/%s", graph, collection, key),
		WithReadLocks(collection))

	return executeAs(ctx, g.exec, req, func(resp *Response) (models.Document, error) {
		if !resp.IsSuccess() {
			return nil, NewHTTPError("vertex get", req, resp, "")
		}
		var body struct {
			Vertex models.Document `json:"vertex"`
		}
		if err := resp.Body(&body); err != nil {
			return nil, NewHTTPError("vertex get", req, resp, fmt.Sprintf("decode vertex: %v", err))
		}
		return body.Vertex, nil
	})
}

// UpdateVertex patches a vertex document with the given fields. A non-empty
// rev is sent as an If-Match precondition.
func (g *Graphs) UpdateVertex(ctx context.Context, graph, collection, key string, patch models.Document, rev string) (Result[models.Document], error) {
	opts := []RequestOption{WithJSON(patch), WithWriteLocks(collection)}
	if rev != "" {
		opts = append(opts, WithHeaders(Headers{"if-match": rev}))
	}
	req := NewRequest("patch", fmt.Sprintf("/_api/gharial/%s/vertex/%s/%s", graph, collection, key), opts...)

	return executeAs(ctx, g.exec, req, func(resp *Response) (models.Document, error) {
		if !resp.IsSuccess() {
			return nil, NewHTTPError("vertex update", req, resp, "")
		}
		var body struct {
			Vertex models.Document `json:"vertex"`
		}
		if err := resp.Body(&body); err != nil {
			return nil, NewHTTPError("vertex update", req, resp, fmt.Sprintf("decode vertex: %v", err))
		}
		return body.Vertex, nil
	})
}

// DeleteVertex removes a vertex document. A non-empty rev is sent as an
// If-Match precondition.
func (g *Graphs) DeleteVertex(ctx context.Context, graph, collection, key, rev string) (Result[bool], error) {
	opts := []RequestOption{WithWriteLocks(collection)}
	if rev != "" {
		opts = append(opts, WithHeaders(Headers{"if-match": rev}))
	}
	req := NewRequest("delete", fmt.Sprintf("/_api/gharial/%s/vertex/%s/%s", graph, collection, key), opts...)

	return executeAs(ctx, g.exec, req, func(resp *Response) (bool, error) {
		if !resp.IsSuccess() {
			return false, NewHTTPError("vertex delete", req, resp, "")
		}
		return true, nil
	})
}

// InsertEdge stores a new edge document connecting two vertices. The body
// must carry "_from" and "_to" vertex ids.
func (g *Graphs) InsertEdge(ctx context.Context, graph, collection string, edge models.Document) (Result[models.Document], error) {
	req := NewRequest("post", fmt.Sprintf("/_api/gharial/%s/edge/%s", graph, collection),
		WithJSON(edge),
		WithWriteLocks(collection))

	return executeAs(ctx, g.exec, req, func(resp *Response) (models.Document, error) {
		if !resp.IsSuccess() {
			return nil, NewHTTPError("edge insert", req, resp, "")
		}
		var body struct {
			Edge models.Document `json:"edge"`
		}
		if err := resp.Body(&body); err != nil {
			return nil, NewHTTPError("edge insert", req, resp, fmt.Sprintf("decode edge: %v", err))
		}
		return body.Edge, nil
	})
}

// Edge fetches one edge document by key.
func (g *Graphs) Edge(ctx context.Context, graph, collection, key string) (Result[models.Document], error) {
	req := NewRequest("get", fmt.Sprintf("/_api/gharial/%s/edge/%s/%s", graph, collection, key),
		WithReadLocks(collection))

	return executeAs(ctx, g.exec, req, func(resp *Response) (models.Document, error) {
		if !resp.IsSuccess() {
			return nil, NewHTTPError("edge get", req, resp, "")
		}
		var body struct {
			Edge models.Document `json:"edge"`
		}
		if err := resp.Body(&body); err != nil {
			return nil, NewHTTPError("edge get", req, resp, fmt.Sprintf("decode edge: %v", err))
		}
		return body.Edge, nil
	})
}

// DeleteEdge removes an edge document. A non-empty rev is sent as an
// If-Match precondition.
func (g *Graphs) DeleteEdge(ctx context.Context, graph, collection, key, rev string) (Result[bool], error) {
	opts := []RequestOption{WithWriteLocks(collection)}
	if rev != "" {
		opts = append(opts, WithHeaders(Headers{"if-match": rev}))
	}
	req := NewRequest("delete", fmt.Sprintf("/_api/gharial/%s/edge/%s/%s", graph, collection, key), opts...)

	return executeAs(ctx, g.exec, req, func(resp *Response) (bool, error) {
		if !resp.IsSuccess() {
			return false, NewHTTPError("edge delete", req, resp, "")
		}
		return true, nil
	})
}
