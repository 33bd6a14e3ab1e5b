// Package mockdb implements enough of the Strata wire protocol for local
// development and driver tests: graph-algorithm jobs, named graphs, async
// job execution, multipart batches and stream transactions.
//
// The mock keeps all state in memory and executes async jobs immediately;
// only the retrieval of their results is deferred, which is what the
// driver-side job lifecycle needs.
package mockdb

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Headers shared with the driver.
const (
	HeaderAsync       = "x-strata-async"
	HeaderAsyncID     = "x-strata-async-id"
	HeaderTransaction = "x-strata-trx-id"
)

// storedJob is the captured response of one async execution, replayed when
// the client fetches the job result.
type storedJob struct {
	status  int
	headers http.Header
	body    []byte
	fetched bool
}

// pregelJob is the server-side state of one graph-algorithm job.
type pregelJob struct {
	ID        string  `json:"id"`
	Algorithm string  `json:"algorithm"`
	GraphName string  `json:"-"`
	State     string  `json:"state"`
	GSS       int     `json:"gss"`
	TTL       float64 `json:"ttl"`
}

// graph is the server-side state of one named graph.
type graph struct {
	Name              string           `json:"name"`
	EdgeDefinitions   []map[string]any `json:"edgeDefinitions,omitempty"`
	OrphanCollections []string         `json:"orphanCollections,omitempty"`
}

// Server is the in-memory mock database.
type Server struct {
	echo *echo.Echo

	mu           sync.Mutex
	nextID       int
	pregelJobs   map[string]*pregelJob
	asyncJobs    map[string]*storedJob
	transactions map[string]string // id -> "running"|"committed"|"aborted"
	graphs       map[string]*graph
	vertices     map[string]map[string]any // collection/key -> document
}

// New creates a mock server with empty state.
func New() *Server {
	s := &Server{
		pregelJobs:   map[string]*pregelJob{},
		asyncJobs:    map[string]*storedJob{},
		transactions: map[string]string{},
		graphs:       map[string]*graph{},
		vertices:     map[string]map[string]any{},
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(s.asyncMiddleware)

	db := e.Group("/_db/:db")

	db.POST("/_api/control_pregel", s.createPregelJob)
	db.GET("/_api/control_pregel/:id", s.getPregelJob)
	db.DELETE("/_api/control_pregel/:id", s.deletePregelJob)

	db.GET("/_api/job/pending", s.listJobs("pending"))
	db.GET("/_api/job/done", s.listJobs("done"))
	db.DELETE("/_api/job/all", s.clearJobs)
	db.GET("/_api/job/:id", s.jobStatus)
	db.PUT("/_api/job/:id", s.jobResult)
	db.PUT("/_api/job/:id/cancel", s.jobCancel)
	db.DELETE("/_api/job/:id", s.jobDelete)

	db.POST("/_api/batch", s.runBatch)

	db.POST("/_api/transaction/begin", s.beginTransaction)
	db.PUT("/_api/transaction/:id", s.commitTransaction)
	db.DELETE("/_api/transaction/:id", s.abortTransaction)

	db.GET("/_api/gharial", s.listGraphs)
	db.POST("/_api/gharial", s.createGraph)
	db.GET("/_api/gharial/:graph", s.getGraph)
	db.DELETE("/_api/gharial/:graph", s.deleteGraph)
	db.GET("/_api/gharial/:graph/vertex", s.listVertexCollections)
	db.POST("/_api/gharial/:graph/vertex", s.addVertexCollection)
	db.DELETE("/_api/gharial/:graph/vertex/:collection", s.removeVertexCollection)
	db.GET("/_api/gharial/:graph/edge", s.listEdgeCollections)
	db.POST("/_api/gharial/:graph/edge", s.addEdgeDefinition)
	db.PUT("/_api/gharial/:graph/edge/:collection", s.replaceEdgeDefinition)
	db.DELETE("/_api/gharial/:graph/edge/:collection", s.removeEdgeDefinition)
	db.POST("/_api/gharial/:graph/edge/:collection", s.insertEdge)
	db.GET("/_api/gharial/:graph/edge/:collection/:key", s.getEdge)
	db.DELETE("/_api/gharial/:graph/edge/:collection/:key", s.deleteEdge)
	db.POST("/_api/gharial/:graph/vertex/:collection", s.insertVertex)
	db.GET("/_api/gharial/:graph/vertex/:collection/:key", s.getVertex)
	db.PATCH("/_api/gharial/:graph/vertex/:collection/:key", s.updateVertex)
	db.DELETE("/_api/gharial/:graph/vertex/:collection/:key", s.deleteVertex)

	s.echo = e
	return s
}

// Handler exposes the mock as an http.Handler for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves the mock on the given address until the process exits.
func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

// errorDoc renders the structured error document clients parse.
func errorDoc(c echo.Context, status, errorNum int, message string) error {
	return c.JSON(status, map[string]any{
		"error":        true,
		"errorMessage": message,
		"errorNum":     errorNum,
		"code":         status,
	})
}

// asyncMiddleware intercepts calls marked for async execution: the call is
// dispatched internally right away, its reply is stored under a fresh job
// id, and the client gets a 202 with the id.
func (s *Server) asyncMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		mode := c.Request().Header.Get(HeaderAsync)
		if mode == "" {
			return next(c)
		}

		inner := c.Request().Clone(c.Request().Context())
		inner.Header.Del(HeaderAsync)
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, inner)

		jobID := s.allocID()
		if mode == "store" {
			s.mu.Lock()
			s.asyncJobs[jobID] = &storedJob{
				status:  rec.Code,
				headers: rec.Header().Clone(),
				body:    rec.Body.Bytes(),
			}
			s.mu.Unlock()
		}

		c.Response().Header().Set(HeaderAsyncID, jobID)
		return c.NoContent(http.StatusAccepted)
	}
}

func (s *Server) allocID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return strconv.Itoa(s.nextID)
}

// --- pregel ---

func (s *Server) createPregelJob(c echo.Context) error {
	var body struct {
		Algorithm string         `json:"algorithm"`
		GraphName string         `json:"graphName"`
		Params    map[string]any `json:"params"`
	}
	if err := c.Bind(&body); err != nil || body.Algorithm == "" || body.GraphName == "" {
		return errorDoc(c, http.StatusBadRequest, 10, "expecting algorithm and graphName")
	}

	id := s.allocID()
	s.mu.Lock()
	s.pregelJobs[id] = &pregelJob{
		ID:        id,
		Algorithm: body.Algorithm,
		GraphName: body.GraphName,
		State:     "running",
		TTL:       600,
	}
	s.mu.Unlock()

	num, _ := strconv.Atoi(id)
	return c.JSON(http.StatusOK, num)
}

func (s *Server) getPregelJob(c echo.Context) error {
	s.mu.Lock()
	job, ok := s.pregelJobs[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1600, "pregel job not found")
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) deletePregelJob(c echo.Context) error {
	s.mu.Lock()
	_, ok := s.pregelJobs[c.Param("id")]
	delete(s.pregelJobs, c.Param("id"))
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1600, "pregel job not found")
	}
	return c.JSON(http.StatusAccepted, map[string]any{"error": false, "code": http.StatusAccepted})
}

// --- async jobs ---

func (s *Server) listJobs(status string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		ids := []string{}
		if status == "done" {
			for id, job := range s.asyncJobs {
				if !job.fetched {
					ids = append(ids, id)
				}
			}
		}
		return c.JSON(http.StatusOK, ids)
	}
}

func (s *Server) clearJobs(c echo.Context) error {
	s.mu.Lock()
	s.asyncJobs = map[string]*storedJob{}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{"result": true})
}

func (s *Server) jobStatus(c echo.Context) error {
	s.mu.Lock()
	job, ok := s.asyncJobs[c.Param("id")]
	s.mu.Unlock()
	if !ok || job.fetched {
		return errorDoc(c, http.StatusNotFound, 404, "job not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"id": c.Param("id"), "status": "done"})
}

// jobResult replays the stored response of a finished job and deletes it,
// mirroring the fetch-and-delete semantics of the real server.
func (s *Server) jobResult(c echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	job, ok := s.asyncJobs[id]
	if ok {
		job.fetched = true
	}
	s.mu.Unlock()
	if !ok || job == nil {
		return errorDoc(c, http.StatusNotFound, 404, "job not found")
	}

	resp := c.Response()
	for k, vs := range job.headers {
		for _, v := range vs {
			resp.Header().Add(k, v)
		}
	}
	resp.Header().Set(HeaderAsyncID, id)
	resp.WriteHeader(job.status)
	_, err := resp.Write(job.body)
	return err
}

func (s *Server) jobCancel(c echo.Context) error {
	s.mu.Lock()
	_, ok := s.asyncJobs[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 404, "job not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"result": true})
}

func (s *Server) jobDelete(c echo.Context) error {
	s.mu.Lock()
	_, ok := s.asyncJobs[c.Param("id")]
	delete(s.asyncJobs, c.Param("id"))
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 404, "job not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"result": true})
}

// --- batch ---

// runBatch splits the multipart envelope, dispatches each embedded call
// internally and answers with a multipart envelope of embedded replies in
// the same order.
func (s *Server) runBatch(c echo.Context) error {
	_, mediaParams, err := mime.ParseMediaType(c.Request().Header.Get("Content-Type"))
	if err != nil {
		return errorDoc(c, http.StatusBadRequest, 10, "invalid batch content type")
	}
	boundary, ok := mediaParams["boundary"]
	if !ok {
		return errorDoc(c, http.StatusBadRequest, 10, "missing multipart boundary")
	}

	var out bytes.Buffer
	writer := multipart.NewWriter(&out)
	if err := writer.SetBoundary("strata-reply-" + uuid.NewString()); err != nil {
		return err
	}

	reader := multipart.NewReader(c.Request().Body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errorDoc(c, http.StatusBadRequest, 10, "malformed batch envelope")
		}
		raw, err := io.ReadAll(part)
		if err != nil {
			return errorDoc(c, http.StatusBadRequest, 10, "malformed batch part")
		}

		method, path, body, err := parseEmbeddedRequest(raw)
		if err != nil {
			return errorDoc(c, http.StatusBadRequest, 10, err.Error())
		}

		inner := httptest.NewRequest(method, path, bytes.NewReader(body))
		inner.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, inner)

		header := textproto.MIMEHeader{}
		header.Set("Content-Type", "application/x-strata-batchpart")
		if id := part.Header.Get("Content-Id"); id != "" {
			header.Set("Content-Id", id)
		}
		sub, err := writer.CreatePart(header)
		if err != nil {
			return err
		}
		fmt.Fprintf(sub, "HTTP/1.1 %d %s\r\ncontent-type: application/json\r\n\r\n",
			rec.Code, http.StatusText(rec.Code))
		sub.Write(rec.Body.Bytes())
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return c.Blob(http.StatusOK, "multipart/form-data; boundary="+writer.Boundary(), out.Bytes())
}

// parseEmbeddedRequest parses "<METHOD> <path> HTTP/1.1\r\n\r\n<body>".
func parseEmbeddedRequest(raw []byte) (method, path string, body []byte, err error) {
	reader := bufio.NewReader(bytes.NewReader(raw))
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", "", nil, fmt.Errorf("malformed embedded request")
	}
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 2 {
		return "", "", nil, fmt.Errorf("malformed embedded request line %q", line)
	}
	// Skip the blank line separating head from body.
	if _, err := reader.ReadString('\n'); err != nil && err != io.EOF {
		return "", "", nil, fmt.Errorf("malformed embedded request")
	}
	body, err = io.ReadAll(reader)
	if err != nil {
		return "", "", nil, fmt.Errorf("malformed embedded request body")
	}
	return fields[0], fields[1], body, nil
}

// --- transactions ---

func (s *Server) beginTransaction(c echo.Context) error {
	var body struct {
		Collections map[string][]string `json:"collections"`
	}
	if err := c.Bind(&body); err != nil {
		return errorDoc(c, http.StatusBadRequest, 10, "invalid transaction body")
	}

	id := s.allocID()
	s.mu.Lock()
	s.transactions[id] = "running"
	s.mu.Unlock()

	return c.JSON(http.StatusCreated, map[string]any{
		"result": map[string]any{"id": id, "status": "running"},
	})
}

func (s *Server) commitTransaction(c echo.Context) error {
	return s.finishTransaction(c, "committed")
}

func (s *Server) abortTransaction(c echo.Context) error {
	return s.finishTransaction(c, "aborted")
}

func (s *Server) finishTransaction(c echo.Context, state string) error {
	id := c.Param("id")
	s.mu.Lock()
	current, ok := s.transactions[id]
	if ok && current == "running" {
		s.transactions[id] = state
	}
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1655, "transaction not found")
	}
	if current != "running" {
		return errorDoc(c, http.StatusConflict, 1651, "transaction already "+current)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"result": map[string]any{"id": id, "status": state},
	})
}

// --- graphs ---

func (s *Server) listGraphs(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	graphs := []*graph{}
	for _, g := range s.graphs {
		graphs = append(graphs, g)
	}
	return c.JSON(http.StatusOK, map[string]any{"graphs": graphs})
}

func (s *Server) createGraph(c echo.Context) error {
	var body graph
	if err := c.Bind(&body); err != nil || body.Name == "" {
		return errorDoc(c, http.StatusBadRequest, 10, "expecting a graph name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.graphs[body.Name]; exists {
		return errorDoc(c, http.StatusConflict, 1925, "graph already exists")
	}
	s.graphs[body.Name] = &body
	return c.JSON(http.StatusCreated, map[string]any{"graph": &body})
}

func (s *Server) getGraph(c echo.Context) error {
	s.mu.Lock()
	g, ok := s.graphs[c.Param("graph")]
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1924, "graph not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"graph": g})
}

func (s *Server) deleteGraph(c echo.Context) error {
	s.mu.Lock()
	_, ok := s.graphs[c.Param("graph")]
	delete(s.graphs, c.Param("graph"))
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1924, "graph not found")
	}
	return c.JSON(http.StatusCreated, map[string]any{"removed": true})
}

func (s *Server) listVertexCollections(c echo.Context) error {
	s.mu.Lock()
	g, ok := s.graphs[c.Param("graph")]
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1924, "graph not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"collections": g.OrphanCollections})
}

func (s *Server) addVertexCollection(c echo.Context) error {
	var body struct {
		Collection string `json:"collection"`
	}
	if err := c.Bind(&body); err != nil || body.Collection == "" {
		return errorDoc(c, http.StatusBadRequest, 10, "expecting a collection name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[c.Param("graph")]
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1924, "graph not found")
	}
	g.OrphanCollections = append(g.OrphanCollections, body.Collection)
	return c.JSON(http.StatusCreated, map[string]any{"graph": g})
}

func (s *Server) removeVertexCollection(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[c.Param("graph")]
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1924, "graph not found")
	}
	collection := c.Param("collection")
	kept := g.OrphanCollections[:0]
	for _, name := range g.OrphanCollections {
		if name != collection {
			kept = append(kept, name)
		}
	}
	g.OrphanCollections = kept
	return c.JSON(http.StatusOK, map[string]any{"graph": g})
}

func (s *Server) listEdgeCollections(c echo.Context) error {
	s.mu.Lock()
	g, ok := s.graphs[c.Param("graph")]
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1924, "graph not found")
	}
	collections := []string{}
	for _, def := range g.EdgeDefinitions {
		if name, _ := def["collection"].(string); name != "" {
			collections = append(collections, name)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"collections": collections})
}

func (s *Server) replaceEdgeDefinition(c echo.Context) error {
	var def map[string]any
	if err := c.Bind(&def); err != nil {
		return errorDoc(c, http.StatusBadRequest, 10, "expecting an edge definition")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[c.Param("graph")]
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1924, "graph not found")
	}
	collection := c.Param("collection")
	for i, existing := range g.EdgeDefinitions {
		if name, _ := existing["collection"].(string); name == collection {
			g.EdgeDefinitions[i] = def
			return c.JSON(http.StatusOK, map[string]any{"graph": g})
		}
	}
	return errorDoc(c, http.StatusNotFound, 1930, "edge definition not found")
}

func (s *Server) removeEdgeDefinition(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[c.Param("graph")]
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1924, "graph not found")
	}
	collection := c.Param("collection")
	for i, existing := range g.EdgeDefinitions {
		if name, _ := existing["collection"].(string); name == collection {
			g.EdgeDefinitions = append(g.EdgeDefinitions[:i], g.EdgeDefinitions[i+1:]...)
			return c.JSON(http.StatusOK, map[string]any{"graph": g})
		}
	}
	return errorDoc(c, http.StatusNotFound, 1930, "edge definition not found")
}

func (s *Server) getEdge(c echo.Context) error {
	s.mu.Lock()
	doc, ok := s.vertices[c.Param("collection")+"/"+c.Param("key")]
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1202, "edge not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"edge": doc})
}

func (s *Server) deleteEdge(c echo.Context) error {
	id := c.Param("collection") + "/" + c.Param("key")
	s.mu.Lock()
	_, ok := s.vertices[id]
	delete(s.vertices, id)
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1202, "edge not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"removed": true})
}

func (s *Server) updateVertex(c echo.Context) error {
	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return errorDoc(c, http.StatusBadRequest, 10, "invalid vertex patch")
	}
	id := c.Param("collection") + "/" + c.Param("key")
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.vertices[id]
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1202, "vertex not found")
	}
	for k, v := range patch {
		doc[k] = v
	}
	doc["_rev"] = uuid.NewString()
	return c.JSON(http.StatusOK, map[string]any{"vertex": doc})
}

func (s *Server) addEdgeDefinition(c echo.Context) error {
	var def map[string]any
	if err := c.Bind(&def); err != nil || def["collection"] == nil {
		return errorDoc(c, http.StatusBadRequest, 10, "expecting an edge definition")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[c.Param("graph")]
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1924, "graph not found")
	}
	g.EdgeDefinitions = append(g.EdgeDefinitions, def)
	return c.JSON(http.StatusCreated, map[string]any{"graph": g})
}

func (s *Server) insertEdge(c echo.Context) error {
	var doc map[string]any
	if err := c.Bind(&doc); err != nil {
		return errorDoc(c, http.StatusBadRequest, 10, "invalid edge document")
	}
	if doc["_from"] == nil || doc["_to"] == nil {
		return errorDoc(c, http.StatusBadRequest, 1233, "edge needs _from and _to")
	}
	key, _ := doc["_key"].(string)
	if key == "" {
		key = uuid.NewString()
		doc["_key"] = key
	}
	collection := c.Param("collection")
	doc["_id"] = collection + "/" + key
	doc["_rev"] = uuid.NewString()

	s.mu.Lock()
	s.vertices[collection+"/"+key] = doc
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, map[string]any{"edge": doc})
}

func (s *Server) insertVertex(c echo.Context) error {
	var doc map[string]any
	if err := c.Bind(&doc); err != nil {
		return errorDoc(c, http.StatusBadRequest, 10, "invalid vertex document")
	}
	key, _ := doc["_key"].(string)
	if key == "" {
		key = uuid.NewString()
		doc["_key"] = key
	}
	collection := c.Param("collection")
	doc["_id"] = collection + "/" + key
	doc["_rev"] = uuid.NewString()

	s.mu.Lock()
	s.vertices[collection+"/"+key] = doc
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, map[string]any{"vertex": doc})
}

func (s *Server) getVertex(c echo.Context) error {
	s.mu.Lock()
	doc, ok := s.vertices[c.Param("collection")+"/"+c.Param("key")]
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1202, "vertex not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"vertex": doc})
}

func (s *Server) deleteVertex(c echo.Context) error {
	id := c.Param("collection") + "/" + c.Param("key")
	s.mu.Lock()
	_, ok := s.vertices[id]
	delete(s.vertices, id)
	s.mu.Unlock()
	if !ok {
		return errorDoc(c, http.StatusNotFound, 1202, "vertex not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"removed": true})
}
