package strata

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/strata/internal/mockdb"
	"evalgo.org/strata/models"
)

// newMockDatabase wires a client against an in-process mock server.
func newMockDatabase(t *testing.T) *Database {
	t.Helper()
	server := httptest.NewServer(mockdb.New().Handler())
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		Endpoints: []string{server.URL},
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	db, err := client.Database("test")
	require.NoError(t, err)
	return db
}

func TestClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(Config{})
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
}

func TestExecutionContexts(t *testing.T) {
	db := newMockDatabase(t)

	assert.Equal(t, ContextDefault, db.ExecutionContext())
	assert.Equal(t, ContextAsync, db.Async(true).ExecutionContext())
	assert.Equal(t, ContextBatch, db.BeginBatch().ExecutionContext())
	assert.Equal(t, ContextTransaction, db.BeginTransaction(TransactionOptions{}).ExecutionContext())
	assert.Equal(t, "test", db.Name())
}

func TestPregelLifecycle(t *testing.T) {
	db := newMockDatabase(t)
	ctx := context.Background()
	pregel := db.Pregel()

	res, err := pregel.CreateJob(ctx, "social", "pagerank", nil)
	require.NoError(t, err)
	id, err := res.Value()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	jobRes, err := pregel.Job(ctx, id)
	require.NoError(t, err)
	job, err := jobRes.Value()
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, "pagerank", job.Algorithm)
	assert.Equal(t, "running", job.State)

	delRes, err := pregel.DeleteJob(ctx, id)
	require.NoError(t, err)
	ok, err := delRes.Value()
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = pregel.Job(ctx, id)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 404, httpErr.Response.StatusCode)
}

func TestAsyncExecution(t *testing.T) {
	db := newMockDatabase(t)
	ctx := context.Background()
	adb := db.Async(true)

	res, err := adb.Pregel().CreateJob(ctx, "social", "pagerank", nil)
	require.NoError(t, err)
	require.Equal(t, ResultAsync, res.Kind())

	job, err := res.Async()
	require.NoError(t, err)
	assert.Equal(t, JobPending, job.Status())

	status, err := job.FetchStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, JobDone, status)

	id, err := job.Poll(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, JobDone, job.Status())

	// The stored result was consumed; only the memoized copy remains.
	again, err := job.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	_, err = job.FetchStatus(ctx)
	var jobErr *JobError
	require.ErrorAs(t, err, &jobErr)

	// The submitted work ran server-side regardless of the async plumbing.
	jobRes, err := db.Pregel().Job(ctx, id)
	require.NoError(t, err)
	details, err := jobRes.Value()
	require.NoError(t, err)
	assert.Equal(t, "pagerank", details.Algorithm)
}

func TestAsyncFireAndForget(t *testing.T) {
	db := newMockDatabase(t)
	ctx := context.Background()

	res, err := db.Async(false).Pregel().CreateJob(ctx, "social", "pagerank", nil)
	require.NoError(t, err)
	assert.Equal(t, ResultEmpty, res.Kind())

	// Fire-and-forget stores nothing retrievable.
	doneRes, err := db.Jobs().ListDone(ctx, 0)
	require.NoError(t, err)
	done, err := doneRes.Value()
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestAsyncJobAdministration(t *testing.T) {
	db := newMockDatabase(t)
	ctx := context.Background()
	adb := db.Async(true)

	_, err := adb.Pregel().CreateJob(ctx, "social", "pagerank", nil)
	require.NoError(t, err)
	_, err = adb.Pregel().CreateJob(ctx, "social", "wcc", nil)
	require.NoError(t, err)

	doneRes, err := db.Jobs().ListDone(ctx, 0)
	require.NoError(t, err)
	done, err := doneRes.Value()
	require.NoError(t, err)
	assert.Len(t, done, 2)

	clearRes, err := db.Jobs().ClearAll(ctx)
	require.NoError(t, err)
	ok, err := clearRes.Value()
	require.NoError(t, err)
	assert.True(t, ok)

	doneRes, err = db.Jobs().ListDone(ctx, 0)
	require.NoError(t, err)
	done, err = doneRes.Value()
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestBatchExecution(t *testing.T) {
	db := newMockDatabase(t)
	ctx := context.Background()
	bdb := db.BeginBatch()

	res1, err := bdb.Pregel().CreateJob(ctx, "social", "pagerank", nil)
	require.NoError(t, err)
	res2, err := bdb.Pregel().CreateJob(ctx, "social", "wcc", nil)
	require.NoError(t, err)
	require.Equal(t, ResultBatch, res1.Kind())

	job1, err := res1.Batch()
	require.NoError(t, err)
	job2, err := res2.Batch()
	require.NoError(t, err)

	require.NoError(t, bdb.Commit(ctx))

	id1, err := job1.Result()
	require.NoError(t, err)
	id2, err := job2.Result()
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	// Both submissions really ran.
	jobRes, err := db.Pregel().Job(ctx, id2)
	require.NoError(t, err)
	details, err := jobRes.Value()
	require.NoError(t, err)
	assert.Equal(t, "wcc", details.Algorithm)
}

func TestTransactionExecution(t *testing.T) {
	db := newMockDatabase(t)
	ctx := context.Background()

	_, err := db.Graphs().Create(ctx, "social", nil)
	require.NoError(t, err)

	tdb := db.BeginTransaction(TransactionOptions{Write: []string{"people"}})
	res1, err := tdb.Graphs().InsertVertex(ctx, "social", "people", models.Document{"_key": "alice"})
	require.NoError(t, err)
	res2, err := tdb.Graphs().InsertVertex(ctx, "social", "people", models.Document{"_key": "bob"})
	require.NoError(t, err)
	job1, _ := res1.Batch()
	job2, _ := res2.Batch()

	require.NoError(t, tdb.Commit(ctx))
	require.NotEmpty(t, tdb.TransactionID())

	v1, err := job1.Result()
	require.NoError(t, err)
	assert.Equal(t, "alice", v1.Key())
	v2, err := job2.Result()
	require.NoError(t, err)
	assert.Equal(t, "bob", v2.Key())

	// The writes are visible outside the transaction handle.
	vertexRes, err := db.Graphs().Vertex(ctx, "social", "people", "alice")
	require.NoError(t, err)
	vertex, err := vertexRes.Value()
	require.NoError(t, err)
	assert.Equal(t, "people/alice", vertex["_id"])
}

func TestGraphManagement(t *testing.T) {
	db := newMockDatabase(t)
	ctx := context.Background()
	graphs := db.Graphs()

	hasRes, err := graphs.Has(ctx, "social")
	require.NoError(t, err)
	has, err := hasRes.Value()
	require.NoError(t, err)
	assert.False(t, has)

	_, err = graphs.Create(ctx, "social", []models.EdgeDefinition{
		{Collection: "knows", From: []string{"people"}, To: []string{"people"}},
	})
	require.NoError(t, err)

	hasRes, err = graphs.Has(ctx, "social")
	require.NoError(t, err)
	has, err = hasRes.Value()
	require.NoError(t, err)
	assert.True(t, has)

	_, err = graphs.CreateVertexCollection(ctx, "social", "places")
	require.NoError(t, err)
	collectionsRes, err := graphs.VertexCollections(ctx, "social")
	require.NoError(t, err)
	collections, err := collectionsRes.Value()
	require.NoError(t, err)
	assert.Contains(t, collections, "places")

	_, err = graphs.CreateEdgeDefinition(ctx, "social", models.EdgeDefinition{
		Collection: "visited", From: []string{"people"}, To: []string{"places"},
	})
	require.NoError(t, err)

	edgeColsRes, err := graphs.EdgeCollections(ctx, "social")
	require.NoError(t, err)
	edgeCols, err := edgeColsRes.Value()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"knows", "visited"}, edgeCols)

	_, err = graphs.ReplaceEdgeDefinition(ctx, "social", models.EdgeDefinition{
		Collection: "visited", From: []string{"people"}, To: []string{"places", "events"},
	})
	require.NoError(t, err)

	_, err = graphs.InsertVertex(ctx, "social", "people", models.Document{"_key": "alice"})
	require.NoError(t, err)

	updatedRes, err := graphs.UpdateVertex(ctx, "social", "people", "alice", models.Document{"age": 31}, "")
	require.NoError(t, err)
	updated, err := updatedRes.Value()
	require.NoError(t, err)
	assert.Equal(t, float64(31), updated["age"])

	edgeRes, err := graphs.InsertEdge(ctx, "social", "visited", models.Document{
		"_from": "people/alice", "_to": "places/berlin",
	})
	require.NoError(t, err)
	edge, err := edgeRes.Value()
	require.NoError(t, err)
	assert.NotEmpty(t, edge.Key())

	fetchedEdgeRes, err := graphs.Edge(ctx, "social", "visited", edge.Key())
	require.NoError(t, err)
	fetchedEdge, err := fetchedEdgeRes.Value()
	require.NoError(t, err)
	assert.Equal(t, "people/alice", fetchedEdge["_from"])

	delEdgeRes, err := graphs.DeleteEdge(ctx, "social", "visited", edge.Key(), "")
	require.NoError(t, err)
	edgeRemoved, err := delEdgeRes.Value()
	require.NoError(t, err)
	assert.True(t, edgeRemoved)

	_, err = graphs.DeleteEdgeDefinition(ctx, "social", "knows", false)
	require.NoError(t, err)

	_, err = graphs.DeleteVertexCollection(ctx, "social", "places", false)
	require.NoError(t, err)

	delVertexRes, err := graphs.DeleteVertex(ctx, "social", "people", "alice", "")
	require.NoError(t, err)
	removed, err := delVertexRes.Value()
	require.NoError(t, err)
	assert.True(t, removed)

	delRes, err := graphs.Delete(ctx, "social", true)
	require.NoError(t, err)
	dropped, err := delRes.Value()
	require.NoError(t, err)
	assert.True(t, dropped)

	listRes, err := graphs.List(ctx)
	require.NoError(t, err)
	remaining, err := listRes.Value()
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
