// Package strata is a Go driver for the Strata document/graph database.
//
// # Overview
//
// The driver separates *what* an operation does from *when* it reaches the
// server. Every API call builds an immutable request plus a response
// handler and hands both to an executor; the executor variant bound to the
// database handle decides whether the call is sent immediately, queued, or
// executed asynchronously server-side.
//
// # Architecture
//
//	┌──────────────────┐
//	│  API groups      │  Pregel, Graphs, Jobs: thin callers
//	│  (request+handler)│
//	└────────┬─────────┘
//	         │
//	┌────────▼─────────┐
//	│  Executor        │  default | async | batch | transaction
//	└────────┬─────────┘
//	         │
//	┌────────▼─────────┐       ┌──────────────────┐
//	│  Connection      │◄──────┤  Credentials,    │
//	│  (hosts, auth)   │       │  host failover   │
//	└────────┬─────────┘       └──────────────────┘
//	         │
//	┌────────▼─────────┐
//	│  Transport       │  pooled net/http, bounded retry/backoff
//	└──────────────────┘
//
// # Execution contexts
//
// The same call-site code runs unmodified under all four contexts:
//
//	db, _ := client.Database("social")
//
//	// Default: send now, value result.
//	res, _ := db.Pregel().CreateJob(ctx, "g", "pagerank", nil)
//	id, _ := res.Value()
//
//	// Async: server executes in the background, poll the job.
//	ares, _ := db.Async(true).Pregel().CreateJob(ctx, "g", "pagerank", nil)
//	job, _ := ares.Async()
//	id, _ = job.Poll(ctx)
//
//	// Batch: queue locally, one wire call on Commit.
//	batch := db.BeginBatch()
//	bres, _ := batch.Pregel().Job(ctx, id)
//	_ = batch.Commit(ctx)
//	bjob, _ := bres.Batch()
//	details, _ := bjob.Result()
//
//	// Transaction: queued operations commit atomically with their
//	// aggregated collection locks.
//	trx := db.BeginTransaction(strata.TransactionOptions{})
//	_, _ = trx.Graphs().InsertVertex(ctx, "g", "people", vertex)
//	_ = trx.Commit(ctx)
//
// # Results
//
// Result is a tagged union: a concrete value, an AsyncJob, a BatchJob, or
// nothing. Callers discriminate with Kind (or just call the accessor
// matching the context they chose); accessing the wrong variant is a
// UsageError, never a silent zero value.
//
// # Errors
//
// The driver distinguishes TransportError (network failure after the retry
// budget), HTTPError (completed call rejected by its handler, carrying the
// original request and response), JobError (a job's terminal failure) and
// UsageError (violated caller contract).
package strata
