package strata

import "context"

// Database is a handle on one database under a fixed execution context.
// The handle's API groups build requests and response handlers; the
// executor behind the handle decides when those requests reach the wire.
// Forking methods (Async, BeginBatch, BeginTransaction) return handles
// with the same API surface bound to a different executor, so call-site
// code works unmodified under every context.
type Database struct {
	conn *Connection
	exec executor
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.conn.DatabaseName()
}

// ExecutionContext returns the active execution context: "default",
// "async", "batch" or "transaction".
func (d *Database) ExecutionContext() string {
	return d.exec.ExecutionContext()
}

// Pregel returns the distributed graph-algorithm job API group.
func (d *Database) Pregel() *Pregel {
	return &Pregel{apiGroup{conn: d.conn, exec: d.exec}}
}

// Graphs returns the named-graph management API group.
func (d *Database) Graphs() *Graphs {
	return &Graphs{apiGroup{conn: d.conn, exec: d.exec}}
}

// Jobs returns the async-job administration API group.
func (d *Database) Jobs() *Jobs {
	return &Jobs{apiGroup{conn: d.conn, exec: d.exec}}
}

// Async forks the handle into the server-side asynchronous execution
// context. With returnResult, every operation returns a pending AsyncJob
// whose result is retrieved by polling; without it, operations are
// fire-and-forget and yield empty results.
func (d *Database) Async(returnResult bool) *AsyncDatabase {
	return &AsyncDatabase{Database{
		conn: d.conn,
		exec: &asyncExecutor{conn: d.conn, returnResult: returnResult},
	}}
}

// BeginBatch forks the handle into the client-side batching context.
// Operations queue locally and return BatchJobs; Commit flushes the queue
// as one multipart call. The returned handle must stay with one goroutine.
func (d *Database) BeginBatch() *BatchDatabase {
	ex := &batchExecutor{conn: d.conn}
	return &BatchDatabase{
		Database: Database{conn: d.conn, exec: ex},
		exec:     ex,
	}
}

// BeginTransaction forks the handle into the transaction context.
// Operations queue locally; Commit runs them atomically inside a server
// transaction covering the aggregated lock declarations. The returned
// handle must stay with one goroutine.
func (d *Database) BeginTransaction(opts TransactionOptions) *TransactionDatabase {
	ex := newTransactionExecutor(d.conn, opts)
	return &TransactionDatabase{
		Database: Database{conn: d.conn, exec: ex},
		exec:     ex,
	}
}

// AsyncDatabase is a Database bound to the async executor.
type AsyncDatabase struct {
	Database
}

// BatchDatabase is a Database bound to one batch executor instance.
type BatchDatabase struct {
	Database
	exec *batchExecutor
}

// Commit flushes the queued operations as one multipart call and settles
// every BatchJob issued by this handle. Committing twice, or executing
// further operations afterwards, is a usage error.
func (b *BatchDatabase) Commit(ctx context.Context) error {
	return b.exec.Commit(ctx)
}

// TransactionDatabase is a Database bound to one transaction executor
// instance.
type TransactionDatabase struct {
	Database
	exec *transactionExecutor
}

// Commit runs the queued operations atomically and settles every BatchJob
// issued by this handle: all committed, or the transaction is aborted and
// all failed.
func (t *TransactionDatabase) Commit(ctx context.Context) error {
	return t.exec.Commit(ctx)
}

// Abort discards the queued operations and fails their jobs.
func (t *TransactionDatabase) Abort(ctx context.Context) error {
	return t.exec.Abort(ctx)
}

// TransactionID returns the server-assigned transaction id once Commit has
// begun the transaction, and "" before that.
func (t *TransactionDatabase) TransactionID() string {
	return t.exec.TransactionID()
}

// apiGroup is the embedded base of every API group: a connection for
// addressing and an executor for delivery.
type apiGroup struct {
	conn *Connection
	exec executor
}
