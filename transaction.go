package strata

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// headerTransaction scopes a replayed request to a server-side transaction.
const headerTransaction = "x-strata-trx-id"

// TransactionOptions declares the lock sets and tuning flags for a
// transaction. The per-request lock declarations of queued operations are
// aggregated on top of these at commit time.
type TransactionOptions struct {
	// Read, Write and Exclusive name the collections locked for the whole
	// transaction.
	Read      []string
	Write     []string
	Exclusive []string

	// WaitForSync forces the commit to be synced to disk before returning.
	WaitForSync bool

	// LockTimeout is the server-side lock acquisition timeout in seconds.
	// Zero keeps the server default.
	LockTimeout int
}

// transactionExecutor queues operations like a batch, but replays them
// inside one server-side transaction at commit time. Partial success is
// not a valid outcome: either every queued operation commits together or
// the transaction is aborted and every job fails.
//
// Like the batch executor, an instance is owned by one goroutine at a time.
type transactionExecutor struct {
	conn  *Connection
	opts  TransactionOptions
	queue []*batchSlot
	state string // "pending", "committed" or "aborted"
	trxID string
}

func newTransactionExecutor(conn *Connection, opts TransactionOptions) *transactionExecutor {
	return &transactionExecutor{conn: conn, opts: opts, state: "pending"}
}

func (e *transactionExecutor) ExecutionContext() string { return ContextTransaction }

func (e *transactionExecutor) Execute(ctx context.Context, req *Request, handler rawHandler) (*execResult, error) {
	if e.state != "pending" {
		return nil, &UsageError{Message: "transaction already " + e.state}
	}
	slot := &batchSlot{
		id:      uuid.NewString(),
		req:     req,
		handler: handler,
		status:  JobQueued,
	}
	e.queue = append(e.queue, slot)
	return &execResult{kind: ResultBatch, slot: slot}, nil
}

// TransactionID returns the server-assigned transaction id, available once
// Commit has begun the transaction.
func (e *transactionExecutor) TransactionID() string { return e.trxID }

// Commit begins a server transaction covering the aggregated lock sets,
// replays every queued request inside it, and commits. Any failure along
// the way aborts the transaction and fails every queued job.
func (e *transactionExecutor) Commit(ctx context.Context) error {
	if e.state != "pending" {
		return &UsageError{Message: "transaction already " + e.state}
	}

	if len(e.queue) == 0 {
		e.state = "committed"
		return nil
	}

	if err := e.begin(ctx); err != nil {
		e.state = "aborted"
		e.failAll(err)
		return err
	}

	responses := make([]*Response, len(e.queue))
	for i, slot := range e.queue {
		scoped := *slot.req
		scoped.Headers = Headers{}
		for k, v := range slot.req.Headers {
			scoped.Headers[k] = v
		}
		scoped.Headers[headerTransaction] = e.trxID

		resp, err := e.conn.SendRequest(ctx, &scoped)
		if err != nil {
			e.rollback(ctx, err)
			return err
		}
		responses[i] = resp
	}

	// Interpret every sub-response before touching job state so a single
	// rejected operation can still abort the whole unit.
	values := make([]any, len(e.queue))
	for i, slot := range e.queue {
		value, err := slot.handler(responses[i])
		if err != nil {
			e.rollback(ctx, err)
			return err
		}
		values[i] = value
	}

	commitReq := NewRequest("put", "/_api/transaction/"+e.trxID)
	resp, err := e.conn.SendRequest(ctx, commitReq)
	if err != nil {
		e.rollback(ctx, err)
		return err
	}
	if !resp.IsSuccess() {
		httpErr := NewHTTPError("transaction commit", commitReq, resp, "")
		e.rollback(ctx, httpErr)
		return httpErr
	}

	e.state = "committed"
	for i, slot := range e.queue {
		slot.resp = responses[i]
		slot.status = JobCommitted
		slot.value = values[i]
	}
	return nil
}

// Abort discards the queued operations without sending them. Once the
// transaction is committed, aborting is a usage error.
func (e *transactionExecutor) Abort(ctx context.Context) error {
	if e.state == "committed" {
		return &UsageError{Message: "transaction already committed"}
	}
	if e.state == "aborted" {
		return nil
	}
	e.state = "aborted"
	e.failAll(fmt.Errorf("transaction aborted by caller"))
	return nil
}

// begin aggregates the lock declarations of the transaction options and of
// every queued request into one transaction-begin call.
func (e *transactionExecutor) begin(ctx context.Context) error {
	read := append([]string{}, e.opts.Read...)
	write := append([]string{}, e.opts.Write...)
	exclusive := append([]string{}, e.opts.Exclusive...)
	for _, slot := range e.queue {
		read = append(read, slot.req.Read...)
		write = append(write, slot.req.Write...)
		exclusive = append(exclusive, slot.req.Exclusive...)
	}

	collections := map[string]any{}
	if locks := dedupe(read); len(locks) > 0 {
		collections["read"] = locks
	}
	if locks := dedupe(write); len(locks) > 0 {
		collections["write"] = locks
	}
	if locks := dedupe(exclusive); len(locks) > 0 {
		collections["exclusive"] = locks
	}

	body := map[string]any{"collections": collections}
	if e.opts.WaitForSync {
		body["waitForSync"] = true
	}
	if e.opts.LockTimeout > 0 {
		body["lockTimeout"] = e.opts.LockTimeout
	}

	req := NewRequest("post", "/_api/transaction/begin", WithJSON(body))
	resp, err := e.conn.SendRequest(ctx, req)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return NewHTTPError("transaction begin", req, resp, "")
	}

	var beginResult struct {
		Result struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	if err := resp.Body(&beginResult); err != nil || beginResult.Result.ID == "" {
		return NewHTTPError("transaction begin", req, resp, "server returned no transaction id")
	}
	e.trxID = beginResult.Result.ID
	return nil
}

// rollback aborts the server-side transaction and fails every queued job
// with the triggering cause. The abort call is best-effort; the server
// garbage-collects abandoned transactions.
func (e *transactionExecutor) rollback(ctx context.Context, cause error) {
	e.state = "aborted"
	abortReq := NewRequest("delete", "/_api/transaction/"+e.trxID)
	if _, err := e.conn.SendRequest(ctx, abortReq); err != nil {
		e.conn.debugf("abort of transaction %s failed: %v", e.trxID, err)
	}
	e.failAll(cause)
}

func (e *transactionExecutor) failAll(cause error) {
	for _, slot := range e.queue {
		if slot.status == JobQueued {
			slot.fail(&JobError{JobID: slot.id, Request: slot.req, Message: cause.Error()})
		}
	}
}

// dedupe removes duplicate collection names, preserving first-seen order.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
