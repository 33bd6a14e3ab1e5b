package strata

import "context"

// Execution context names, as reported by Database.ExecutionContext.
const (
	ContextDefault     = "default"
	ContextAsync       = "async"
	ContextBatch       = "batch"
	ContextTransaction = "transaction"
)

// Header carrying the async execution mode on outgoing calls, and the
// job id on the server's immediate reply.
const (
	headerAsync   = "x-strata-async"
	headerAsyncID = "x-strata-async-id"
)

// rawHandler is the untyped form of a response handler, as stored by
// executors. The typed form is adapted in executeAs.
type rawHandler func(*Response) (any, error)

// execResult is the untyped outcome of executor.Execute: either an applied
// handler value, a pending async job id, a queued batch slot, or nothing.
type execResult struct {
	kind    ResultKind
	value   any
	asyncID string
	conn    *Connection
	slot    *batchSlot
}

// executor decides when and how a request reaches the transport and what
// shape of result comes back. The four variants (default, async, batch,
// transaction) all satisfy this contract; API groups depend only on it and
// never inspect which variant is active.
type executor interface {
	// ExecutionContext returns one of the Context* constants.
	ExecutionContext() string

	// Execute delivers or enqueues the request. Every path either yields
	// a well-formed execResult or an error from the driver taxonomy.
	Execute(ctx context.Context, req *Request, handler rawHandler) (*execResult, error)
}

// executeAs runs a request through an executor with a typed response
// handler and wraps the outcome into a typed Result. This is the single
// seam between the untyped executor machinery and the typed API surface.
func executeAs[T any](ctx context.Context, ex executor, req *Request, handler func(*Response) (T, error)) (Result[T], error) {
	raw, err := ex.Execute(ctx, req, func(resp *Response) (any, error) {
		return handler(resp)
	})
	if err != nil {
		return Result[T]{}, err
	}
	switch raw.kind {
	case ResultValue:
		return newValueResult(raw.value.(T)), nil
	case ResultAsync:
		return newAsyncResult(newAsyncJob(raw.conn, raw.asyncID, req, handler)), nil
	case ResultBatch:
		return newBatchResult(&BatchJob[T]{slot: raw.slot}), nil
	default:
		return Result[T]{}, nil
	}
}

// defaultExecutor sends immediately and applies the handler synchronously.
type defaultExecutor struct {
	conn *Connection
}

func (e *defaultExecutor) ExecutionContext() string { return ContextDefault }

func (e *defaultExecutor) Execute(ctx context.Context, req *Request, handler rawHandler) (*execResult, error) {
	resp, err := e.conn.SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	value, err := handler(resp)
	if err != nil {
		return nil, err
	}
	return &execResult{kind: ResultValue, value: value}, nil
}

// asyncExecutor marks each call for server-side asynchronous execution.
// The server answers immediately with a job id; the handler is kept on the
// returned job and applied when the job is polled.
type asyncExecutor struct {
	conn *Connection

	// returnResult controls whether the server stores the job result for
	// later retrieval. When false, executions are fire-and-forget and
	// yield empty results.
	returnResult bool
}

func (e *asyncExecutor) ExecutionContext() string { return ContextAsync }

func (e *asyncExecutor) Execute(ctx context.Context, req *Request, handler rawHandler) (*execResult, error) {
	marked := *req
	marked.Headers = Headers{}
	for k, v := range req.Headers {
		marked.Headers[k] = v
	}
	if e.returnResult {
		marked.Headers[headerAsync] = "store"
	} else {
		marked.Headers[headerAsync] = "true"
	}

	resp, err := e.conn.SendRequest(ctx, &marked)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, NewHTTPError("async execute", req, resp, "")
	}
	if !e.returnResult {
		return &execResult{kind: ResultEmpty}, nil
	}
	jobID := resp.Headers.Get(headerAsyncID)
	if jobID == "" {
		return nil, NewHTTPError("async execute", req, resp, "server returned no job id")
	}
	return &execResult{kind: ResultAsync, asyncID: jobID, conn: e.conn}, nil
}
