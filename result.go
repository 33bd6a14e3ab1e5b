package strata

// ResultKind discriminates the variants of a Result.
type ResultKind int

const (
	// ResultEmpty marks a result whose production was deferred entirely,
	// e.g. a fire-and-forget async execution.
	ResultEmpty ResultKind = iota

	// ResultValue marks a result carrying a concrete value.
	ResultValue

	// ResultAsync marks a result carrying an AsyncJob handle.
	ResultAsync

	// ResultBatch marks a result carrying a BatchJob handle.
	ResultBatch
)

// String returns the kind name as used in execution context strings.
func (k ResultKind) String() string {
	switch k {
	case ResultValue:
		return "value"
	case ResultAsync:
		return "async"
	case ResultBatch:
		return "batch"
	default:
		return "empty"
	}
}

// Result is the outcome of executing a request under some execution
// context. Exactly one variant is populated: a concrete value (default
// execution), an AsyncJob (server-side async execution), a BatchJob
// (client-side batching or transactions), or nothing at all. Callers must
// discriminate with Kind before accessing a variant; accessing the wrong
// variant is a usage error.
type Result[T any] struct {
	kind  ResultKind
	value T
	async *AsyncJob[T]
	batch *BatchJob[T]
}

func newValueResult[T any](v T) Result[T] {
	return Result[T]{kind: ResultValue, value: v}
}

func newAsyncResult[T any](job *AsyncJob[T]) Result[T] {
	return Result[T]{kind: ResultAsync, async: job}
}

func newBatchResult[T any](job *BatchJob[T]) Result[T] {
	return Result[T]{kind: ResultBatch, batch: job}
}

// Kind returns the populated variant tag.
func (r Result[T]) Kind() ResultKind {
	return r.kind
}

// Value returns the concrete value. It fails with a UsageError when the
// result was produced under a non-default execution context.
func (r Result[T]) Value() (T, error) {
	if r.kind != ResultValue {
		var zero T
		return zero, &UsageError{Message: "result holds no value (kind " + r.kind.String() + "); check Kind before access"}
	}
	return r.value, nil
}

// Async returns the AsyncJob handle. It fails with a UsageError when the
// result was not produced by an async executor.
func (r Result[T]) Async() (*AsyncJob[T], error) {
	if r.kind != ResultAsync {
		return nil, &UsageError{Message: "result holds no async job (kind " + r.kind.String() + "); check Kind before access"}
	}
	return r.async, nil
}

// Batch returns the BatchJob handle. It fails with a UsageError when the
// result was not produced by a batch or transaction executor.
func (r Result[T]) Batch() (*BatchJob[T], error) {
	if r.kind != ResultBatch {
		return nil, &UsageError{Message: "result holds no batch job (kind " + r.kind.String() + "); check Kind before access"}
	}
	return r.batch, nil
}
