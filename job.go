package strata

import (
	"context"
	"fmt"
)

// JobStatus is the lifecycle state of an async or batch job. Transitions
// are monotonic: a job leaves its initial state at most once and terminal
// states are never left.
type JobStatus string

const (
	// Async job states.
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobErrored JobStatus = "error"

	// Batch/transaction job states.
	JobQueued    JobStatus = "queued"
	JobCommitted JobStatus = "committed"
	JobFailed    JobStatus = "failed"
)

// AsyncJob tracks one server-side asynchronous execution. It stores the
// original request and the typed response handler as plain data, so a job
// is constructible and testable without a live executor. Once Poll reaches
// a terminal state the outcome is memoized and no further physical calls
// are made.
//
// An AsyncJob is owned by one goroutine at a time; concurrent polling of
// the same job is not supported.
type AsyncJob[T any] struct {
	conn    *Connection
	id      string
	req     *Request
	handler func(*Response) (T, error)
	status  JobStatus
	value   T
	err     error
}

func newAsyncJob[T any](conn *Connection, id string, req *Request, handler func(*Response) (T, error)) *AsyncJob[T] {
	return &AsyncJob[T]{
		conn:    conn,
		id:      id,
		req:     req,
		handler: handler,
		status:  JobPending,
	}
}

// ID returns the server-assigned job id.
func (j *AsyncJob[T]) ID() string { return j.id }

// Status returns the locally observed job state. It does not contact the
// server; use FetchStatus for that.
func (j *AsyncJob[T]) Status() JobStatus { return j.status }

// FetchStatus asks the server whether the job has finished. It never
// advances the local state machine; only Poll does that.
func (j *AsyncJob[T]) FetchStatus(ctx context.Context) (JobStatus, error) {
	req := NewRequest("get", fmt.Sprintf("/_api/job/%s", j.id))
	resp, err := j.conn.SendRequest(ctx, req)
	if err != nil {
		return "", err
	}
	switch {
	case resp.StatusCode == 204:
		return JobPending, nil
	case resp.IsSuccess():
		return JobDone, nil
	case resp.StatusCode == 404:
		return "", &JobError{JobID: j.id, Request: req, Response: resp, Message: "job not found"}
	default:
		return "", &JobError{JobID: j.id, Request: req, Response: resp, Message: "status query failed"}
	}
}

// Poll retrieves the job's stored output from the server, applies the
// response handler and memoizes the outcome. Retrieval deletes the result
// server-side, so repeated calls after completion return the memoized
// value without another physical call. A job that is still pending leaves
// the state machine untouched and reports a JobError.
func (j *AsyncJob[T]) Poll(ctx context.Context) (T, error) {
	var zero T
	switch j.status {
	case JobDone:
		return j.value, nil
	case JobErrored:
		return zero, j.err
	}

	req := NewRequest("put", fmt.Sprintf("/_api/job/%s", j.id))
	resp, err := j.conn.SendRequest(ctx, req)
	if err != nil {
		return zero, err
	}

	if resp.Headers.Get(headerAsyncID) != "" {
		value, err := j.handler(resp)
		if err != nil {
			j.status = JobErrored
			j.err = &JobError{JobID: j.id, Request: j.req, Response: resp, Message: err.Error()}
			return zero, j.err
		}
		j.status = JobDone
		j.value = value
		return value, nil
	}

	switch resp.StatusCode {
	case 204:
		return zero, &JobError{JobID: j.id, Request: req, Response: resp, Message: "job not done yet"}
	case 404:
		return zero, &JobError{JobID: j.id, Request: req, Response: resp, Message: "job not found"}
	default:
		return zero, &JobError{JobID: j.id, Request: req, Response: resp, Message: "result retrieval failed"}
	}
}

// Result returns the memoized outcome. Calling it before Poll has reached
// a terminal state is a usage error, not a wait.
func (j *AsyncJob[T]) Result() (T, error) {
	var zero T
	switch j.status {
	case JobDone:
		return j.value, nil
	case JobErrored:
		return zero, j.err
	default:
		return zero, &UsageError{Message: fmt.Sprintf("async job %s is still %s; poll it to completion first", j.id, j.status)}
	}
}

// Cancel asks the server to cancel the job. A job already taken out of the
// server queue cannot be cancelled. With ignoreMissing, a missing job
// returns false instead of an error.
func (j *AsyncJob[T]) Cancel(ctx context.Context, ignoreMissing bool) (bool, error) {
	req := NewRequest("put", fmt.Sprintf("/_api/job/%s/cancel", j.id))
	resp, err := j.conn.SendRequest(ctx, req)
	if err != nil {
		return false, err
	}
	switch {
	case resp.IsSuccess():
		return true, nil
	case resp.StatusCode == 404:
		if ignoreMissing {
			return false, nil
		}
		return false, &JobError{JobID: j.id, Request: req, Response: resp, Message: "job not found"}
	default:
		return false, &JobError{JobID: j.id, Request: req, Response: resp, Message: "cancel failed"}
	}
}

// Clear deletes the job result from the server without retrieving it.
func (j *AsyncJob[T]) Clear(ctx context.Context, ignoreMissing bool) (bool, error) {
	req := NewRequest("delete", fmt.Sprintf("/_api/job/%s", j.id))
	resp, err := j.conn.SendRequest(ctx, req)
	if err != nil {
		return false, err
	}
	switch {
	case resp.IsSuccess():
		return true, nil
	case resp.StatusCode == 404:
		if ignoreMissing {
			return false, nil
		}
		return false, &JobError{JobID: j.id, Request: req, Response: resp, Message: "job not found"}
	default:
		return false, &JobError{JobID: j.id, Request: req, Response: resp, Message: "clear failed"}
	}
}

// batchSlot is the executor-side record of one queued operation: the
// request, the untyped handler, and (after commit) the outcome. BatchJob
// is a typed view over the slot shared with the owning executor.
type batchSlot struct {
	id      string
	req     *Request
	handler rawHandler
	status  JobStatus
	resp    *Response
	value   any
	err     error
}

// complete applies the stored handler to the slot's sub-response and moves
// the slot to its terminal state.
func (s *batchSlot) complete(resp *Response) {
	s.resp = resp
	value, err := s.handler(resp)
	if err != nil {
		s.status = JobFailed
		s.err = err
		return
	}
	s.status = JobCommitted
	s.value = value
}

// fail moves the slot to its terminal failure state with the given cause.
func (s *batchSlot) fail(err error) {
	s.status = JobFailed
	s.err = err
}

// BatchJob tracks one operation queued on a batch or transaction executor.
// Its result becomes accessible only after the owning executor committed;
// earlier access is a usage error.
type BatchJob[T any] struct {
	slot *batchSlot
}

// ID returns the job's identity within its batch.
func (j *BatchJob[T]) ID() string { return j.slot.id }

// Status returns the job state: queued until the owning executor commits,
// then committed or failed.
func (j *BatchJob[T]) Status() JobStatus { return j.slot.status }

// Result returns the handler's value for this job's sub-response.
func (j *BatchJob[T]) Result() (T, error) {
	var zero T
	switch j.slot.status {
	case JobCommitted:
		return j.slot.value.(T), nil
	case JobFailed:
		return zero, j.slot.err
	default:
		return zero, &UsageError{Message: fmt.Sprintf("batch job %s is not committed yet", j.slot.id)}
	}
}
