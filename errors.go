package strata

import "fmt"

// TransportError reports a network-level failure (connect, timeout) that
// survived the transport's full retry budget. Server responses, whatever
// their status, never produce a TransportError.
type TransportError struct {
	// Attempts is the number of physical attempts made before giving up.
	Attempts int

	// Err is the last underlying network error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed after %d attempt(s): %v", e.Attempts, e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError reports a physical call that completed but returned a status
// the call site's response handler rejected. It carries the original
// request and response for diagnostics. Op names the failed call site
// (e.g. "pregel job create").
type HTTPError struct {
	Op       string
	Request  *Request
	Response *Response
	Message  string
}

// NewHTTPError builds an HTTPError for the given call site. When message is
// empty the server's own error message (or the status text) is used.
func NewHTTPError(op string, req *Request, resp *Response, message string) *HTTPError {
	if message == "" && resp != nil {
		message = resp.ErrorMessage()
		if message == "" {
			message = resp.StatusText
		}
	}
	return &HTTPError{Op: op, Request: req, Response: resp, Message: message}
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("%s failed: [HTTP %d] %s", e.Op, e.Response.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// JobError reports an async, batch or transaction job in its terminal
// failure state, or a failed interaction with the server-side job API. It
// carries the stored request/response context of the job.
type JobError struct {
	JobID    string
	Request  *Request
	Response *Response
	Message  string
}

// Error implements the error interface.
func (e *JobError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("job %s: [HTTP %d] %s", e.JobID, e.Response.StatusCode, e.Message)
	}
	return fmt.Sprintf("job %s: %s", e.JobID, e.Message)
}

// UsageError reports a violated caller contract, such as reading a
// non-terminal job's result or reusing a committed batch. It is distinct
// from transport and HTTP failures: nothing went wrong on the wire.
type UsageError struct {
	Message string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return "usage error: " + e.Message
}
