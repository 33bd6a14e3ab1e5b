package strata

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Response is the parsed outcome of one physical call. The raw body is
// always captured verbatim, even for error statuses; typed access to the
// body is derived on demand and never stored eagerly.
type Response struct {
	// Method is the HTTP method of the originating request, lowercase.
	Method string

	// URL is the absolute URL the call was sent to.
	URL string

	// Headers are the response headers as received.
	Headers http.Header

	// StatusCode is the numeric HTTP status.
	StatusCode int

	// StatusText is the status line text (e.g. "OK").
	StatusText string

	// RawBody is the response body exactly as received.
	RawBody []byte

	errOnce sync.Once
	errBody *serverError
}

// serverError is the structured error document the server attaches to
// failed calls.
type serverError struct {
	Error        bool   `json:"error"`
	ErrorMessage string `json:"errorMessage"`
	ErrorNum     int    `json:"errorNum"`
	Code         int    `json:"code"`
}

// IsSuccess reports whether the status code is in the 2xx range.
// Classification beyond that is left to response handlers.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Body decodes the raw body into v.
func (r *Response) Body(v any) error {
	return json.Unmarshal(r.RawBody, v)
}

// ErrorCode returns the server-side error number from the error document,
// or 0 if the body carries none. The body is parsed at most once.
func (r *Response) ErrorCode() int {
	r.parseError()
	if r.errBody == nil {
		return 0
	}
	return r.errBody.ErrorNum
}

// ErrorMessage returns the server-side error message from the error
// document, or "" if the body carries none.
func (r *Response) ErrorMessage() string {
	r.parseError()
	if r.errBody == nil {
		return ""
	}
	return r.errBody.ErrorMessage
}

func (r *Response) parseError() {
	r.errOnce.Do(func() {
		var se serverError
		if err := json.Unmarshal(r.RawBody, &se); err == nil && se.Error {
			r.errBody = &se
		}
	})
}
