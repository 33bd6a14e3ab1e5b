package strata

import (
	"fmt"
	"strconv"
	"strings"
)

// Headers holds HTTP header values keyed by lowercase header name.
type Headers map[string]string

// Params holds query parameters before normalization. Values may be any
// scalar type; they are stringified when the request is constructed.
type Params map[string]any

// Request describes one API call against the server. Instances are built
// with NewRequest and must not be modified afterwards; all header and
// parameter normalization happens exactly once, during construction.
type Request struct {
	// Method is the HTTP method in lowercase (e.g. "post").
	Method string

	// Endpoint is the database-relative API endpoint (e.g. "/_api/control_pregel").
	Endpoint string

	// Headers are the normalized request headers. Keys are lowercase and
	// the defaults (charset, content-type) are always present unless
	// overridden by the caller.
	Headers Headers

	// Params are the normalized query parameters. Booleans are rendered
	// as "1"/"0", all other scalars are stringified.
	Params map[string]string

	// Data is the JSON-serializable request payload, or nil.
	Data any

	// RawBody is a pre-encoded payload (e.g. a multipart envelope). When
	// set it takes precedence over Data.
	RawBody []byte

	// Read, Write and Exclusive name the collections locked by this
	// operation when it runs inside a transaction.
	Read      []string
	Write     []string
	Exclusive []string

	// Deserialize reports whether the response body is expected to be
	// JSON that handlers may decode.
	Deserialize bool
}

// RequestOption customizes a Request during construction.
type RequestOption func(*Request)

// WithHeaders merges the given headers into the request. Keys are
// lowercased; caller values override the defaults.
func WithHeaders(h Headers) RequestOption {
	return func(r *Request) {
		for k, v := range h {
			r.Headers[strings.ToLower(k)] = v
		}
	}
}

// WithParams sets the query parameters of the request.
func WithParams(p Params) RequestOption {
	return func(r *Request) {
		for k, v := range p {
			r.Params[k] = normalizeParamValue(v)
		}
	}
}

// WithJSON sets the JSON payload of the request.
func WithJSON(data any) RequestOption {
	return func(r *Request) { r.Data = data }
}

// WithRawBody sets a pre-encoded payload and its content type. Used for
// multipart batch envelopes.
func WithRawBody(contentType string, body []byte) RequestOption {
	return func(r *Request) {
		r.RawBody = body
		r.Headers["content-type"] = contentType
	}
}

// WithReadLocks declares collections read by this operation inside a
// transaction.
func WithReadLocks(collections ...string) RequestOption {
	return func(r *Request) { r.Read = collections }
}

// WithWriteLocks declares collections written by this operation inside a
// transaction with shared access.
func WithWriteLocks(collections ...string) RequestOption {
	return func(r *Request) { r.Write = collections }
}

// WithExclusiveLocks declares collections written by this operation inside
// a transaction with exclusive access.
func WithExclusiveLocks(collections ...string) RequestOption {
	return func(r *Request) { r.Exclusive = collections }
}

// WithoutDeserialize marks the response body as opaque so handlers will not
// attempt to decode it.
func WithoutDeserialize() RequestOption {
	return func(r *Request) { r.Deserialize = false }
}

// NewRequest constructs a fully normalized Request. The default headers
// (charset utf-8, content-type application/json) are always present unless
// an option overrides them, and the parameter map is never nil.
func NewRequest(method, endpoint string, opts ...RequestOption) *Request {
	r := &Request{
		Method:   strings.ToLower(method),
		Endpoint: endpoint,
		Headers: Headers{
			"charset":      "utf-8",
			"content-type": "application/json",
		},
		Params:      map[string]string{},
		Deserialize: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// normalizeParamValue renders one query parameter value as it appears on
// the wire. Booleans become "1"/"0" to match the server's parser.
func normalizeParamValue(v any) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "1"
		}
		return "0"
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
