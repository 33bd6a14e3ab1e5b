package strata

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Default transport policy, matching the reference behavior of the wire
// protocol: three attempts, 60 second per-attempt timeout, exponential
// backoff on transient statuses.
const (
	DefaultRequestTimeout = 60 * time.Second
	DefaultRetryAttempts  = 3
)

// retryStatuses are the response statuses considered transient. A final
// response with any other status is returned as-is, never retried.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Auth carries the credentials injected into each physical call. Either
// Username/Password (basic) or Token (bearer) is set.
type Auth struct {
	Username string
	Password string
	Token    string
}

// BasicAuth returns basic credentials.
func BasicAuth(username, password string) *Auth {
	return &Auth{Username: username, Password: password}
}

// BearerAuth returns bearer-token credentials.
func BearerAuth(token string) *Auth {
	return &Auth{Token: token}
}

// Transport performs one logical HTTP exchange, retrying transparently on
// transient failures. Implementations must be safe for concurrent use.
type Transport interface {
	// Send delivers one call. It returns a *Response for every completed
	// exchange regardless of status, and a *TransportError only for
	// network-level failures that exhausted the retry budget.
	Send(ctx context.Context, method, rawURL string, headers map[string]string, params map[string]string, body []byte, auth *Auth) (*Response, error)

	// Close releases the pooled connections owned by the transport.
	Close()
}

// TransportOptions configures an HTTPTransport.
type TransportOptions struct {
	// Timeout bounds each physical attempt. Zero means DefaultRequestTimeout.
	Timeout time.Duration

	// Attempts is the maximum number of physical attempts per Send.
	// Zero means DefaultRetryAttempts.
	Attempts int

	// BackoffInitial is the first retry delay. Zero means the backoff
	// library default.
	BackoffInitial time.Duration

	// RateLimit caps outgoing calls per second across all users of the
	// transport. Zero disables client-side rate limiting.
	RateLimit rate.Limit

	// RateBurst is the limiter burst size; only meaningful with RateLimit.
	RateBurst int

	// Debugf, when set, receives per-attempt trace lines.
	Debugf func(format string, args ...any)
}

// HTTPTransport is the default Transport on net/http. It owns the pooled
// http.Client shared by every connection of a client.
type HTTPTransport struct {
	client         *http.Client
	attempts       int
	backoffInitial time.Duration
	limiter        *rate.Limiter
	debugf         func(format string, args ...any)
}

// NewHTTPTransport creates a transport with the given options.
func NewHTTPTransport(opts TransportOptions) *HTTPTransport {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.RateLimit, burst)
	}
	debugf := opts.Debugf
	if debugf == nil {
		debugf = func(string, ...any) {}
	}
	return &HTTPTransport{
		client:         &http.Client{Timeout: timeout},
		attempts:       attempts,
		backoffInitial: opts.BackoffInitial,
		limiter:        limiter,
		debugf:         debugf,
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, method, rawURL string, headers map[string]string, params map[string]string, body []byte, auth *Auth) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Attempts: 0, Err: err}
		}
	}

	fullURL := rawURL
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		fullURL = rawURL + "?" + values.Encode()
	}

	bo := backoff.NewExponentialBackOff()
	if t.backoffInitial > 0 {
		bo.InitialInterval = t.backoffInitial
	}

	var resp *Response
	var lastErr error
	attempt := 0
	for attempt = 1; attempt <= t.attempts; attempt++ {
		resp, lastErr = t.sendOnce(ctx, method, fullURL, headers, body, auth)
		if lastErr == nil && !retryStatuses[resp.StatusCode] {
			return resp, nil
		}
		if attempt == t.attempts {
			break
		}
		wait := bo.NextBackOff()
		t.debugf("transient failure on %s %s (attempt %d/%d), retrying in %s", method, fullURL, attempt, t.attempts, wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &TransportError{Attempts: attempt, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	if lastErr != nil {
		return nil, &TransportError{Attempts: t.attempts, Err: lastErr}
	}
	// The final attempt produced a transient status; surface it as a
	// normal response and let the handler classify it.
	return resp, nil
}

// sendOnce performs a single physical attempt and captures the full reply.
// The body is always read to completion so the pooled connection can be
// reused.
func (t *HTTPTransport) sendOnce(ctx context.Context, method, fullURL string, headers map[string]string, body []byte, auth *Auth) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, httpMethod(method), fullURL, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if auth != nil {
		switch {
		case auth.Token != "":
			req.Header.Set("Authorization", "Bearer "+auth.Token)
		case auth.Username != "":
			req.SetBasicAuth(auth.Username, auth.Password)
		}
	}

	res, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		Method:     method,
		URL:        fullURL,
		Headers:    res.Header,
		StatusCode: res.StatusCode,
		StatusText: http.StatusText(res.StatusCode),
		RawBody:    raw,
	}, nil
}

// Close implements Transport.
func (t *HTTPTransport) Close() {
	t.client.CloseIdleConnections()
}

// httpMethod maps the lowercase method of a Request to the canonical form
// net/http expects.
func httpMethod(method string) string {
	switch method {
	case "get":
		return http.MethodGet
	case "post":
		return http.MethodPost
	case "put":
		return http.MethodPut
	case "patch":
		return http.MethodPatch
	case "delete":
		return http.MethodDelete
	case "head":
		return http.MethodHead
	default:
		return strings.ToUpper(method)
	}
}
