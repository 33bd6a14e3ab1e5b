package strata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Connection binds the shared transport to one database: it owns the
// ordered host list, the active database name and the credentials, and
// turns endpoint-relative requests into fully addressed physical calls.
//
// A Connection is safe for concurrent use; the pooled transport underneath
// is the only shared resource.
type Connection struct {
	hosts     []string
	dbName    string
	auth      *Auth
	transport Transport
	hostIdx   atomic.Int64
	tokenExp  time.Time
	debugf    func(format string, args ...any)
}

// newConnection validates the credentials and wires a connection for the
// given database. Bearer tokens are inspected (not verified) so an already
// expired token fails fast on the client instead of producing a wall of
// 401 responses.
func newConnection(hosts []string, dbName string, auth *Auth, transport Transport, debugf func(string, ...any)) (*Connection, error) {
	if len(hosts) == 0 {
		return nil, &UsageError{Message: "at least one host endpoint is required"}
	}
	if debugf == nil {
		debugf = func(string, ...any) {}
	}
	c := &Connection{
		hosts:     hosts,
		dbName:    dbName,
		auth:      auth,
		transport: transport,
		debugf:    debugf,
	}
	if auth != nil && auth.Token != "" {
		exp, err := tokenExpiry(auth.Token)
		if err != nil {
			return nil, &UsageError{Message: fmt.Sprintf("invalid bearer token: %v", err)}
		}
		c.tokenExp = exp
	}
	return c, nil
}

// DatabaseName returns the active database name.
func (c *Connection) DatabaseName() string {
	return c.dbName
}

// Username returns the configured basic-auth username, if any.
func (c *Connection) Username() string {
	if c.auth == nil {
		return ""
	}
	return c.auth.Username
}

// SendRequest serializes the request payload, builds the absolute URL for
// the current host, injects credentials and delegates to the transport.
// On a network-level failure it rotates through the remaining hosts before
// giving up.
func (c *Connection) SendRequest(ctx context.Context, req *Request) (*Response, error) {
	if !c.tokenExp.IsZero() && time.Now().After(c.tokenExp) {
		return nil, &UsageError{Message: "bearer token expired at " + c.tokenExp.Format(time.RFC3339)}
	}

	body := req.RawBody
	if body == nil && req.Data != nil {
		encoded, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("encode request payload: %w", err)
		}
		body = encoded
	}

	var lastErr error
	for range c.hosts {
		host := c.hosts[int(c.hostIdx.Load())%len(c.hosts)]
		resp, err := c.transport.Send(ctx, req.Method, c.buildURL(host, req.Endpoint), req.Headers, req.Params, body, c.auth)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		next := c.hostIdx.Add(1)
		c.debugf("host %s unreachable, failing over to %s", host, c.hosts[int(next)%len(c.hosts)])
	}
	return nil, lastErr
}

// buildURL produces the absolute URL for an endpoint-relative path.
// Endpoints starting with "/_db/" already carry their database prefix.
func (c *Connection) buildURL(host, endpoint string) string {
	base := strings.TrimRight(host, "/")
	if strings.HasPrefix(endpoint, "/_db/") {
		return base + endpoint
	}
	return base + "/_db/" + url.PathEscape(c.dbName) + endpoint
}

// Close releases the transport's pooled connections.
func (c *Connection) Close() {
	c.transport.Close()
}

// tokenExpiry extracts the exp claim from a bearer token without verifying
// the signature; verification is the server's job.
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
