package strata

import (
	"log"
	"time"

	"golang.org/x/time/rate"
)

// Config configures a Client. Endpoints is the only required field.
type Config struct {
	// Endpoints are the coordinator URLs, tried in order with failover on
	// network-level failures.
	Endpoints []string

	// Username and Password enable basic authentication.
	Username string
	Password string

	// Token enables bearer-token authentication and takes precedence over
	// basic credentials.
	Token string

	// Timeout bounds each physical attempt. Zero means DefaultRequestTimeout.
	Timeout time.Duration

	// RetryAttempts is the transport's attempt budget per call. Zero
	// means DefaultRetryAttempts.
	RetryAttempts int

	// RateLimit caps outgoing calls per second, client-side. Zero
	// disables rate limiting.
	RateLimit float64

	// RateBurst is the limiter burst size.
	RateBurst int

	// Debug enables per-call trace logging via the standard logger.
	Debug bool
}

// Client is the entry point of the driver. It owns the pooled transport
// shared by every database handle derived from it; Close releases that
// pool. A Client is safe for concurrent use.
type Client struct {
	config    Config
	transport Transport
	auth      *Auth
	debugf    func(format string, args ...any)
}

// NewClient creates a client from the given configuration. The transport
// and its connection pool live until Close is called.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, &UsageError{Message: "config: at least one endpoint is required"}
	}

	debugf := func(string, ...any) {}
	if cfg.Debug {
		debugf = func(format string, args ...any) {
			log.Printf("strata: "+format, args...)
		}
	}

	var auth *Auth
	switch {
	case cfg.Token != "":
		auth = BearerAuth(cfg.Token)
	case cfg.Username != "":
		auth = BasicAuth(cfg.Username, cfg.Password)
	}

	transport := NewHTTPTransport(TransportOptions{
		Timeout:   cfg.Timeout,
		Attempts:  cfg.RetryAttempts,
		RateLimit: rate.Limit(cfg.RateLimit),
		RateBurst: cfg.RateBurst,
		Debugf:    debugf,
	})

	return &Client{
		config:    cfg,
		transport: transport,
		auth:      auth,
		debugf:    debugf,
	}, nil
}

// Database returns a handle for the named database under the default
// execution context.
func (c *Client) Database(name string) (*Database, error) {
	conn, err := newConnection(c.config.Endpoints, name, c.auth, c.transport, c.debugf)
	if err != nil {
		return nil, err
	}
	return &Database{conn: conn, exec: &defaultExecutor{conn: conn}}, nil
}

// Close shuts down the pooled connections. Database handles derived from
// this client must not be used afterwards.
func (c *Client) Close() {
	c.transport.Close()
}
