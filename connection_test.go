package strata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport captures every physical call and answers from a script
// of canned responses or errors.
type recordingTransport struct {
	calls []recordedCall
	resp  *Response
	errs  []error
}

type recordedCall struct {
	method  string
	url     string
	headers map[string]string
	params  map[string]string
	body    []byte
	auth    *Auth
}

func (r *recordingTransport) Send(ctx context.Context, method, rawURL string, headers map[string]string, params map[string]string, body []byte, auth *Auth) (*Response, error) {
	r.calls = append(r.calls, recordedCall{method, rawURL, headers, params, body, auth})
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if r.resp != nil {
		return r.resp, nil
	}
	return &Response{StatusCode: 200, RawBody: []byte(`{}`)}, nil
}

func (r *recordingTransport) Close() {}

func newTestConnection(t *testing.T, transport Transport, hosts ...string) *Connection {
	t.Helper()
	if len(hosts) == 0 {
		hosts = []string{"http://db1:8529"}
	}
	conn, err := newConnection(hosts, "test", BasicAuth("root", ""), transport, nil)
	require.NoError(t, err)
	return conn
}

func TestConnectionBuildURL(t *testing.T) {
	transport := &recordingTransport{}
	conn := newTestConnection(t, transport)

	_, err := conn.SendRequest(context.Background(), NewRequest("get", "/_api/version"))
	require.NoError(t, err)
	require.Len(t, transport.calls, 1)
	assert.Equal(t, "http://db1:8529/_db/test/_api/version", transport.calls[0].url)
}

func TestConnectionBuildURLEscapesDatabaseName(t *testing.T) {
	transport := &recordingTransport{}
	conn, err := newConnection([]string{"http://db1:8529/"}, "my db", nil, transport, nil)
	require.NoError(t, err)

	_, err = conn.SendRequest(context.Background(), NewRequest("get", "/_api/version"))
	require.NoError(t, err)
	assert.Equal(t, "http://db1:8529/_db/my%20db/_api/version", transport.calls[0].url)
}

func TestConnectionAbsoluteEndpointPassedThrough(t *testing.T) {
	transport := &recordingTransport{}
	conn := newTestConnection(t, transport)

	_, err := conn.SendRequest(context.Background(), NewRequest("get", "/_db/other/_api/version"))
	require.NoError(t, err)
	assert.Equal(t, "http://db1:8529/_db/other/_api/version", transport.calls[0].url)
}

func TestConnectionSerializesData(t *testing.T) {
	transport := &recordingTransport{}
	conn := newTestConnection(t, transport)

	req := NewRequest("post", "/_api/gharial", WithJSON(map[string]any{"name": "g"}))
	_, err := conn.SendRequest(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"g"}`, string(transport.calls[0].body))
}

func TestConnectionRawBodyWinsOverData(t *testing.T) {
	transport := &recordingTransport{}
	conn := newTestConnection(t, transport)

	req := NewRequest("post", "/_api/batch", WithRawBody("multipart/form-data; boundary=b", []byte("raw")))
	_, err := conn.SendRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "raw", string(transport.calls[0].body))
}

func TestConnectionPassesCredentials(t *testing.T) {
	transport := &recordingTransport{}
	conn := newTestConnection(t, transport)

	_, err := conn.SendRequest(context.Background(), NewRequest("get", "/_api/version"))
	require.NoError(t, err)
	require.NotNil(t, transport.calls[0].auth)
	assert.Equal(t, "root", transport.calls[0].auth.Username)
}

func TestConnectionHostFailover(t *testing.T) {
	transport := &recordingTransport{
		errs: []error{errors.New("connection refused"), nil},
	}
	conn := newTestConnection(t, transport, "http://db1:8529", "http://db2:8529")

	resp, err := conn.SendRequest(context.Background(), NewRequest("get", "/_api/version"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	require.Len(t, transport.calls, 2)
	assert.Contains(t, transport.calls[0].url, "db1")
	assert.Contains(t, transport.calls[1].url, "db2")
}

func TestConnectionAllHostsDown(t *testing.T) {
	boom := errors.New("connection refused")
	transport := &recordingTransport{errs: []error{boom, boom}}
	conn := newTestConnection(t, transport, "http://db1:8529", "http://db2:8529")

	_, err := conn.SendRequest(context.Background(), NewRequest("get", "/_api/version"))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, transport.calls, 2)
}

func TestConnectionRejectsExpiredToken(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	token, err := expired.SignedString([]byte("test-key"))
	require.NoError(t, err)

	conn, err := newConnection([]string{"http://db1:8529"}, "test", BearerAuth(token), &recordingTransport{}, nil)
	require.NoError(t, err, "construction inspects but does not reject expired tokens")

	_, err = conn.SendRequest(context.Background(), NewRequest("get", "/_api/version"))
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Message, "expired")
}

func TestConnectionRejectsMalformedToken(t *testing.T) {
	_, err := newConnection([]string{"http://db1:8529"}, "test", BearerAuth("not-a-jwt"), &recordingTransport{}, nil)
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
}

func TestConnectionTokenWithoutExpiryAccepted(t *testing.T) {
	open := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iss": "tests"})
	token, err := open.SignedString([]byte("test-key"))
	require.NoError(t, err)

	transport := &recordingTransport{}
	conn, err := newConnection([]string{"http://db1:8529"}, "test", BearerAuth(token), transport, nil)
	require.NoError(t, err)

	_, err = conn.SendRequest(context.Background(), NewRequest("get", "/_api/version"))
	require.NoError(t, err)
}
