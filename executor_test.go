package strata

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptTransport answers each call with the next canned response, repeating
// the last one once the script runs out.
type scriptTransport struct {
	calls  []recordedCall
	script []*Response
}

func (s *scriptTransport) Send(ctx context.Context, method, rawURL string, headers map[string]string, params map[string]string, body []byte, auth *Auth) (*Response, error) {
	s.calls = append(s.calls, recordedCall{method, rawURL, headers, params, body, auth})
	if len(s.script) == 0 {
		return &Response{StatusCode: 200, RawBody: []byte(`{}`)}, nil
	}
	resp := s.script[0]
	if len(s.script) > 1 {
		s.script = s.script[1:]
	}
	return resp, nil
}

func (s *scriptTransport) Close() {}

func scriptedConn(t *testing.T, script ...*Response) (*Connection, *scriptTransport) {
	t.Helper()
	transport := &scriptTransport{script: script}
	conn, err := newConnection([]string{"http://db1:8529"}, "test", nil, transport, nil)
	require.NoError(t, err)
	return conn, transport
}

func jsonResponse(status int, body string, headers map[string]string) *Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &Response{
		Headers:    h,
		StatusCode: status,
		StatusText: http.StatusText(status),
		RawBody:    []byte(body),
	}
}

func TestDefaultExecutorAppliesHandler(t *testing.T) {
	conn, _ := scriptedConn(t, jsonResponse(200, `{"result":7}`, nil))
	ex := &defaultExecutor{conn: conn}
	assert.Equal(t, ContextDefault, ex.ExecutionContext())

	res, err := executeAs(context.Background(), ex, NewRequest("get", "/x"), func(resp *Response) (int, error) {
		var body struct {
			Result int `json:"result"`
		}
		if err := resp.Body(&body); err != nil {
			return 0, err
		}
		return body.Result, nil
	})
	require.NoError(t, err)
	require.Equal(t, ResultValue, res.Kind())
	v, err := res.Value()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestDefaultExecutorPropagatesHandlerError(t *testing.T) {
	conn, _ := scriptedConn(t, jsonResponse(404, `{"error":true,"errorNum":1924}`, nil))
	ex := &defaultExecutor{conn: conn}

	boom := errors.New("not found")
	_, err := executeAs(context.Background(), ex, NewRequest("get", "/x"), func(resp *Response) (int, error) {
		if !resp.IsSuccess() {
			return 0, boom
		}
		return 1, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestAsyncExecutorMarksRequestAndReturnsJob(t *testing.T) {
	conn, transport := scriptedConn(t,
		jsonResponse(202, "", map[string]string{headerAsyncID: "job-1"}))
	ex := &asyncExecutor{conn: conn, returnResult: true}
	assert.Equal(t, ContextAsync, ex.ExecutionContext())

	req := NewRequest("get", "/x")
	res, err := executeAs(context.Background(), ex, req, func(*Response) (int, error) { return 1, nil })
	require.NoError(t, err)

	require.Equal(t, ResultAsync, res.Kind())
	job, err := res.Async()
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID())
	assert.Equal(t, JobPending, job.Status())

	require.Len(t, transport.calls, 1)
	assert.Equal(t, "store", transport.calls[0].headers[headerAsync])
	assert.Empty(t, req.Headers[headerAsync], "the caller's request must not be mutated")
}

func TestAsyncExecutorFireAndForget(t *testing.T) {
	conn, transport := scriptedConn(t, jsonResponse(202, "", nil))
	ex := &asyncExecutor{conn: conn, returnResult: false}

	res, err := executeAs(context.Background(), ex, NewRequest("get", "/x"), func(*Response) (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, ResultEmpty, res.Kind())
	assert.Equal(t, "true", transport.calls[0].headers[headerAsync])
}

func TestAsyncExecutorRejectedSubmission(t *testing.T) {
	conn, _ := scriptedConn(t, jsonResponse(401, `{"error":true,"code":401}`, nil))
	ex := &asyncExecutor{conn: conn, returnResult: true}

	_, err := executeAs(context.Background(), ex, NewRequest("get", "/x"), func(*Response) (int, error) { return 1, nil })
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 401, httpErr.Response.StatusCode)
}

func TestAsyncExecutorMissingJobID(t *testing.T) {
	conn, _ := scriptedConn(t, jsonResponse(202, "", nil))
	ex := &asyncExecutor{conn: conn, returnResult: true}

	_, err := executeAs(context.Background(), ex, NewRequest("get", "/x"), func(*Response) (int, error) { return 1, nil })
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Contains(t, httpErr.Error(), "no job id")
}
