package strata

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// batchContentType is the content type of one embedded call inside a
// multipart batch envelope.
const batchContentType = "application/x-strata-batchpart"

// batchExecutor queues operations client-side and flushes them as one
// multipart call. The queue is append-only until Commit, which drains it
// exactly once; correlation between queued jobs and sub-responses is
// purely positional.
//
// A batch executor is owned by one goroutine at a time. Callers that need
// concurrent batching must use separate executors.
type batchExecutor struct {
	conn      *Connection
	queue     []*batchSlot
	committed bool
}

func (e *batchExecutor) ExecutionContext() string { return ContextBatch }

func (e *batchExecutor) Execute(ctx context.Context, req *Request, handler rawHandler) (*execResult, error) {
	if e.committed {
		return nil, &UsageError{Message: "batch already committed; begin a new batch"}
	}
	slot := &batchSlot{
		id:      uuid.NewString(),
		req:     req,
		handler: handler,
		status:  JobQueued,
	}
	e.queue = append(e.queue, slot)
	return &execResult{kind: ResultBatch, slot: slot}, nil
}

// Commit bundles every queued request into one multipart call, sends it,
// and demultiplexes the reply back onto the queued jobs in enqueue order.
func (e *batchExecutor) Commit(ctx context.Context) error {
	if e.committed {
		return &UsageError{Message: "batch already committed"}
	}
	e.committed = true
	if len(e.queue) == 0 {
		return nil
	}

	body, contentType, err := encodeBatch(e.conn.DatabaseName(), e.queue)
	if err != nil {
		e.failAll(err)
		return err
	}
	req := NewRequest("post", "/_api/batch", WithRawBody(contentType, body))
	resp, err := e.conn.SendRequest(ctx, req)
	if err != nil {
		e.failAll(err)
		return err
	}
	if !resp.IsSuccess() {
		httpErr := NewHTTPError("batch commit", req, resp, "")
		e.failAll(httpErr)
		return httpErr
	}

	parts, err := decodeBatch(resp)
	if err != nil {
		e.failAll(err)
		return err
	}
	if len(parts) != len(e.queue) {
		mismatch := NewHTTPError("batch commit", req, resp,
			fmt.Sprintf("expected %d sub-responses, got %d", len(e.queue), len(parts)))
		e.failAll(mismatch)
		return mismatch
	}

	for i, slot := range e.queue {
		sub := parts[i]
		sub.Method = slot.req.Method
		sub.URL = slot.req.Endpoint
		slot.complete(sub)
	}
	return nil
}

func (e *batchExecutor) failAll(cause error) {
	for _, slot := range e.queue {
		if slot.status == JobQueued {
			slot.fail(&JobError{JobID: slot.id, Request: slot.req, Message: cause.Error()})
		}
	}
}

// encodeBatch renders the queued requests as a multipart envelope. Each
// part embeds one HTTP call addressed relative to the server root; the
// Content-Id header is informational only, order is what correlates parts.
func encodeBatch(dbName string, slots []*batchSlot) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.SetBoundary("strata-batch-" + uuid.NewString()); err != nil {
		return nil, "", err
	}

	for _, slot := range slots {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", batchContentType)
		header.Set("Content-Id", slot.id)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}

		path := "/_db/" + url.PathEscape(dbName) + slot.req.Endpoint
		if len(slot.req.Params) > 0 {
			values := url.Values{}
			for k, v := range slot.req.Params {
				values.Set(k, v)
			}
			path += "?" + values.Encode()
		}
		fmt.Fprintf(part, "%s %s HTTP/1.1\r\n\r\n", httpMethod(slot.req.Method), path)

		if slot.req.RawBody != nil {
			part.Write(slot.req.RawBody)
		} else if slot.req.Data != nil {
			encoded, err := json.Marshal(slot.req.Data)
			if err != nil {
				return nil, "", fmt.Errorf("encode batch part %s: %w", slot.id, err)
			}
			part.Write(encoded)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "multipart/form-data; boundary=" + writer.Boundary(), nil
}

// decodeBatch splits the multipart reply into per-operation responses,
// preserving wire order.
func decodeBatch(resp *Response) ([]*Response, error) {
	_, mediaParams, err := mime.ParseMediaType(resp.Headers.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("parse batch reply content type: %w", err)
	}
	boundary, ok := mediaParams["boundary"]
	if !ok {
		return nil, fmt.Errorf("batch reply carries no multipart boundary")
	}

	var parts []*Response
	reader := multipart.NewReader(bytes.NewReader(resp.RawBody), boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read batch reply part: %w", err)
		}
		raw, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("read batch reply part: %w", err)
		}
		sub, err := parseEmbeddedResponse(raw)
		if err != nil {
			return nil, err
		}
		parts = append(parts, sub)
	}
	return parts, nil
}

// parseEmbeddedResponse parses one embedded HTTP reply of the form
// "HTTP/1.1 <code> <text>\r\n<headers>\r\n\r\n<body>".
func parseEmbeddedResponse(raw []byte) (*Response, error) {
	reader := bufio.NewReader(bytes.NewReader(raw))
	statusLine, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("malformed batch sub-response: %w", err)
	}
	fields := strings.SplitN(strings.TrimSpace(statusLine), " ", 3)
	if len(fields) < 2 {
		return nil, fmt.Errorf("malformed batch sub-response status line %q", statusLine)
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("malformed batch sub-response status %q", fields[1])
	}
	statusText := http.StatusText(code)
	if len(fields) == 3 {
		statusText = fields[2]
	}

	mimeHeader, err := textproto.NewReader(reader).ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("malformed batch sub-response headers: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read batch sub-response body: %w", err)
	}

	return &Response{
		Headers:    http.Header(mimeHeader),
		StatusCode: code,
		StatusText: statusText,
		RawBody:    body,
	}, nil
}
