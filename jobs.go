package strata

import (
	"context"
	"fmt"
)

// Jobs is the API group administering server-side async jobs: the jobs
// created by executing operations under the async context.
type Jobs struct {
	apiGroup
}

// ListPending returns the ids of queued or running async jobs, up to count
// (server default when count is 0).
func (j *Jobs) ListPending(ctx context.Context, count int) (Result[[]string], error) {
	return j.list(ctx, "pending", count)
}

// ListDone returns the ids of finished async jobs whose results have not
// been retrieved yet.
func (j *Jobs) ListDone(ctx context.Context, count int) (Result[[]string], error) {
	return j.list(ctx, "done", count)
}

func (j *Jobs) list(ctx context.Context, status string, count int) (Result[[]string], error) {
	var opts []RequestOption
	if count > 0 {
		opts = append(opts, WithParams(Params{"count": count}))
	}
	req := NewRequest("get", "/_api/job/"+status, opts...)

	return executeAs(ctx, j.exec, req, func(resp *Response) ([]string, error) {
		if !resp.IsSuccess() {
			return nil, NewHTTPError("job list", req, resp, "")
		}
		var ids []string
		if err := resp.Body(&ids); err != nil {
			return nil, NewHTTPError("job list", req, resp, fmt.Sprintf("decode job ids: %v", err))
		}
		return ids, nil
	})
}

// ClearAll deletes every stored async job result on the server.
func (j *Jobs) ClearAll(ctx context.Context) (Result[bool], error) {
	req := NewRequest("delete", "/_api/job/all")

	return executeAs(ctx, j.exec, req, func(resp *Response) (bool, error) {
		if !resp.IsSuccess() {
			return false, NewHTTPError("job clear", req, resp, "")
		}
		return true, nil
	})
}
