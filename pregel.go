package strata

import (
	"context"
	"fmt"
	"strconv"

	"evalgo.org/strata/models"
)

// PregelJobOptions are the optional settings of a new graph-algorithm job.
// Nil pointer fields are omitted from the wire body entirely; Params is
// copied before the named options are merged in, so the caller's map is
// never mutated.
type PregelJobOptions struct {
	// Store controls whether the engine writes results back to the
	// database. Defaults to true when nil.
	Store *bool

	// MaxGSS caps the number of global supersteps.
	MaxGSS *int

	// Parallelism is the number of parallel threads per worker.
	Parallelism *int

	// AsyncMode runs supporting algorithms without synchronized global
	// supersteps.
	AsyncMode *bool

	// ResultField names the vertex attribute results are written into.
	ResultField *string

	// Params carries additional algorithm-specific parameters.
	Params map[string]any
}

// Pregel is the API group for distributed graph-algorithm jobs.
type Pregel struct {
	apiGroup
}

// CreateJob starts a new job running the given algorithm on the named
// graph and returns the server-assigned job id.
func (p *Pregel) CreateJob(ctx context.Context, graph, algorithm string, opts *PregelJobOptions) (Result[string], error) {
	if opts == nil {
		opts = &PregelJobOptions{}
	}

	params := make(map[string]any, len(opts.Params)+5)
	for k, v := range opts.Params {
		params[k] = v
	}
	store := true
	if opts.Store != nil {
		store = *opts.Store
	}
	params["store"] = store
	if opts.MaxGSS != nil {
		params["maxGSS"] = *opts.MaxGSS
	}
	if opts.Parallelism != nil {
		params["parallelism"] = *opts.Parallelism
	}
	if opts.AsyncMode != nil {
		params["async"] = *opts.AsyncMode
	}
	if opts.ResultField != nil {
		params["resultField"] = *opts.ResultField
	}

	body := map[string]any{
		"algorithm": algorithm,
		"graphName": graph,
		"params":    params,
	}
	req := NewRequest("post", "/_api/control_pregel", WithJSON(body))

	return executeAs(ctx, p.exec, req, func(resp *Response) (string, error) {
		if !resp.IsSuccess() {
			return "", NewHTTPError("pregel job create", req, resp, "")
		}
		return parseJobID(resp)
	})
}

// Job returns the details of a job.
func (p *Pregel) Job(ctx context.Context, jobID string) (Result[models.PregelJob], error) {
	req := NewRequest("get", "/_api/control_pregel/"+jobID)

	return executeAs(ctx, p.exec, req, func(resp *Response) (models.PregelJob, error) {
		if !resp.IsSuccess() {
			return models.PregelJob{}, NewHTTPError("pregel job get", req, resp, "")
		}
		var job models.PregelJob
		if err := resp.Body(&job); err != nil {
			return models.PregelJob{}, NewHTTPError("pregel job get", req, resp, fmt.Sprintf("decode job details: %v", err))
		}
		return job, nil
	})
}

// DeleteJob cancels and removes a job.
func (p *Pregel) DeleteJob(ctx context.Context, jobID string) (Result[bool], error) {
	req := NewRequest("delete", "/_api/control_pregel/"+jobID)

	return executeAs(ctx, p.exec, req, func(resp *Response) (bool, error) {
		if !resp.IsSuccess() {
			return false, NewHTTPError("pregel job delete", req, resp, "")
		}
		return true, nil
	})
}

// parseJobID reads the bare job id the server answers a job submission
// with. Servers emit it either as a JSON number or a JSON string.
func parseJobID(resp *Response) (string, error) {
	var raw any
	if err := resp.Body(&raw); err != nil {
		return "", NewHTTPError("pregel job create", nil, resp, fmt.Sprintf("decode job id: %v", err))
	}
	switch id := raw.(type) {
	case string:
		return id, nil
	case float64:
		return strconv.FormatInt(int64(id), 10), nil
	default:
		return "", NewHTTPError("pregel job create", nil, resp, fmt.Sprintf("unexpected job id %T", raw))
	}
}
