package strata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intHandler(resp *Response) (int, error) {
	var body struct {
		Result int `json:"result"`
	}
	if err := resp.Body(&body); err != nil {
		return 0, err
	}
	return body.Result, nil
}

func TestAsyncJobPollCompletes(t *testing.T) {
	conn, transport := scriptedConn(t,
		jsonResponse(200, `{"result":9}`, map[string]string{headerAsyncID: "job-1"}))
	job := newAsyncJob(conn, "job-1", NewRequest("get", "/x"), intHandler)

	v, err := job.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	assert.Equal(t, JobDone, job.Status())

	assert.Equal(t, "put", transport.calls[0].method)
	assert.Contains(t, transport.calls[0].url, "/_api/job/job-1")
}

func TestAsyncJobPollMemoized(t *testing.T) {
	conn, transport := scriptedConn(t,
		jsonResponse(200, `{"result":9}`, map[string]string{headerAsyncID: "job-1"}))
	job := newAsyncJob(conn, "job-1", NewRequest("get", "/x"), intHandler)

	_, err := job.Poll(context.Background())
	require.NoError(t, err)
	v, err := job.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	assert.Len(t, transport.calls, 1, "a finished job must not be fetched again")
}

func TestAsyncJobPollStillPending(t *testing.T) {
	conn, _ := scriptedConn(t, jsonResponse(204, "", nil))
	job := newAsyncJob(conn, "job-1", NewRequest("get", "/x"), intHandler)

	_, err := job.Poll(context.Background())
	var jobErr *JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "job-1", jobErr.JobID)
	assert.Equal(t, JobPending, job.Status(), "a pending poll must not advance the state machine")
}

func TestAsyncJobPollUnknownJob(t *testing.T) {
	conn, _ := scriptedConn(t, jsonResponse(404, `{"error":true,"errorMessage":"not found","code":404}`, nil))
	job := newAsyncJob(conn, "job-x", NewRequest("get", "/x"), intHandler)

	_, err := job.Poll(context.Background())
	var jobErr *JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, JobPending, job.Status())
}

func TestAsyncJobPollHandlerFailureIsTerminal(t *testing.T) {
	conn, transport := scriptedConn(t,
		jsonResponse(404, `{"error":true,"errorNum":1924,"code":404}`, map[string]string{headerAsyncID: "job-1"}))
	job := newAsyncJob(conn, "job-1", NewRequest("get", "/x"), func(resp *Response) (int, error) {
		if !resp.IsSuccess() {
			return 0, NewHTTPError("get", nil, resp, "")
		}
		return 0, nil
	})

	_, err := job.Poll(context.Background())
	var jobErr *JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, JobErrored, job.Status())

	// The stored rejection was consumed server-side; the memoized error is
	// returned without another physical call.
	_, err2 := job.Poll(context.Background())
	assert.Equal(t, err, err2)
	assert.Len(t, transport.calls, 1)
}

func TestAsyncJobResultBeforeTerminal(t *testing.T) {
	conn, _ := scriptedConn(t)
	job := newAsyncJob(conn, "job-1", NewRequest("get", "/x"), intHandler)

	_, err := job.Result()
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
}

func TestAsyncJobFetchStatus(t *testing.T) {
	tests := []struct {
		name    string
		resp    *Response
		want    JobStatus
		wantErr bool
	}{
		{"pending", jsonResponse(204, "", nil), JobPending, false},
		{"done", jsonResponse(200, "", nil), JobDone, false},
		{"missing", jsonResponse(404, `{"error":true}`, nil), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _ := scriptedConn(t, tt.resp)
			job := newAsyncJob(conn, "job-1", NewRequest("get", "/x"), intHandler)

			status, err := job.FetchStatus(context.Background())
			if tt.wantErr {
				var jobErr *JobError
				require.ErrorAs(t, err, &jobErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, JobPending, job.Status(), "FetchStatus must not advance the state machine")
		})
	}
}

func TestAsyncJobCancel(t *testing.T) {
	conn, transport := scriptedConn(t, jsonResponse(200, "", nil))
	job := newAsyncJob(conn, "job-1", NewRequest("get", "/x"), intHandler)

	ok, err := job.Cancel(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, transport.calls[0].url, "/_api/job/job-1/cancel")
}

func TestAsyncJobCancelMissing(t *testing.T) {
	conn, _ := scriptedConn(t, jsonResponse(404, `{"error":true}`, nil))
	job := newAsyncJob(conn, "job-1", NewRequest("get", "/x"), intHandler)

	ok, err := job.Cancel(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, ok)

	conn2, _ := scriptedConn(t, jsonResponse(404, `{"error":true}`, nil))
	job2 := newAsyncJob(conn2, "job-1", NewRequest("get", "/x"), intHandler)
	_, err = job2.Cancel(context.Background(), false)
	var jobErr *JobError
	require.ErrorAs(t, err, &jobErr)
}

func TestAsyncJobClear(t *testing.T) {
	conn, transport := scriptedConn(t, jsonResponse(200, "", nil))
	job := newAsyncJob(conn, "job-1", NewRequest("get", "/x"), intHandler)

	ok, err := job.Clear(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "delete", transport.calls[0].method)
}

func TestBatchJobResultBeforeCommit(t *testing.T) {
	job := &BatchJob[int]{slot: &batchSlot{id: "b1", status: JobQueued}}

	_, err := job.Result()
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, JobQueued, job.Status())
}

func TestBatchSlotComplete(t *testing.T) {
	slot := &batchSlot{id: "b1", status: JobQueued, handler: func(resp *Response) (any, error) {
		return resp.StatusCode, nil
	}}
	slot.complete(jsonResponse(201, "{}", nil))

	job := &BatchJob[int]{slot: slot}
	assert.Equal(t, JobCommitted, job.Status())
	v, err := job.Result()
	require.NoError(t, err)
	assert.Equal(t, 201, v)
}

func TestBatchSlotFail(t *testing.T) {
	slot := &batchSlot{id: "b1", status: JobQueued}
	slot.fail(&JobError{JobID: "b1", Message: "batch rejected"})

	job := &BatchJob[string]{slot: slot}
	assert.Equal(t, JobFailed, job.Status())
	_, err := job.Result()
	var jobErr *JobError
	require.ErrorAs(t, err, &jobErr)
}
