// Package models contains the wire-level data structures exchanged with
// the database server.
package models

// PregelJob describes the server-side state of one distributed
// graph-algorithm job.
type PregelJob struct {
	// ID is the server-assigned job id.
	ID string `json:"id"`

	// Algorithm is the algorithm name (e.g. "pagerank").
	Algorithm string `json:"algorithm,omitempty"`

	// State is the job state reported by the server, e.g. "running",
	// "done" or "canceled".
	State string `json:"state"`

	// GSS is the number of global supersteps executed so far.
	GSS int `json:"gss"`

	// VertexCount and EdgeCount size the loaded graph.
	VertexCount int64 `json:"vertexCount,omitempty"`
	EdgeCount   int64 `json:"edgeCount,omitempty"`

	// Created is the job creation timestamp as reported by the server.
	Created string `json:"created,omitempty"`

	// TTL is how long the job state is retained after completion, in
	// seconds.
	TTL float64 `json:"ttl,omitempty"`

	// StartupTime, ComputationTime and TotalRuntime are phase durations
	// in seconds.
	StartupTime     float64 `json:"startupTime,omitempty"`
	ComputationTime float64 `json:"computationTime,omitempty"`
	TotalRuntime    float64 `json:"totalRuntime,omitempty"`
}
