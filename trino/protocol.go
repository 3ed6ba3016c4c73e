// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package trino implements the streaming statement-execution core of a
// client for a distributed SQL query engine's paged, HTTP-based
// statement execution protocol: submitting a statement, following the
// chain of server-issued continuation URIs, reassembling typed rows, and
// maintaining session state that mutates via response headers.
package trino

import (
	"encoding/json"
)

// Column describes one projected column of a statement's result set.
type Column struct {
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	TypeSignature TypeSignature `json:"typeSignature"`
}

// TypeSignature is the structured form of Column.Type the server sends
// alongside the raw type string.
type TypeSignature struct {
	RawType   string              `json:"rawType"`
	Arguments []TypeSignatureArgs `json:"arguments,omitempty"`
}

// TypeSignatureArgs is a single argument of a TypeSignature, e.g. Kind
// "TYPE" (nested signature) or "LONG" (numeric literal such as decimal
// precision). The client retains these as received but does not
// interpret them; values are decoded from Column.Type alone.
type TypeSignatureArgs struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// Stats carries the server-reported execution progress for a statement.
type Stats struct {
	State           string  `json:"state"`
	Queued          bool    `json:"queued"`
	Scheduled       bool    `json:"scheduled"`
	Nodes           int     `json:"nodes"`
	TotalSplits     int     `json:"totalSplits"`
	QueuedSplits    int     `json:"queuedSplits"`
	RunningSplits   int     `json:"runningSplits"`
	CompletedSplits int     `json:"completedSplits"`
	CPUTimeMillis   int64   `json:"cpuTimeMillis"`
	WallTimeMillis  int64   `json:"wallTimeMillis"`
	QueuedTimeMillis int64  `json:"queuedTimeMillis"`
	ElapsedTimeMillis int64 `json:"elapsedTimeMillis"`
	ProcessedRows   int64   `json:"processedRows"`
	ProcessedBytes  int64   `json:"processedBytes"`
	PeakMemoryBytes int64   `json:"peakMemoryBytes"`
	SpilledBytes    int64   `json:"spilledBytes"`

	// ProgressPercentage may arrive from the server as the literal JSON
	// string "NaN" before stats become available; it unmarshals to
	// math.NaN() and marshals back to "NaN" (see nanFloat64 below), so
	// that round-tripping this field never fails and never silently loses
	// the "not yet known" signal.
	ProgressPercentage nanFloat64 `json:"progressPercentage"`
}

// nanFloat64 is a float64 whose JSON encoding may be the bare number or
// the string "NaN" — the server emits the latter until progress becomes
// computable. Scenario S6 requires both directions to round-trip.
type nanFloat64 float64

func (n nanFloat64) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if f != f { // NaN
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(f)
}

func (n *nanFloat64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "NaN" {
			*n = nanFloat64(nan())
			return nil
		}
		var f float64
		if pErr := json.Unmarshal([]byte(s), &f); pErr == nil {
			*n = nanFloat64(f)
			return nil
		}
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = nanFloat64(f)
	return nil
}

// Float64 returns the progress percentage as a float64 (possibly NaN).
func (n nanFloat64) Float64() float64 { return float64(n) }

func nan() float64 {
	var zero float64
	return zero / zero
}

// Location identifies a position in the submitted SQL text.
type Location struct {
	LineNumber   int `json:"lineNumber"`
	ColumnNumber int `json:"columnNumber"`
}

// FailureInfo models the server's exception chain: a cause and any
// suppressed exceptions nested below the top-level Error. The server's
// in-memory exception graph can be cyclic; this is modeled as a tree
// since JSON itself cannot encode cycles.
type FailureInfo struct {
	Type           string         `json:"type"`
	Message        string         `json:"message"`
	Location       *Location      `json:"errorLocation,omitempty"`
	Stack          []string       `json:"stack,omitempty"`
	Suppressed     []*FailureInfo `json:"suppressed,omitempty"`
	Cause          *FailureInfo   `json:"cause,omitempty"`
}

// QueryError is the server-reported error object carried on a page.
type QueryError struct {
	Message       string       `json:"message"`
	ErrorCode     int          `json:"errorCode"`
	ErrorName     string       `json:"errorName"`
	ErrorType     string       `json:"errorType"`
	ErrorLocation *Location    `json:"errorLocation,omitempty"`
	FailureInfo   *FailureInfo `json:"failureInfo,omitempty"`
}

// StatementResponse is one page of the continuation chain: zero or more
// rows plus status/stats/schema metadata. Raw row cells are kept as
// json.RawMessage and decoded lazily by the consumer, column by column,
// via internal/codec.
type StatementResponse struct {
	ID       string            `json:"id"`
	Stats    Stats             `json:"stats"`
	Error    *QueryError       `json:"error,omitempty"`
	Columns  []Column          `json:"columns,omitempty"`
	Data     [][]json.RawMessage `json:"data,omitempty"`
	NextURI  string            `json:"nextUri,omitempty"`
	InfoURI  string            `json:"infoUri,omitempty"`
}

// HasMorePages reports whether the continuation chain has another page.
func (r *StatementResponse) HasMorePages() bool { return r != nil && r.NextURI != "" }

// ServerInfo is the optional GET /v1/info collaborator response, useful
// for health checks and version negotiation outside a statement's
// lifecycle.
type ServerInfo struct {
	NodeVersion    string `json:"nodeVersion"`
	Environment    string `json:"environment"`
	Coordinator    bool   `json:"coordinator"`
	Starting       bool   `json:"starting"`
	UptimeSeconds  int64  `json:"uptime,omitempty"`
}
