// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trino

import "context"

// DefaultMaxPageSize is the MaxPageSize used when ExecuteOptions leaves
// it zero. It is passed to NewPageQueue, which does not check page sizes
// against it.
const DefaultMaxPageSize = 16 * 1024 * 1024

// ExecuteOptions configures the pipeline Execute spawns around a
// statement.
type ExecuteOptions struct {
	// BufferSize is the soft byte budget for queued pages. Zero selects
	// DefaultBufferSize.
	BufferSize int64
	// MaxPageSize is handed to the PageQueue, which records it but does
	// not enforce it. Zero selects DefaultMaxPageSize.
	MaxPageSize int64
	// DiscardResults runs the statement in discard-result mode: the
	// fetcher still drains the continuation chain to FINISHED but never
	// enqueues rows.
	DiscardResults bool
	// ExternalDone, if non-nil, is an external cancellation token
	// observed by the background fetcher.
	ExternalDone <-chan struct{}
	// OnStatus, if non-nil, is invoked once when the statement reaches
	// FINISHED, carrying the terminal stats and error (if any).
	OnStatus func(StatusNotification)
}

// Execute is the top-level entry point: it submits statement with
// params over a fresh StatementClient built from cfg, spawns the
// PageQueue background fetcher, and returns the PageStream the caller
// consumes.
func Execute(ctx context.Context, cfg ClientConfig, statement string, params []any, opts ExecuteOptions) (*PageStream, error) {
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	maxPageSize := opts.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}

	client := NewStatementClient(cfg)
	if _, err := client.SubmitInitial(ctx, statement, params); err != nil {
		return nil, err
	}

	queue, err := NewPageQueue(client, bufferSize, maxPageSize, opts.DiscardResults, opts.ExternalDone, opts.OnStatus)
	if err != nil {
		return nil, err
	}

	stream := NewPageStream(client, queue, opts.DiscardResults)
	queue.StartReadAhead(ctx)
	return stream, nil
}
