// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trino

import (
	"context"
	"sync/atomic"

	"github.com/paulhatch/trino-go/internal/codec"
)

// Row is one decoded result row, column-aligned with DecodedPage.Columns.
type Row []any

// DecodedPage is one page's rows, decoded according to the schema
// observed on (possibly) an earlier page.
type DecodedPage struct {
	Columns []Column
	Rows    []Row
}

// PageStream is the single-consumer iterator over a statement's result
// pages. Exactly one goroutine may call Next at a time.
type PageStream struct {
	client         *StatementClient
	queue          *PageQueue
	discardResults bool

	consuming atomic.Bool

	columns   []Column
	current   DecodedPage
	lastStats Stats
}

// NewPageStream wires a StatementClient and its PageQueue into a
// consumer-facing iterator.
func NewPageStream(client *StatementClient, queue *PageQueue, discardResults bool) *PageStream {
	return &PageStream{client: client, queue: queue, discardResults: discardResults}
}

// Current returns the page decoded by the most recent successful Next.
func (s *PageStream) Current() DecodedPage { return s.current }

// LastStats returns the stats carried by the page most recently returned
// by Next. Pages without rows are never queued, so their stats are not
// reflected here.
func (s *PageStream) LastStats() Stats { return s.lastStats }

// LastStatement returns the raw page most recently observed by the
// driving StatementClient, which may be ahead of Current if the fetch
// loop has read further than the consumer.
func (s *PageStream) LastStatement() *StatementResponse { return s.client.LastStatement() }

// IsFinished reports whether the stream has nothing left to yield: the
// statement reached FINISHED, the queue is drained, and no further
// pages remain.
func (s *PageStream) IsFinished() bool {
	if s.discardResults {
		return s.client.State() == Finished
	}
	last := s.client.LastStatement()
	return s.client.State() == Finished && s.queue.IsDrained() && (last == nil || !last.HasMorePages())
}

// Next advances to the next page, blocking until one is available or
// the stream is finished/errored. Concurrent calls to Next fail with a
// ProgrammingError; only one call proceeds.
func (s *PageStream) Next(ctx context.Context) (bool, error) {
	if !s.consuming.CompareAndSwap(false, true) {
		return false, &ProgrammingError{Msg: "concurrent Next calls on PageStream"}
	}
	defer s.consuming.Store(false)

	if err := s.queue.ThrowIfErrors(); err != nil {
		return false, err
	}
	if s.IsFinished() {
		return false, nil
	}
	s.queue.StartReadAhead(ctx)

	for {
		item, err := s.queue.DequeueOrNull(ctx)
		if err != nil {
			return false, err
		}
		if item != nil {
			if len(item.Statement.Columns) > 0 {
				s.columns = item.Statement.Columns
			}
			decoded, err := decodePage(item.Statement, s.columns)
			if err != nil {
				return false, err
			}
			s.current = decoded
			s.lastStats = item.Statement.Stats
			return true, nil
		}
		if err := s.queue.ThrowIfErrors(); err != nil {
			return false, err
		}
		if s.IsFinished() {
			return false, nil
		}
	}
}

// WaitForColumns starts read-ahead (if not already running) and waits
// for the columns-discovered signal; it may be called after
// cancellation to retrieve schema recorded on an earlier page.
func (s *PageStream) WaitForColumns(ctx context.Context) ([]Column, error) {
	return s.queue.AwaitColumns(ctx)
}

// HasData reports whether any data-bearing page has been observed; it
// always returns false in discard-result mode.
func (s *PageStream) HasData(ctx context.Context) (bool, error) {
	if s.discardResults {
		return false, nil
	}
	return s.queue.AwaitFirstData(ctx)
}

// Dispose cancels the statement (if still running) and waits for the
// background fetch task to terminate, guaranteeing resource cleanup.
func (s *PageStream) Dispose(ctx context.Context) error {
	if s.client.State() == Running {
		s.client.Cancel(ReasonUserCancel)
	}
	select {
	case <-s.queue.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// ReadToEnd drains all remaining pages, invoking fn for each, until the
// stream finishes or errors.
func (s *PageStream) ReadToEnd(ctx context.Context, fn func(DecodedPage) error) error {
	for {
		ok, err := s.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if fn != nil {
			if err := fn(s.current); err != nil {
				return err
			}
		}
	}
}

// decodePage decodes every raw cell in page according to knownColumns'
// type signatures. Columns appear on at least one page before any data
// page and never change thereafter, so the caller carries the
// last-seen schema forward for pages that omit it.
func decodePage(page *StatementResponse, knownColumns []Column) (DecodedPage, error) {
	out := DecodedPage{Columns: knownColumns, Rows: make([]Row, 0, len(page.Data))}
	sigs := make([]codec.Signature, len(knownColumns))
	for i, col := range knownColumns {
		sig, err := codec.ParseSignature(col.Type)
		if err != nil {
			return DecodedPage{}, &DecodeError{Column: col.Name, Err: err}
		}
		sigs[i] = sig
	}
	for _, rawRow := range page.Data {
		row := make(Row, len(rawRow))
		for i, cell := range rawRow {
			colName := ""
			if i < len(knownColumns) {
				colName = knownColumns[i].Name
			}
			if i >= len(sigs) {
				return DecodedPage{}, &DecodeError{Column: colName, Err: errNoColumnSchema}
			}
			val, err := codec.ParseValue(cell)
			if err != nil {
				return DecodedPage{}, &DecodeError{Column: colName, Err: err}
			}
			decoded, err := codec.Decode(val, sigs[i])
			if err != nil {
				return DecodedPage{}, &DecodeError{Column: colName, Err: err}
			}
			row[i] = decoded
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

var errNoColumnSchema = &ProgrammingError{Msg: "data page arrived before any columns were observed"}
