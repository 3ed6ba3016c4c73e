// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trino

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultBufferSize is the soft byte budget for queued pages: 5 x 10 x
// 1 MiB.
const DefaultBufferSize = 5 * 10 * 1024 * 1024

// PageQueueItem is a decoded page together with the byte length of its
// original encoded form, used as the budget metric.
type PageQueueItem struct {
	Statement *StatementResponse
	SizeBytes int64
}

// StatusNotification is delivered once, when the driving StatementClient
// reaches FINISHED. A statement that ends in CLIENT_ERROR (including a
// server-reported error) or CLIENT_ABORTED produces no notification.
type StatusNotification struct {
	Stats Stats
	Err   error
}

// PageQueue is the background-fetcher / bounded-FIFO half of a
// producer/consumer pipeline: a single producer goroutine advances the
// StatementClient and enqueues pages under a soft byte budget; a single
// consumer (PageStream) drains them.
type PageQueue struct {
	client         *StatementClient
	bufferBudget   int64
	maxPageSize    int64
	discardResults bool
	externalDone   <-chan struct{}
	onStatus       func(StatusNotification)

	startMu sync.Mutex
	started bool
	done    chan struct{}

	mu         sync.Mutex
	queue      []PageQueueItem
	queueBytes int64
	errs       []error

	waitMu   sync.Mutex
	wake     chan struct{}
	waitStep time.Duration

	columnsMu   sync.Mutex
	columns     []Column
	columnsCh   chan struct{}
	columnsOnce sync.Once

	firstDataMu   sync.Mutex
	firstData     bool
	firstDataCh   chan struct{}
	firstDataOnce sync.Once

	externalCancelled bool
	timedOut          bool
}

// NewPageQueue builds a PageQueue. bufferBudget must be strictly
// positive. The budget is a soft limit: a page already in flight is
// enqueued even if it pushes the queue past the budget, so the overshoot
// is at most one page. maxPageSize is recorded on the queue but page
// sizes are not checked against it.
// externalDone, if non-nil, is an external cancellation token; onStatus,
// if non-nil, receives the terminal notification once the statement
// reaches FINISHED.
func NewPageQueue(client *StatementClient, bufferBudget, maxPageSize int64, discardResults bool, externalDone <-chan struct{}, onStatus func(StatusNotification)) (*PageQueue, error) {
	if bufferBudget <= 0 {
		return nil, &ProgrammingError{Msg: "buffer budget must be strictly positive"}
	}
	q := &PageQueue{
		client:         client,
		bufferBudget:   bufferBudget,
		maxPageSize:    maxPageSize,
		discardResults: discardResults,
		externalDone:   externalDone,
		onStatus:       onStatus,
		done:           make(chan struct{}),
		wake:           make(chan struct{}),
		waitStep:       50 * time.Millisecond,
		columnsCh:      make(chan struct{}),
		firstDataCh:    make(chan struct{}),
	}
	// The initial POST (SubmitInitial) runs before any PageQueue exists,
	// so its page's columns and any rows it already carried would
	// otherwise never reach this queue; seed both here.
	if last := client.LastStatement(); last != nil {
		if len(last.Columns) > 0 {
			q.publishColumns(last.Columns)
		}
		if !discardResults && len(last.Data) > 0 {
			q.enqueue(PageQueueItem{Statement: last, SizeBytes: approximateSize(last)})
			q.publishFirstData()
		}
	}
	return q, nil
}

// StartReadAhead idempotently launches the background fetch task; it is
// a no-op if one is already running.
func (q *PageQueue) StartReadAhead(ctx context.Context) {
	q.startMu.Lock()
	defer q.startMu.Unlock()
	if q.started {
		return
	}
	q.started = true
	go q.fetchLoop(ctx)
}

// ShouldReadAhead reports whether the fetch loop should issue another
// Advance: false once the queued bytes reach the buffer budget, the
// backpressure signal that pauses the producer until the consumer
// drains some of the queue.
func (q *PageQueue) ShouldReadAhead() bool {
	if q.client.State() != Running {
		return false
	}
	if last := q.client.LastStatement(); last != nil && !last.HasMorePages() {
		return false
	}
	if q.discardResults {
		return true
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queueBytes < q.bufferBudget
}

// ShouldStop reports whether the fetch loop must halt: external
// cancellation, statement timeout, or a previously captured error.
func (q *PageQueue) ShouldStop() bool {
	select {
	case <-q.externalDone:
		q.recordErrorOnce(&q.externalCancelled, &CancellationError{Reason: "external cancellation token"})
		q.client.Cancel(ReasonUserCancel)
		return true
	default:
	}
	if q.client.IsTimedOut() {
		q.recordErrorOnce(&q.timedOut, &TimeoutError{Elapsed: q.cfgTimeoutString()})
		q.client.Cancel(ReasonTimeout)
		return true
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.errs) > 0
}

func (q *PageQueue) cfgTimeoutString() string {
	if q.client.cfg.Timeout > 0 {
		return q.client.cfg.Timeout.String()
	}
	return "unknown"
}

func (q *PageQueue) recordErrorOnce(flag *bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if *flag {
		return
	}
	*flag = true
	q.errs = append(q.errs, err)
}

func (q *PageQueue) recordError(err error) {
	q.mu.Lock()
	q.errs = append(q.errs, err)
	q.mu.Unlock()
}

// fetchLoop is the sole producer goroutine for this queue's lifetime.
func (q *PageQueue) fetchLoop(ctx context.Context) {
	defer close(q.done)
	for q.ShouldReadAhead() && !q.ShouldStop() {
		page, err := q.client.Advance(ctx)
		if err != nil {
			q.recordError(err)
			q.signalAll()
			break
		}

		if len(page.Columns) > 0 {
			q.publishColumns(page.Columns)
		}

		if !q.discardResults && len(page.Data) > 0 {
			item := PageQueueItem{Statement: page, SizeBytes: approximateSize(page)}
			q.enqueue(item)
			q.publishFirstData()
		}
	}

	if q.client.State() == Finished {
		stats := Stats{}
		if last := q.client.LastStatement(); last != nil {
			stats = last.Stats
		}
		var finishErr error
		if e := q.ThrowIfErrors(); e != nil {
			finishErr = e
		}
		if q.onStatus != nil {
			q.onStatus(StatusNotification{Stats: stats, Err: finishErr})
		}
	}
	q.signalAll()
}

// approximateSize stands in for the encoded response length: summing
// the raw (still JSON-encoded) cell lengths approximates, but does not equal, the bytes the
// server actually sent, making the buffer budget a heuristic rather
// than an exact accounting. Callers that need exact byte accounting
// should capture the length at the transport layer instead.
func approximateSize(page *StatementResponse) int64 {
	n := int64(0)
	for _, row := range page.Data {
		for _, cell := range row {
			n += int64(len(cell))
		}
	}
	return n
}

func (q *PageQueue) enqueue(item PageQueueItem) {
	q.mu.Lock()
	q.queue = append(q.queue, item)
	q.queueBytes += item.SizeBytes
	q.mu.Unlock()
	q.signalAll()
}

func (q *PageQueue) tryDequeue() (PageQueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return PageQueueItem{}, false
	}
	item := q.queue[0]
	q.queue = q.queue[1:]
	q.queueBytes -= item.SizeBytes
	return item, true
}

// signalAll wakes every current waiter on the new-page signal.
func (q *PageQueue) signalAll() {
	q.waitMu.Lock()
	close(q.wake)
	q.wake = make(chan struct{})
	q.waitMu.Unlock()
}

func (q *PageQueue) waitChan() chan struct{} {
	q.waitMu.Lock()
	defer q.waitMu.Unlock()
	return q.wake
}

// DequeueOrNull attempts an immediate, non-blocking dequeue; on miss it waits on the
// new-page signal for a per-call timeout starting at 50ms and growing
// by 100ms on every unsatisfied wait, capped at 10s. Returns (nil, nil)
// on a timed-out miss so the caller (PageStream.Next) can recheck
// errors/termination.
func (q *PageQueue) DequeueOrNull(ctx context.Context) (*PageQueueItem, error) {
	if item, ok := q.tryDequeue(); ok {
		q.resetWait()
		return &item, nil
	}

	wake := q.waitChan()
	wait := q.currentWait()
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-wake:
		if item, ok := q.tryDequeue(); ok {
			q.resetWait()
			return &item, nil
		}
		return nil, nil
	case <-timer.C:
		q.growWait()
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *PageQueue) currentWait() time.Duration {
	q.waitMu.Lock()
	defer q.waitMu.Unlock()
	return q.waitStep
}

func (q *PageQueue) growWait() {
	q.waitMu.Lock()
	defer q.waitMu.Unlock()
	q.waitStep += 100 * time.Millisecond
	if q.waitStep > 10*time.Second {
		q.waitStep = 10 * time.Second
	}
}

func (q *PageQueue) resetWait() {
	q.waitMu.Lock()
	defer q.waitMu.Unlock()
	q.waitStep = 50 * time.Millisecond
}

// ThrowIfErrors aggregates all captured errors into one composite error;
// returns nil if none were captured.
func (q *PageQueue) ThrowIfErrors() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.errs) == 0 {
		return nil
	}
	return errors.Join(q.errs...)
}

func (q *PageQueue) publishColumns(cols []Column) {
	q.columnsMu.Lock()
	if q.columns == nil {
		q.columns = cols
	}
	q.columnsMu.Unlock()
	q.columnsOnce.Do(func() { close(q.columnsCh) })
}

// Columns returns the columns observed so far (nil if none yet) and
// whether they have been set.
func (q *PageQueue) Columns() ([]Column, bool) {
	q.columnsMu.Lock()
	defer q.columnsMu.Unlock()
	return q.columns, q.columns != nil
}

// AwaitColumns blocks until columns are discovered or a stop condition
// applies (errors captured, or the fetch loop has exited without ever
// seeing columns).
func (q *PageQueue) AwaitColumns(ctx context.Context) ([]Column, error) {
	q.StartReadAhead(ctx)
	for {
		if cols, ok := q.Columns(); ok {
			return cols, nil
		}
		select {
		case <-q.columnsCh:
			if cols, ok := q.Columns(); ok {
				return cols, nil
			}
			return nil, nil
		case <-q.done:
			if cols, ok := q.Columns(); ok {
				return cols, nil
			}
			return nil, q.ThrowIfErrors()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *PageQueue) publishFirstData() {
	q.firstDataMu.Lock()
	q.firstData = true
	q.firstDataMu.Unlock()
	q.firstDataOnce.Do(func() { close(q.firstDataCh) })
}

// AwaitFirstData blocks until either data has been observed or the
// fetch loop has stopped (last page reached, or an error/stop
// condition applies).
func (q *PageQueue) AwaitFirstData(ctx context.Context) (bool, error) {
	q.StartReadAhead(ctx)
	q.firstDataMu.Lock()
	seen := q.firstData
	q.firstDataMu.Unlock()
	if seen {
		return true, nil
	}
	select {
	case <-q.firstDataCh:
		return true, nil
	case <-q.done:
		q.firstDataMu.Lock()
		seen = q.firstData
		q.firstDataMu.Unlock()
		return seen, q.ThrowIfErrors()
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Done returns a channel closed once the background fetch task has
// exited, used by PageStream.Dispose to wait for task completion.
func (q *PageQueue) Done() <-chan struct{} { return q.done }

// IsDrained reports whether the queue is empty and no further pages
// will ever arrive.
func (q *PageQueue) IsDrained() bool {
	if q.ShouldReadAhead() {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue) == 0
}
