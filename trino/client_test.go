// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trino

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulhatch/trino-go/internal/codec"
)

func newTestClientConfig(t *testing.T, serverURL string, timeout time.Duration) ClientConfig {
	t.Helper()
	session, err := NewSessionState(SessionProperties{User: "tester"}, false)
	if err != nil {
		t.Fatal(err)
	}
	return ClientConfig{
		ServerURL: serverURL,
		Transport: NewHTTPTransport(TransportConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}),
		Headers:   NewHeaders(DefaultNamespace),
		Session:   session,
		Timeout:   timeout,
	}
}

func writePage(w http.ResponseWriter, page StatementResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(page)
}

// TestBasicSelect is scenario S1: one page, one column, one row,
// no continuation, terminal state FINISHED.
func TestBasicSelect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writePage(w, StatementResponse{
			ID:      "q1",
			Stats:   Stats{State: "FINISHED"},
			Columns: []Column{{Name: "_col0", Type: "bigint"}},
			Data:    [][]json.RawMessage{{json.RawMessage("1")}},
		})
	}))
	defer server.Close()

	cfg := newTestClientConfig(t, server.URL, 0)
	ctx := context.Background()
	stream, err := Execute(ctx, cfg, "select 1", nil, ExecuteOptions{})
	if err != nil {
		t.Fatal(err)
	}

	var rows []Row
	var cols []Column
	err = stream.ReadToEnd(ctx, func(p DecodedPage) error {
		cols = p.Columns
		rows = append(rows, p.Rows...)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 || cols[0].Name != "_col0" {
		t.Fatalf("columns = %#v", cols)
	}
	if len(rows) != 1 || rows[0][0].(int64) != 1 {
		t.Fatalf("rows = %#v", rows)
	}
	if got := stream.client.State(); got != Finished {
		t.Errorf("final state = %v, want FINISHED", got)
	}
}

// TestParameterizedSubmission is scenario S2: the POST body is rewritten
// to EXECUTE ... USING ... and a RequestPreparedStatement header names
// the fresh id and URL-encoded original SQL.
func TestParameterizedSubmission(t *testing.T) {
	var gotBody string
	var gotPrepared string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotPrepared = r.Header.Get("X-Trino-Prepared-Statement")
		writePage(w, StatementResponse{ID: "q2", Stats: Stats{State: "FINISHED"}})
	}))
	defer server.Close()

	cfg := newTestClientConfig(t, server.URL, 0)
	client := NewStatementClient(cfg)

	ts := codec.Timestamp{Date: codec.Date{Year: 2024, Month: 1, Day: 1}}
	odt := codec.OffsetDateTime{Timestamp: codec.Timestamp{Date: codec.Date{Year: 2024, Month: 1, Day: 1}}}

	_, err := client.SubmitInitial(context.Background(), "select * from t where x = ? and y = ?", []any{ts, odt})
	if err != nil {
		t.Fatal(err)
	}

	wantBody := `EXECUTE trino_go_` // fresh id is random; check the USING clause suffix instead
	if !strings.HasPrefix(gotBody, wantBody) {
		t.Fatalf("body = %q, want prefix %q", gotBody, wantBody)
	}
	wantSuffix := "USING timestamp '2024-01-01 00:00:00.000', \"timestamp with time zone\" '2024-01-01 00:00:00.000 +00:00'"
	if !strings.HasSuffix(gotBody, wantSuffix) {
		t.Fatalf("body = %q, want suffix %q", gotBody, wantSuffix)
	}
	if gotPrepared == "" {
		t.Fatal("missing RequestPreparedStatement header")
	}
	parts := strings.SplitN(gotPrepared, "=", 2)
	if len(parts) != 2 {
		t.Fatalf("malformed prepared header %q", gotPrepared)
	}
	unescaped, err := url.QueryUnescape(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	if unescaped != "select * from t where x = ? and y = ?" {
		t.Errorf("prepared header sql = %q", unescaped)
	}
}

// TestCancellationPreservesSchema is scenario S4: columns observed on
// page 1 remain retrievable via WaitForColumns after Cancel.
func TestCancellationPreservesSchema(t *testing.T) {
	var hits atomic.Int32
	var deleteSeen atomic.Bool
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deleteSeen.Store(true)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		n := hits.Add(1)
		// Every page (including the initial one) carries columns and
		// points further along the continuation chain; the test cancels
		// before consuming any of them.
		writePage(w, StatementResponse{
			ID:      "q4",
			Stats:   Stats{State: "RUNNING"},
			Columns: []Column{{Name: "c", Type: "bigint"}},
			NextURI: fmt.Sprintf("%s/v1/statement/q4/%d/executing", server.URL, n),
		})
	}))
	defer server.Close()

	cfg := newTestClientConfig(t, server.URL, 0)
	client := NewStatementClient(cfg)
	ctx := context.Background()
	if _, err := client.SubmitInitial(ctx, "select c from slow_table", nil); err != nil {
		t.Fatal(err)
	}

	queue, err := NewPageQueue(client, DefaultBufferSize, DefaultMaxPageSize, false, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	stream := NewPageStream(client, queue, false)

	if !client.Cancel(ReasonUserCancel) {
		t.Fatal("Cancel did not transition to CLIENT_ABORTED")
	}

	cols, err := stream.WaitForColumns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 || cols[0].Name != "c" {
		t.Fatalf("columns after cancel = %#v", cols)
	}
	if !deleteSeen.Load() {
		t.Error("expected a DELETE to have been issued on cancellation")
	}
}

// TestTimeoutSurfacesCompositeError is scenario S5: a per-statement
// timeout surfaces as a TimeoutError and issues a cancellation DELETE.
func TestTimeoutSurfacesCompositeError(t *testing.T) {
	var deleteSeen atomic.Bool
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deleteSeen.Store(true)
			w.WriteHeader(http.StatusOK)
			return
		}
		time.Sleep(50 * time.Millisecond)
		writePage(w, StatementResponse{
			ID:      "q5",
			Stats:   Stats{State: "RUNNING"},
			NextURI: server.URL + "/v1/statement/q5/executing",
		})
	}))
	defer server.Close()

	cfg := newTestClientConfig(t, server.URL, 30*time.Millisecond)
	ctx := context.Background()
	stream, err := Execute(ctx, cfg, "select * from slow_table", nil, ExecuteOptions{})
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	var finalErr error
loop:
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for TimeoutError")
		default:
		}
		_, err := stream.Next(ctx)
		if err != nil {
			finalErr = err
			break loop
		}
		time.Sleep(5 * time.Millisecond)
	}

	var timeoutErr *TimeoutError
	if !errors.As(finalErr, &timeoutErr) {
		t.Fatalf("expected TimeoutError in chain, got %v", finalErr)
	}
	if !deleteSeen.Load() {
		t.Error("expected a DELETE to have been issued on timeout")
	}
}

// TestSessionSetMergesOnFinish is scenario S7: response headers carrying
// catalog/schema/session-property changes are merged at Finish.
func TestSessionSetMergesOnFinish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Trino-Set-Catalog", "tpch")
		w.Header().Set("X-Trino-Set-Schema", "sf10")
		w.Header().Add("X-Trino-Set-Session", "writer_min_size=64MB")
		writePage(w, StatementResponse{ID: "q7", Stats: Stats{State: "FINISHED"}})
	}))
	defer server.Close()

	cfg := newTestClientConfig(t, server.URL, 0)
	client := NewStatementClient(cfg)
	ctx := context.Background()
	if _, err := client.SubmitInitial(ctx, "use tpch.sf10", nil); err != nil {
		t.Fatal(err)
	}
	if got := client.State(); got != Finished {
		t.Fatalf("state = %v, want FINISHED (page carried no continuation URI)", got)
	}

	props := client.Session().Properties
	if props.Catalog != "tpch" || props.Schema != "sf10" {
		t.Fatalf("got catalog=%q schema=%q", props.Catalog, props.Schema)
	}
	if props.SessionProps["writer_min_size"] != "64MB" {
		t.Fatalf("session properties = %#v", props.SessionProps)
	}
}

// TestExclusiveConsumer verifies invariant 9: concurrent Next calls,
// exactly one proceeds.
func TestExclusiveConsumer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		writePage(w, StatementResponse{
			ID:      "q9",
			Stats:   Stats{State: "FINISHED"},
			Columns: []Column{{Name: "c", Type: "bigint"}},
			Data:    [][]json.RawMessage{{json.RawMessage("1")}},
		})
	}))
	defer server.Close()

	cfg := newTestClientConfig(t, server.URL, 0)
	ctx := context.Background()
	stream, err := Execute(ctx, cfg, "select c from t", nil, ExecuteOptions{})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = stream.Next(ctx)
		}(i)
	}
	wg.Wait()

	var progErrs int
	for _, e := range errs {
		var pe *ProgrammingError
		if errors.As(e, &pe) {
			progErrs++
		}
	}
	if progErrs != 1 {
		t.Fatalf("expected exactly one ProgrammingError among concurrent Next calls, got %d (%v)", progErrs, errs)
	}
}
