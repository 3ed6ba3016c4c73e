// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trino

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/paulhatch/trino-go/internal/codec"
)

// defaultStatementIDPrefix names the fresh prepared-statement identifier
// sent with EXECUTE ... USING; a caller can override it via
// ClientConfig.StatementIDPrefix to namespace ids per application.
const defaultStatementIDPrefix = "trino_go_"

// QueryState is the statement's run state. Once out of Running it is
// terminal; transitions are compare-and-set only (see (*StatementClient).
// tryTransition).
type QueryState int32

const (
	Running QueryState = iota
	Finished
	ClientError
	ClientAborted
)

func (s QueryState) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Finished:
		return "FINISHED"
	case ClientError:
		return "CLIENT_ERROR"
	case ClientAborted:
		return "CLIENT_ABORTED"
	default:
		return "UNKNOWN"
	}
}

// ClientConfig configures a StatementClient.
type ClientConfig struct {
	ServerURL string
	Transport *HTTPTransport
	Headers   Headers
	Session   SessionState

	// Timeout bounds the wall-clock lifetime of a statement, measured
	// from SubmitInitial. Zero disables the per-statement timeout.
	Timeout time.Duration

	// Logger receives debug-level breadcrumbs for adaptive-pacing changes
	// and session merges. A nil Logger keeps the client silent.
	Logger *slog.Logger

	// StatementIDPrefix names the fresh prepared-statement identifier sent
	// with EXECUTE ... USING. Empty selects defaultStatementIDPrefix.
	StatementIDPrefix string
}

// StatementClient drives the statement state machine: initial
// submission, page-by-page advance, cancellation, and finish-time
// session merge.
type StatementClient struct {
	cfg       ClientConfig
	transport *HTTPTransport
	headers   Headers

	state     atomic.Int32
	startedAt time.Time

	lastStatement *StatementResponse
	currentURI    string

	deltaAcc SessionDelta
	session  SessionState

	readDelay time.Duration
	readCount int

	log *slog.Logger
}

// NewStatementClient builds a client ready for SubmitInitial.
func NewStatementClient(cfg ClientConfig) *StatementClient {
	c := &StatementClient{
		cfg:       cfg,
		transport: cfg.Transport,
		headers:   cfg.Headers,
		session:   cfg.Session,
		readDelay: 50 * time.Millisecond,
		log:       cfg.Logger,
	}
	c.state.Store(int32(Running))
	return c
}

// State returns the statement's current QueryState.
func (c *StatementClient) State() QueryState { return QueryState(c.state.Load()) }

// IsTimedOut reports whether the configured per-statement timeout has
// elapsed since SubmitInitial.
func (c *StatementClient) IsTimedOut() bool {
	if c.cfg.Timeout <= 0 || c.startedAt.IsZero() {
		return false
	}
	return time.Since(c.startedAt) > c.cfg.Timeout
}

// tryTransition performs a compare-and-set RUNNING -> to, returning
// whether it succeeded. Once a statement leaves RUNNING it never
// returns to it.
func (c *StatementClient) tryTransition(to QueryState) bool {
	return c.state.CompareAndSwap(int32(Running), int32(to))
}

// freshID returns prefix concatenated with a 128-bit random token (a
// UUIDv4 with its hyphens stripped), used to name a fresh prepared
// statement for EXECUTE ... USING.
func freshID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// SubmitInitial issues the first POST to {server}/v1/statement.
// When params is non-empty, the SQL body is rewritten to an
// `EXECUTE <id> USING ...` form and a RequestPreparedStatement header
// is attached naming the fresh id.
func (c *StatementClient) SubmitInitial(ctx context.Context, sql string, params []any) (*Stats, error) {
	c.startedAt = time.Now()

	if c.transport != nil {
		if authn := c.transport.Authenticator(); authn != nil {
			if err := authn.Validate(ctx); err != nil {
				return nil, fmt.Errorf("trino: credential validation: %w", err)
			}
		}
	}

	body := sql
	var preparedHeader string
	if len(params) > 0 {
		prefix := c.cfg.StatementIDPrefix
		if prefix == "" {
			prefix = defaultStatementIDPrefix
		}
		id := freshID(prefix)
		literals := make([]string, len(params))
		for i, p := range params {
			lit, err := codec.EncodeParameter(p)
			if err != nil {
				return nil, fmt.Errorf("trino: encode parameter %d: %w", i, err)
			}
			literals[i] = lit
		}
		body = fmt.Sprintf("EXECUTE %s USING %s", id, strings.Join(literals, ", "))
		preparedHeader = id + "=" + url.QueryEscape(sql)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL+"/v1/statement",
		bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, fmt.Errorf("trino: build initial request: %w", err)
	}
	c.applySessionHeaders(req)
	if preparedHeader != "" {
		req.Header.Add(c.headers.PreparedStatement(), preparedHeader)
	}

	page, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	c.adopt(page)
	if !page.HasMorePages() {
		c.Finish()
	}
	return &page.Stats, nil
}

// applySessionHeaders writes the RequestXxx headers from the current
// SessionProperties.
func (c *StatementClient) applySessionHeaders(req *http.Request) {
	p := c.session.Properties
	h := req.Header
	set := func(name, value string) {
		if value != "" {
			h.Set(name, value)
		}
	}
	set(c.headers.User(), p.User)
	set(c.headers.Source(), p.Source)
	set(c.headers.ClientInfo(), p.ClientInfo)
	if len(p.ClientTags) > 0 {
		set(c.headers.ClientTags(), strings.Join(p.ClientTags, ","))
	}
	set(c.headers.TraceToken(), p.TraceToken)
	set(c.headers.Catalog(), p.Catalog)
	set(c.headers.Schema(), p.Schema)
	set(c.headers.Path(), p.Path)
	set(c.headers.TimeZone(), p.TimeZone)
	set(c.headers.Language(), p.Locale)
	set(c.headers.TransactionID(), p.TransactionID)
	h.Set(c.headers.ClientCapabilities(), clientCapabilityParametricDatetime)

	for k, v := range p.SessionProps {
		h.Add(c.headers.Session(), k+"="+url.QueryEscape(v))
	}
	for k, v := range p.ResourceEstimates {
		h.Add(c.headers.ResourceEstimate(), k+"="+url.QueryEscape(v))
	}
	for k, v := range p.ExtraCredentials {
		h.Add(c.headers.ExtraCredential(), k+"="+url.QueryEscape(v))
	}
	for name, role := range p.Roles {
		h.Add(c.headers.Role(), name+"="+role.String())
	}
	for name, sql := range p.PreparedStatements {
		h.Add(c.headers.PreparedStatement(), name+"="+url.QueryEscape(sql))
	}
	for k, v := range p.ExtraHeaders {
		h.Add(k, v)
	}
}

// Advance issues GET on the last observed continuation URI. It applies
// the adaptive read-pacing delay before returning when the
// response just received carried no data, more pages remain, and enough
// reads have elapsed.
func (c *StatementClient) Advance(ctx context.Context) (*StatementResponse, error) {
	if c.State() != Running {
		return nil, &ProgrammingError{Msg: "Advance called on a non-running statement"}
	}
	if c.IsTimedOut() {
		c.Cancel(ReasonTimeout)
		return nil, &TimeoutError{Elapsed: time.Since(c.startedAt).String()}
	}

	uri := c.currentURI
	if strings.Contains(uri, "/executing") {
		uri = appendTargetResultSize(uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("trino: build advance request: %w", err)
	}
	c.applySessionHeaders(req)

	page, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	c.adopt(page)

	c.readCount++
	hasData := len(page.Data) > 0
	if !hasData && page.HasMorePages() && c.readCount > 4 {
		select {
		case <-time.After(c.readDelay):
		case <-ctx.Done():
			return page, ctx.Err()
		}
		c.readDelay = time.Duration(float64(c.readDelay) * 1.2)
		if c.readDelay > 5*time.Second {
			c.readDelay = 5 * time.Second
		}
		if c.log != nil {
			c.log.DebugContext(ctx, "trino: adaptive read delay grew", "delay", c.readDelay, "reads", c.readCount)
		}
	}

	if !page.HasMorePages() {
		c.Finish()
	}
	return page, nil
}

// appendTargetResultSize adds targetResultSize=5MB to uri's query string,
// preserving any existing parameters.
func appendTargetResultSize(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	q := u.Query()
	q.Set(targetResultSizeParam, targetResultSizeValue)
	u.RawQuery = q.Encode()
	return u.String()
}

// roundTrip executes req, decodes the page body, records the session
// delta contributed by its headers, and transitions to CLIENT_ERROR if
// the page carries a server error.
func (c *StatementClient) roundTrip(ctx context.Context, req *http.Request) (*StatementResponse, error) {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("trino: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var page StatementResponse
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, &ProtocolError{Err: fmt.Errorf("decode page: %w", err)}
	}

	if err := accumulateHeaderDelta(resp.Header, c.headers, &c.deltaAcc); err != nil {
		return nil, err
	}

	if page.Error != nil {
		c.tryTransition(ClientError)
		return &page, &ServerError{QueryError: page.Error}
	}
	return &page, nil
}

func (c *StatementClient) adopt(page *StatementResponse) {
	c.lastStatement = page
	c.currentURI = page.NextURI
}

// LastStatement returns the most recently observed page, or nil before
// the first response.
func (c *StatementClient) LastStatement() *StatementResponse { return c.lastStatement }

// Cancel transitions RUNNING->CLIENT_ABORTED via CAS and, if a
// continuation URI exists, issues DELETE on it using a fresh
// non-cancellable context so the cancellation always reaches the
// server. Returns whether the client is now CLIENT_ABORTED.
func (c *StatementClient) Cancel(reason string) bool {
	ok := c.tryTransition(ClientAborted)
	if !ok {
		return c.State() == ClientAborted
	}
	if c.currentURI != "" {
		// Deliberately detached from any caller context: this DELETE must
		// reach the server even if the triggering context is already done.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.currentURI, nil)
		if err == nil {
			c.applySessionHeaders(req)
			_, _ = c.transport.Do(ctx, req) // best-effort: OK or NoContent expected
		}
	}
	_ = reason // surfaced to callers via the CancellationError they construct
	return true
}

// Finish stops the wall clock, merges the accumulated session delta,
// and transitions RUNNING->FINISHED.
func (c *StatementClient) Finish() bool {
	if !c.tryTransition(Finished) {
		return false
	}
	c.session = c.session.Merge(c.deltaAcc)
	if c.log != nil {
		c.log.Debug("trino: session merged at finish", "catalog", c.session.Properties.Catalog, "schema", c.session.Properties.Schema)
	}
	return true
}

// Session returns the current SessionState, reflecting the last merge
// performed at Finish.
func (c *StatementClient) Session() SessionState { return c.session }
