// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trino

import (
	"bytes"
	"compress/flate"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sethvargo/go-retry"

	"github.com/paulhatch/trino-go/auth"
)

// TransportConfig configures HTTPTransport.
type TransportConfig struct {
	// HTTPClient is the client used for all requests. If nil,
	// http.DefaultClient is used.
	HTTPClient *http.Client

	// Authenticator attaches caller identity to every request. May be
	// nil, in which case SessionProperties.User must be set — exactly
	// one of the two identifies the caller.
	Authenticator auth.Authenticator

	// Headers is the namespaced header-name set for the target server
	// variant.
	Headers Headers

	// UserAgent overrides the default "trino-go/<version>" value.
	UserAgent string

	// DisableCompression turns off "Accept-Encoding: gzip" advertisement.
	// A response that still arrives with Content-Encoding gzip or deflate
	// is decompressed regardless.
	DisableCompression bool

	// MaxRetries bounds the number of retries for a single request that
	// fails with a retryable status code (BadGateway, ServiceUnavailable,
	// GatewayTimeout), each attempt spaced by exponential backoff rather
	// than retried without limit, so a coordinator stuck returning 503s
	// can't wedge a caller indefinitely. Zero selects a default of 10.
	MaxRetries uint64

	// InitialBackoff is the first retry delay; it doubles on each
	// subsequent attempt up to MaxBackoff. Zero selects 100ms.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential backoff delay. Zero selects 5s.
	MaxBackoff time.Duration

	// Logger receives debug-level breadcrumbs for retry attempts. A nil
	// Logger keeps the transport silent, matching the library's default
	// posture of never logging on the hot path unless a caller opts in.
	Logger *slog.Logger
}

// HTTPTransport executes HTTP requests against the statement-execution
// server: it retries transient status codes, attaches identity and
// protocol headers, and surfaces response headers to the caller.
type HTTPTransport struct {
	client  *http.Client
	authn   auth.Authenticator
	headers Headers
	agent   string
	cfg     TransportConfig
	backoff retry.Backoff
	log     *slog.Logger
}

// NewHTTPTransport builds an HTTPTransport from cfg.
func NewHTTPTransport(cfg TransportConfig) *HTTPTransport {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	agent := cfg.UserAgent
	if agent == "" {
		agent = defaultUserAgent()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 10
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 5 * time.Second
	}

	b := retry.NewExponential(cfg.InitialBackoff)
	b = retry.WithMaxDuration(cfg.MaxBackoff*time.Duration(cfg.MaxRetries+1), b)
	b = retry.WithCappedDuration(cfg.MaxBackoff, b)
	b = retry.WithMaxRetries(cfg.MaxRetries, b)

	return &HTTPTransport{
		client:  client,
		authn:   cfg.Authenticator,
		headers: cfg.Headers,
		agent:   agent,
		cfg:     cfg,
		backoff: b,
		log:     cfg.Logger,
	}
}

// Response is the decoded result of one (possibly retried) HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Authenticator returns the configured Authenticator, or nil if none was
// supplied, so a caller holding only an HTTPTransport can still validate
// credentials up front.
func (t *HTTPTransport) Authenticator() auth.Authenticator { return t.authn }

// isRetryableStatus reports whether status is one of the transient
// codes worth retrying: BadGateway, ServiceUnavailable, GatewayTimeout.
func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Do executes req, retrying on transient status codes with exponential
// backoff, attaching the Authenticator (if any) and User-Agent before
// every attempt. Connection-level errors are also retried; the last
// error (wrapped) is returned if retries are exhausted.
func (t *HTTPTransport) Do(ctx context.Context, req *http.Request) (*Response, error) {
	req.Header.Set(userAgentHeader, t.agent)
	if !t.cfg.DisableCompression {
		req.Header.Set("Accept-Encoding", "gzip")
	}

	var bodyBytes []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("trino: read request body: %w", err)
		}
		bodyBytes = b
		req.Body.Close()
	}

	var result *Response
	err := retry.Do(ctx, t.backoff, func(ctx context.Context) error {
		attempt := req.Clone(ctx)
		if bodyBytes != nil {
			attempt.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			attempt.ContentLength = int64(len(bodyBytes))
		}
		if t.authn != nil {
			if err := t.authn.Attach(ctx, attempt); err != nil {
				return fmt.Errorf("trino: attach credentials: %w", err)
			}
		}

		resp, err := t.client.Do(attempt)
		if err != nil {
			if ctx.Err() != nil {
				return err // caller cancellation/timeout: do not retry
			}
			return retry.RetryableError(fmt.Errorf("trino: request failed: %w", err))
		}
		defer resp.Body.Close()

		body, err := decompressBody(resp)
		if err != nil {
			return fmt.Errorf("trino: decompress response: %w", err)
		}

		if isRetryableStatus(resp.StatusCode) {
			if t.log != nil {
				t.log.DebugContext(ctx, "trino: retrying transient status", "status", resp.StatusCode, "url", req.URL.String())
			}
			return retry.RetryableError(&ProtocolError{
				StatusCode: resp.StatusCode,
				Body:       string(body),
			})
		}

		result = &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FetchServerInfo issues GET {serverURL}/v1/info, an endpoint useful for
// health checks and version negotiation; it is independent of any
// statement's lifecycle.
func (t *HTTPTransport) FetchServerInfo(ctx context.Context, serverURL string) (*ServerInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+"/v1/info", nil)
	if err != nil {
		return nil, fmt.Errorf("trino: build info request: %w", err)
	}
	resp, err := t.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("trino: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	var info ServerInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return nil, &ProtocolError{Err: fmt.Errorf("decode server info: %w", err)}
	}
	return &info, nil
}

func decompressBody(resp *http.Response) ([]byte, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "deflate":
		r := flate.NewReader(resp.Body)
		defer r.Close()
		return io.ReadAll(r)
	default:
		return io.ReadAll(resp.Body)
	}
}
