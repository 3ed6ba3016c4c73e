// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trino

import "fmt"

// Headers is the namespaced set of request/response header names used by
// the wire protocol. Different server variants (e.g. Trino's "X-Trino-"
// versus a forked engine's own prefix) use the same header semantics
// under a different prefix, so the set is parameterized by namespace
// rather than hard-coded as a literal string sprinkled across the
// package.
type Headers struct {
	namespace string
}

// DefaultNamespace is the conventional namespace used by the reference
// server implementation.
const DefaultNamespace = "X-Trino-"

// NewHeaders returns a Headers set for the given namespace prefix. An
// empty namespace defaults to DefaultNamespace.
func NewHeaders(namespace string) Headers {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Headers{namespace: namespace}
}

func (h Headers) header(name string) string { return h.namespace + name }

// Request headers.
func (h Headers) User() string                 { return h.header("User") }
func (h Headers) Source() string                { return h.header("Source") }
func (h Headers) ClientInfo() string            { return h.header("Client-Info") }
func (h Headers) ClientTags() string            { return h.header("Client-Tags") }
func (h Headers) TraceToken() string            { return h.header("Trace-Token") }
func (h Headers) Catalog() string                { return h.header("Catalog") }
func (h Headers) Schema() string                 { return h.header("Schema") }
func (h Headers) Path() string                   { return h.header("Path") }
func (h Headers) TimeZone() string               { return h.header("Time-Zone") }
func (h Headers) Language() string               { return h.header("Language") }
func (h Headers) Session() string                { return h.header("Session") }
func (h Headers) ResourceEstimate() string       { return h.header("Resource-Estimate") }
func (h Headers) Role() string                   { return h.header("Role") }
func (h Headers) ExtraCredential() string        { return h.header("Extra-Credential") }
func (h Headers) PreparedStatement() string      { return h.header("Prepared-Statement") }
func (h Headers) TransactionID() string          { return h.header("Transaction-Id") }
func (h Headers) ClientCapabilities() string     { return h.header("Client-Capabilities") }

// Response headers.
func (h Headers) SetCatalog() string             { return h.header("Set-Catalog") }
func (h Headers) SetSchema() string               { return h.header("Set-Schema") }
func (h Headers) SetPath() string                 { return h.header("Set-Path") }
func (h Headers) SetAuthorizationUser() string   { return h.header("Set-Authorization-User") }
func (h Headers) ResetAuthorizationUser() string {
	// Deliberately a distinct header key from SetAuthorizationUser: a
	// server signaling a user reset and a server setting a new
	// authenticated user are different events and must not collide on
	// one header name.
	return h.header("Reset-Authorization-User")
}
func (h Headers) SetSession() string             { return h.header("Set-Session") }
func (h Headers) AddedPrepare() string           { return h.header("Added-Prepare") }
func (h Headers) DeallocatedPrepare() string     { return h.header("Deallocated-Prepare") }

const (
	clientCapabilityParametricDatetime = "PARAMETRIC_DATETIME"
	userAgentHeader                    = "User-Agent"
	targetResultSizeParam              = "targetResultSize"
	targetResultSizeValue              = "5MB"
)

func defaultUserAgent() string {
	return fmt.Sprintf("trino-go/%s", clientVersion)
}

const clientVersion = "0.1.0"
