// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trino

import (
	"maps"
	"net/http"
	"net/url"
	"strings"
)

// Role is a selected role value: ROLE, ALL, or NONE, optionally carrying
// a role name when Kind is RoleNamed.
type Role struct {
	Kind RoleKind
	Name string
}

type RoleKind int

const (
	RoleNone RoleKind = iota
	RoleAll
	RoleNamed
)

func (r Role) String() string {
	switch r.Kind {
	case RoleAll:
		return "ALL"
	case RoleNone:
		return "NONE"
	default:
		return "ROLE:" + r.Name
	}
}

// SessionProperties is the mutable, per-connection configuration carried
// on every request. It is only ever mutated by replacing it wholesale
// via Merge at a query-finish boundary — see SessionState.
type SessionProperties struct {
	ServerURL          string
	User               string
	Catalog            string
	Schema             string
	Path               string
	TransactionID      string
	TimeZone           string
	Locale             string
	Source             string
	TraceToken         string
	ClientTags         []string
	ClientInfo         string
	Compression        bool
	PreparedStatements map[string]string // name -> SQL text
	SessionProps       map[string]string // key -> decoded value (URL-encoded when sent)
	ResourceEstimates  map[string]string
	ExtraCredentials   map[string]string
	Roles              map[string]Role
	ExtraHeaders       map[string]string
}

// clone returns a deep copy so SessionState.Merge never mutates the
// receiver's maps/slices in place.
func (p SessionProperties) clone() SessionProperties {
	out := p
	out.ClientTags = append([]string(nil), p.ClientTags...)
	out.PreparedStatements = maps.Clone(p.PreparedStatements)
	out.SessionProps = maps.Clone(p.SessionProps)
	out.ResourceEstimates = maps.Clone(p.ResourceEstimates)
	out.ExtraCredentials = maps.Clone(p.ExtraCredentials)
	out.Roles = maps.Clone(p.Roles)
	out.ExtraHeaders = maps.Clone(p.ExtraHeaders)
	return out
}

// SessionDelta is produced by parsing response headers across the
// lifetime of one statement and applied atomically at Finish.
type SessionDelta struct {
	SetCatalog             *string
	SetSchema              *string
	SetPath                *string
	SetAuthorizationUser   *string
	ResetAuthorizationUser bool
	AddedSessionProperties map[string]string
	AddedPreparedStatements map[string]string
	DeallocatedPrepared    []string
}

// IsEmpty reports whether the delta carries no mutations, used to verify
// the "Merge(empty) = identity" law.
func (d SessionDelta) IsEmpty() bool {
	return d.SetCatalog == nil && d.SetSchema == nil && d.SetPath == nil &&
		d.SetAuthorizationUser == nil && !d.ResetAuthorizationUser &&
		len(d.AddedSessionProperties) == 0 && len(d.AddedPreparedStatements) == 0 &&
		len(d.DeallocatedPrepared) == 0
}

// SessionState holds the current SessionProperties and exposes Merge,
// the only mutation path.
type SessionState struct {
	Properties SessionProperties
}

// NewSessionState builds a SessionState, defaulting User to a
// generic agent string when neither User nor an auth collaborator
// identifies the caller — callers that supply an Authenticator should
// set Properties.User to "" and let the collaborator attach identity via
// request headers instead.
func NewSessionState(props SessionProperties, hasAuthCollaborator bool) (SessionState, error) {
	if props.User == "" && !hasAuthCollaborator {
		props.User = "trino-go"
	}
	if props.PreparedStatements == nil {
		props.PreparedStatements = map[string]string{}
	}
	if props.SessionProps == nil {
		props.SessionProps = map[string]string{}
	}
	return SessionState{Properties: props}, nil
}

// Merge returns a new SessionState with delta applied: catalog/schema/
// path/authorization-user are replaced when set (authorization-user is
// cleared if the reset flag is set); added session properties and
// prepared statements are inserted without overwriting existing keys;
// deallocated prepared-statement names are removed; everything else is
// copied unchanged.
func (s SessionState) Merge(delta SessionDelta) SessionState {
	next := s.Properties.clone()

	if delta.SetCatalog != nil {
		next.Catalog = *delta.SetCatalog
	}
	if delta.SetSchema != nil {
		next.Schema = *delta.SetSchema
	}
	if delta.SetPath != nil {
		next.Path = *delta.SetPath
	}
	if delta.ResetAuthorizationUser {
		next.User = ""
	} else if delta.SetAuthorizationUser != nil {
		next.User = *delta.SetAuthorizationUser
	}

	if next.SessionProps == nil {
		next.SessionProps = map[string]string{}
	}
	for k, v := range delta.AddedSessionProperties {
		if _, exists := next.SessionProps[k]; !exists {
			next.SessionProps[k] = v
		}
	}

	if next.PreparedStatements == nil {
		next.PreparedStatements = map[string]string{}
	}
	for k, v := range delta.AddedPreparedStatements {
		if _, exists := next.PreparedStatements[k]; !exists {
			next.PreparedStatements[k] = v
		}
	}

	for _, name := range delta.DeallocatedPrepared {
		delete(next.PreparedStatements, name)
	}

	return SessionState{Properties: next}
}

// accumulateHeaderDelta accumulates a SessionDelta from one response's
// headers, merging it into an in-progress accumulator (itself a
// SessionDelta) that StatementClient keeps across a statement's pages
// and applies in full at Finish.
func accumulateHeaderDelta(h http.Header, names Headers, acc *SessionDelta) error {
	if v := h.Get(names.SetCatalog()); v != "" {
		acc.SetCatalog = &v
	}
	if v := h.Get(names.SetSchema()); v != "" {
		acc.SetSchema = &v
	}
	if v := h.Get(names.SetPath()); v != "" {
		acc.SetPath = &v
	}
	if v := h.Get(names.SetAuthorizationUser()); v != "" {
		acc.SetAuthorizationUser = &v
	}
	if v := h.Get(names.ResetAuthorizationUser()); v == "true" {
		acc.ResetAuthorizationUser = true
	}

	if acc.AddedSessionProperties == nil {
		acc.AddedSessionProperties = map[string]string{}
	}
	for _, v := range h.Values(names.SetSession()) {
		k, val, err := parseKeyEqualsURLValue(v)
		if err != nil {
			return err
		}
		acc.AddedSessionProperties[k] = val
	}

	if acc.AddedPreparedStatements == nil {
		acc.AddedPreparedStatements = map[string]string{}
	}
	for _, v := range h.Values(names.AddedPrepare()) {
		k, val, err := parseKeyEqualsURLValue(v)
		if err != nil {
			return err
		}
		acc.AddedPreparedStatements[k] = val
	}

	for _, v := range h.Values(names.DeallocatedPrepare()) {
		k, _, err := parseKeyEqualsURLValue(v)
		if err != nil {
			return err
		}
		acc.DeallocatedPrepared = append(acc.DeallocatedPrepared, k)
	}

	return nil
}

// parseKeyEqualsURLValue parses a "key=value" header entry whose value
// is URL-encoded. A malformed entry is treated as fatal rather than
// skipped, since a prepared-statement id the client can't decode would
// otherwise go silently missing from the session.
func parseKeyEqualsURLValue(entry string) (key, value string, err error) {
	idx := strings.IndexByte(entry, '=')
	if idx < 0 {
		return "", "", &ProtocolError{Err: errMalformedHeaderEntry(entry)}
	}
	key = entry[:idx]
	raw := entry[idx+1:]
	value, err = url.QueryUnescape(raw)
	if err != nil {
		return "", "", &ProtocolError{Err: errMalformedHeaderEntry(entry)}
	}
	return key, value, nil
}

func errMalformedHeaderEntry(entry string) error {
	return &malformedHeaderEntryError{entry: entry}
}

type malformedHeaderEntryError struct{ entry string }

func (e *malformedHeaderEntryError) Error() string {
	return "trino: malformed header entry: " + e.entry
}
