// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package auth defines the capability the statement-execution core
// consumes for caller identity: Validate checks whether the current
// credential is still usable, and Attach adds whatever headers the
// collaborator needs on an outgoing request. The interface itself has no
// third-party dependencies; concrete collaborators that need one (JWT,
// OAuth2) live in their own subpackages so that importing this package —
// or the trino core that only ever references this interface — never
// pulls those dependencies in.
//
// The core transport holds this interface, never a concrete
// implementation, so a caller can swap in any auth scheme without the
// core needing to know which one it is.
package auth

import "context"
import "net/http"

// Authenticator identifies the caller on outgoing requests. Exactly one
// of (SessionProperties.User set) or (an Authenticator supplied)
// identifies the caller, and the core never inspects the Authenticator
// beyond this interface.
type Authenticator interface {
	// Validate reports whether the current credential (token, password,
	// certificate...) is still usable. StatementClient.SubmitInitial
	// calls this before issuing the first request, so an expired
	// credential is reported immediately instead of after a round trip.
	Validate(ctx context.Context) error

	// Attach adds whatever headers/credentials the collaborator requires
	// to an outgoing request, before it is sent.
	Attach(ctx context.Context, req *http.Request) error
}
