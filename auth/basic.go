// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"net/http"
)

// Basic is a username/password collaborator, the simplest Authenticator
// and the only one that never expires.
type Basic struct {
	Username string
	Password string
}

func (b *Basic) Validate(context.Context) error { return nil }

func (b *Basic) Attach(_ context.Context, req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}
