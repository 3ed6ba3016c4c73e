// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"net/http"
	"testing"
)

func TestBasicAttachSetsAuthorizationHeader(t *testing.T) {
	b := &Basic{Username: "alice", Password: "secret"}
	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Attach(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	user, pass, ok := req.BasicAuth()
	if !ok || user != "alice" || pass != "secret" {
		t.Fatalf("BasicAuth() = %q, %q, %v", user, pass, ok)
	}
}

func TestBasicValidateNeverFails(t *testing.T) {
	b := &Basic{Username: "alice", Password: "secret"}
	if err := b.Validate(context.Background()); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
