// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package bearer

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewRejectsMalformedToken(t *testing.T) {
	if _, err := New("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestAttachSetsBearerHeader(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "alice"})
	a, err := New(token)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Attach(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer "+token {
		t.Errorf("Authorization header = %q", got)
	}
}

func TestValidateFailsOnExpiredToken(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	a, err := New(token)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Validate(context.Background()); err == nil {
		t.Fatal("expected Validate to fail for an expired token")
	}
}

func TestValidateAcceptsTokenWithNoExpClaim(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "alice"})
	a, err := New(token)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Validate(context.Background()); err != nil {
		t.Errorf("Validate() = %v, want nil for a non-expiring token", err)
	}
}

func TestSetTokenReplacesCredential(t *testing.T) {
	first := signedToken(t, jwt.MapClaims{"sub": "alice"})
	second := signedToken(t, jwt.MapClaims{"sub": "bob"})
	a, err := New(first)
	if err != nil {
		t.Fatal(err)
	}
	a.SetToken(second)

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Attach(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer "+second {
		t.Errorf("Authorization header = %q, want refreshed token", got)
	}
}
