// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthcc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2/clientcredentials"
)

func tokenServer(t *testing.T, accessToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
}

func TestAttachSetsBearerHeaderFromTokenEndpoint(t *testing.T) {
	server := tokenServer(t, "issued-token")
	defer server.Close()

	a := New(context.Background(), clientcredentials.Config{
		ClientID:     "trino-client",
		ClientSecret: "secret",
		TokenURL:     server.URL,
	})

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Attach(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer issued-token" {
		t.Errorf("Authorization header = %q", got)
	}
}

func TestValidateFetchesToken(t *testing.T) {
	server := tokenServer(t, "issued-token")
	defer server.Close()

	a := New(context.Background(), clientcredentials.Config{
		ClientID:     "trino-client",
		ClientSecret: "secret",
		TokenURL:     server.URL,
	})
	if err := a.Validate(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestValidateSurfacesTokenEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized_client", http.StatusUnauthorized)
	}))
	defer server.Close()

	a := New(context.Background(), clientcredentials.Config{
		ClientID:     "trino-client",
		ClientSecret: "secret",
		TokenURL:     server.URL,
	})
	if err := a.Validate(context.Background()); err == nil {
		t.Fatal("expected Validate to surface the token endpoint failure")
	}
}
