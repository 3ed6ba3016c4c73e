// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package oauthcc implements an OAuth2 client-credentials
// auth.Authenticator. It refreshes its own token via
// golang.org/x/oauth2/clientcredentials' cache, so the core never needs
// to know a refresh happened.
package oauthcc

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Authenticator wraps a clientcredentials.Config token source.
type Authenticator struct {
	src oauth2.TokenSource
}

// New builds an Authenticator from a standard client-credentials config.
func New(ctx context.Context, cfg clientcredentials.Config) *Authenticator {
	return &Authenticator{src: cfg.TokenSource(ctx)}
}

// Validate forces a token fetch/refresh, surfacing any failure now
// rather than on the first attached request.
func (a *Authenticator) Validate(ctx context.Context) error {
	_, err := a.src.Token()
	return err
}

func (a *Authenticator) Attach(_ context.Context, req *http.Request) error {
	tok, err := a.src.Token()
	if err != nil {
		return err
	}
	tok.SetAuthHeader(req)
	return nil
}
