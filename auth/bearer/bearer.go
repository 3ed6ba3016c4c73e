// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package bearer implements a JWT bearer-token auth.Authenticator. It
// validates the token's expiry before every attach rather than
// refreshing it, failing fast instead of silently sending an expired
// token. Renewal is left to the caller via SetToken (or use
// auth/oauthcc, which refreshes its own token automatically).
package bearer

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator attaches a static bearer token, failing Validate once the
// token's "exp" claim has passed.
type Authenticator struct {
	mu    sync.RWMutex
	token string
}

// New parses the token to confirm it is well-formed JWT (signature
// verification is the server's job; the client only needs the claims).
func New(token string) (*Authenticator, error) {
	if _, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{}); err != nil {
		return nil, fmt.Errorf("auth/bearer: parse token: %w", err)
	}
	return &Authenticator{token: token}, nil
}

// SetToken replaces the token, e.g. after an out-of-band refresh.
func (a *Authenticator) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

func (a *Authenticator) current() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Validate fails once the token's exp claim is in the past.
func (a *Authenticator) Validate(context.Context) error {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(a.current(), &claims)
	if err != nil {
		return fmt.Errorf("auth/bearer: parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil // no exp claim: treat as non-expiring
	}
	if time.Now().After(exp.Time) {
		return fmt.Errorf("auth/bearer: token expired at %s", exp.Time)
	}
	return nil
}

func (a *Authenticator) Attach(ctx context.Context, req *http.Request) error {
	if err := a.Validate(ctx); err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.current())
	return nil
}
