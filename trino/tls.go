// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trino

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// TLSConfig configures the transport's trust material. Each bypass is
// opt-in: by default the system trust store is used and the usual
// hostname/chain verification applies.
type TLSConfig struct {
	// CACertPEM, if set, is trusted in addition to (or, if
	// ExclusiveCACert, instead of) the system trust store.
	CACertPEM []byte
	// ExclusiveCACert trusts only CACertPEM, ignoring the system store.
	ExclusiveCACert bool

	// AllowCertificateNameMismatch skips hostname verification while
	// still requiring a chain that verifies against the trust store.
	AllowCertificateNameMismatch bool

	// AllowSelfSignedRoot accepts a chain whose only verification
	// failure is an untrusted root — i.e. every other part of the chain
	// (expiry, name constraints, key usage, and everything not about the
	// root's trust status) must still be valid, regardless of how many
	// intermediates separate the leaf from that root.
	AllowSelfSignedRoot bool

	ServerName string
}

// BuildTLSConfig constructs a *tls.Config implementing cfg's trust
// policy.
func BuildTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	pool, err := trustPool(cfg)
	if err != nil {
		return nil, err
	}

	tlsCfg := &tls.Config{
		RootCAs:    pool,
		ServerName: cfg.ServerName,
	}

	switch {
	case cfg.AllowSelfSignedRoot:
		tlsCfg.InsecureSkipVerify = true
		tlsCfg.VerifyPeerCertificate = verifyAllowingUntrustedRoot(pool, cfg)
	case cfg.AllowCertificateNameMismatch:
		tlsCfg.InsecureSkipVerify = true
		tlsCfg.VerifyPeerCertificate = verifyChainIgnoringName(pool)
	}

	return tlsCfg, nil
}

func trustPool(cfg TLSConfig) (*x509.CertPool, error) {
	var pool *x509.CertPool
	if cfg.ExclusiveCACert {
		pool = x509.NewCertPool()
	} else {
		sys, err := x509.SystemCertPool()
		if err != nil || sys == nil {
			sys = x509.NewCertPool()
		}
		pool = sys
	}
	if len(cfg.CACertPEM) > 0 {
		if !pool.AppendCertsFromPEM(cfg.CACertPEM) {
			return nil, fmt.Errorf("trino: no certificates found in supplied CA PEM")
		}
	}
	return pool, nil
}

// verifyChainIgnoringName validates the presented chain against pool
// without checking the certificate's hostname/SANs.
func verifyChainIgnoringName(pool *x509.CertPool) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		leaf, intermediates, err := parseChain(rawCerts)
		if err != nil {
			return err
		}
		_, err = leaf.Verify(x509.VerifyOptions{
			Roots:         pool,
			Intermediates: intermediates,
		})
		return err
	}
}

// verifyAllowingUntrustedRoot validates the presented chain against
// pool, but additionally accepts the case where the chain fails
// verification solely because its root is not in pool.
func verifyAllowingUntrustedRoot(pool *x509.CertPool, cfg TLSConfig) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		leaf, intermediates, err := parseChain(rawCerts)
		if err != nil {
			return err
		}
		opts := x509.VerifyOptions{Roots: pool, Intermediates: intermediates}
		if !cfg.AllowCertificateNameMismatch {
			opts.DNSName = cfg.ServerName
		}
		_, verr := leaf.Verify(opts)
		if verr == nil {
			return nil
		}
		var unknownAuth x509.UnknownAuthorityError
		if isUnknownAuthority(verr, &unknownAuth) {
			return nil
		}
		return verr
	}
}

func isUnknownAuthority(err error, target *x509.UnknownAuthorityError) bool {
	if u, ok := err.(x509.UnknownAuthorityError); ok {
		*target = u
		return true
	}
	return false
}

func parseChain(rawCerts [][]byte) (leaf *x509.Certificate, intermediates *x509.CertPool, err error) {
	if len(rawCerts) == 0 {
		return nil, nil, fmt.Errorf("trino: no certificates presented")
	}
	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		c, err := x509.ParseCertificate(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("trino: parse peer certificate: %w", err)
		}
		certs = append(certs, c)
	}
	intermediates = x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}
	return certs[0], intermediates, nil
}
