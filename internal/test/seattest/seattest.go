// Copyright 2025 Nonvolatile Inc. d/b/a Confident Security

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     https://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package seattest builds throwaway certificate hierarchies and attestation tokens
// for tests.
package seattest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// LeafDNSName is the DNS name carried by every generated leaf certificate.
const LeafDNSName = "attestation.seat.invalid"

var serial atomic.Int64

// PKI is a root, zero or more intermediates and a leaf. Intermediates are stored
// in chain order, the leaf's issuer first.
type PKI struct {
	Root             *x509.Certificate
	RootKey          *rsa.PrivateKey
	Intermediates    []*x509.Certificate
	IntermediateKeys []*rsa.PrivateKey
	Leaf             *x509.Certificate
	LeafKey          crypto.Signer
}

type pkiConfig struct {
	name          string
	intermediates int
	leafNotBefore time.Time
	leafNotAfter  time.Time
	leafExtUsage  []x509.ExtKeyUsage
	leafECDSA     bool
	interMaxPath  int
	interExtUsage []x509.ExtKeyUsage
	leafExtra     []pkix.Extension
}

type PKIOption func(c *pkiConfig)

// WithName sets the common name prefix of every generated certificate.
func WithName(name string) PKIOption {
	return func(c *pkiConfig) {
		c.name = name
	}
}

// WithIntermediates sets the number of intermediates between root and leaf.
func WithIntermediates(n int) PKIOption {
	return func(c *pkiConfig) {
		c.intermediates = n
	}
}

func WithLeafValidity(notBefore, notAfter time.Time) PKIOption {
	return func(c *pkiConfig) {
		c.leafNotBefore = notBefore
		c.leafNotAfter = notAfter
	}
}

func WithLeafExtKeyUsage(usages ...x509.ExtKeyUsage) PKIOption {
	return func(c *pkiConfig) {
		c.leafExtUsage = usages
	}
}

// WithLeafExtension adds ext to the leaf certificate.
func WithLeafExtension(ext pkix.Extension) PKIOption {
	return func(c *pkiConfig) {
		c.leafExtra = append(c.leafExtra, ext)
	}
}

// WithECDSALeaf gives the leaf a P-256 key, which can not produce RS512 signatures.
func WithECDSALeaf() PKIOption {
	return func(c *pkiConfig) {
		c.leafECDSA = true
	}
}

// WithIntermediateMaxPathLen sets the path length constraint of every intermediate.
func WithIntermediateMaxPathLen(n int) PKIOption {
	return func(c *pkiConfig) {
		c.interMaxPath = n
	}
}

func WithIntermediateExtKeyUsage(usages ...x509.ExtKeyUsage) PKIOption {
	return func(c *pkiConfig) {
		c.interExtUsage = usages
	}
}

// NewPKI generates a fresh hierarchy. By default it has one intermediate and a leaf
// valid for server authentication from an hour ago until a year from now.
func NewPKI(t testing.TB, opts ...PKIOption) *PKI {
	t.Helper()

	now := time.Now()
	cfg := &pkiConfig{
		name:          "Test Seat",
		intermediates: 1,
		leafNotBefore: now.Add(-time.Hour),
		leafNotAfter:  now.Add(365 * 24 * time.Hour),
		leafExtUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		interMaxPath:  -1,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	p := &PKI{}
	p.RootKey = rsaKey(t)
	p.Root = issue(t, &x509.Certificate{
		Subject:               pkix.Name{CommonName: cfg.name + " Root CA"},
		NotBefore:             now.Add(-24 * time.Hour),
		NotAfter:              now.Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            -1,
	}, nil, p.RootKey, &p.RootKey.PublicKey)

	issuer, issuerKey := p.Root, p.RootKey
	var topDown []*x509.Certificate
	var topDownKeys []*rsa.PrivateKey
	for i := 0; i < cfg.intermediates; i++ {
		key := rsaKey(t)
		cert := issue(t, &x509.Certificate{
			Subject:               pkix.Name{CommonName: cfg.name + " Intermediate CA " + string(rune('A'+i))},
			NotBefore:             now.Add(-24 * time.Hour),
			NotAfter:              now.Add(5 * 365 * 24 * time.Hour),
			KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
			ExtKeyUsage:           cfg.interExtUsage,
			BasicConstraintsValid: true,
			IsCA:                  true,
			MaxPathLen:            cfg.interMaxPath,
			MaxPathLenZero:        cfg.interMaxPath == 0,
		}, issuer, issuerKey, &key.PublicKey)
		topDown = append(topDown, cert)
		topDownKeys = append(topDownKeys, key)
		issuer, issuerKey = cert, key
	}
	for i := len(topDown) - 1; i >= 0; i-- {
		p.Intermediates = append(p.Intermediates, topDown[i])
		p.IntermediateKeys = append(p.IntermediateKeys, topDownKeys[i])
	}

	var leafPub crypto.PublicKey
	if cfg.leafECDSA {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		p.LeafKey, leafPub = key, &key.PublicKey
	} else {
		key := rsaKey(t)
		p.LeafKey, leafPub = key, &key.PublicKey
	}

	p.Leaf = issue(t, &x509.Certificate{
		Subject:               pkix.Name{CommonName: LeafDNSName},
		DNSNames:              []string{LeafDNSName},
		NotBefore:             cfg.leafNotBefore,
		NotAfter:              cfg.leafNotAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           cfg.leafExtUsage,
		ExtraExtensions:       cfg.leafExtra,
		BasicConstraintsValid: true,
	}, issuer, issuerKey, leafPub)

	return p
}

// X5C returns the x5c header value for the hierarchy: leaf then intermediates,
// standard base64 DER, root excluded.
func (p *PKI) X5C() []string {
	out := []string{base64.StdEncoding.EncodeToString(p.Leaf.Raw)}
	for _, cert := range p.Intermediates {
		out = append(out, base64.StdEncoding.EncodeToString(cert.Raw))
	}
	return out
}

// Certificates returns the hierarchy in chain order, root included.
func (p *PKI) Certificates() []*x509.Certificate {
	out := append([]*x509.Certificate{p.Leaf}, p.Intermediates...)
	return append(out, p.Root)
}

// Token signs a well-formed RS512 token with the leaf key, carrying the x5c chain
// and the given nonce. Extra claims are merged into the payload.
func (p *PKI) Token(t testing.TB, nonce []byte, extraClaims map[string]any) string {
	t.Helper()

	claims := jwt.MapClaims{
		"iat":   time.Now().Unix(),
		"iss":   "https://" + LeafDNSName,
		"nonce": base64.StdEncoding.EncodeToString(nonce),
	}
	for k, v := range extraClaims {
		claims[k] = v
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS512, claims)
	tok.Header["x5c"] = p.X5C()

	signed, err := tok.SignedString(p.LeafRSAKey(t))
	require.NoError(t, err)
	return signed
}

// SignRaw builds a token from arbitrary header and payload values, marshalled
// as JSON unless they already are a []byte, and signs it with RS512 using key.
func SignRaw(t testing.TB, header, payload any, key *rsa.PrivateKey) string {
	t.Helper()

	signingInput := Segment(t, header) + "." + Segment(t, payload)
	sig, err := jwt.SigningMethodRS512.Sign(signingInput, key)
	require.NoError(t, err)
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// Segment encodes v as an unpadded base64url token segment.
func Segment(t testing.TB, v any) string {
	t.Helper()

	b, ok := v.([]byte)
	if !ok {
		var err error
		b, err = json.Marshal(v)
		require.NoError(t, err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// LeafRSAKey returns the leaf key, or a fresh unrelated RSA key when the leaf uses ECDSA.
func (p *PKI) LeafRSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()

	if key, ok := p.LeafKey.(*rsa.PrivateKey); ok {
		return key
	}
	return rsaKey(t)
}

func rsaKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// issue signs template with parentKey. A nil parent self-signs.
func issue(t testing.TB, template, parent *x509.Certificate, parentKey *rsa.PrivateKey, pub crypto.PublicKey) *x509.Certificate {
	t.Helper()

	template.SerialNumber = big.NewInt(serial.Add(1))
	if parent == nil {
		parent = template
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, parentKey)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}
