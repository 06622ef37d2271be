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

package verify

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openpcc/seatattest/attestation/chain"
)

const (
	BackendPool = "pool"
	BackendWalk = "walk"
)

var (
	ErrUnknownBackend = errors.New("unknown verification backend")
	ErrUnsupportedKey = errors.New("leaf key is not an RSA public key")
)

// Backend supplies the certificate parsing, chain validation and signature
// primitives of a verifier. Implementations enforce the same trust policy.
type Backend interface {
	Name() string
	ParseCertificate(encoded string) (*x509.Certificate, error)
	ValidateChain(c chain.Chain, root *x509.Certificate, now time.Time) error
	VerifySignature(signingInput, sig []byte, leaf *x509.Certificate) error
}

// BackendByName returns the backend registered under name.
func BackendByName(name string) (Backend, error) {
	switch name {
	case BackendPool:
		return PoolBackend{}, nil
	case BackendWalk:
		return WalkBackend{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// PoolBackend parses DER, validates with the standard library path builder and
// checks signatures with crypto/rsa directly.
type PoolBackend struct{}

func (PoolBackend) Name() string {
	return BackendPool
}

func (PoolBackend) ParseCertificate(encoded string) (*x509.Certificate, error) {
	return chain.ParseDER(encoded)
}

func (PoolBackend) ValidateChain(c chain.Chain, root *x509.Certificate, now time.Time) error {
	return chain.ValidatePool(c, root, now)
}

func (PoolBackend) VerifySignature(signingInput, sig []byte, leaf *x509.Certificate) error {
	pub, err := rsaPublicKey(leaf)
	if err != nil {
		return err
	}

	digest := sha512.Sum512(signingInput)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA512, digest[:], sig)
}

// WalkBackend parses PEM armored entries, checks every chain link explicitly and
// verifies signatures with the RS512 signing method of golang-jwt.
type WalkBackend struct{}

func (WalkBackend) Name() string {
	return BackendWalk
}

func (WalkBackend) ParseCertificate(encoded string) (*x509.Certificate, error) {
	return chain.ParsePEM(encoded)
}

func (WalkBackend) ValidateChain(c chain.Chain, root *x509.Certificate, now time.Time) error {
	return chain.ValidateWalk(c, root, now)
}

func (WalkBackend) VerifySignature(signingInput, sig []byte, leaf *x509.Certificate) error {
	pub, err := rsaPublicKey(leaf)
	if err != nil {
		return err
	}

	return jwt.SigningMethodRS512.Verify(string(signingInput), sig, pub)
}

func rsaPublicKey(leaf *x509.Certificate) (*rsa.PublicKey, error) {
	pub, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedKey, leaf.PublicKey)
	}
	return pub, nil
}
