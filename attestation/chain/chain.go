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

// Package chain assembles the certificate chain carried in a token's x5c header
// and validates it against the pinned root.
//
// A chain is always ordered leaf first and ends with the pinned root:
//
//	[leaf, intermediate..., root]
//
// Tokens never carry the root themselves, it is appended by [Build].
package chain

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/openpcc/seatattest/attestation/b64"
)

const (
	// MaxLen is the maximum number of certificates in an assembled chain, root included.
	MaxLen = 4
	// MaxIntermediates is the maximum number of certificates between leaf and root.
	MaxIntermediates = MaxLen - 2
)

var (
	ErrParse        = errors.New("failed to parse certificate")
	ErrEmpty        = errors.New("no certificates to build a chain from")
	ErrTooLong      = fmt.Errorf("chain is longer than %d certificates", MaxLen)
	ErrRootMismatch = errors.New("chain does not end at the pinned root")
	ErrNoRoot       = errors.New("no pinned root")
)

// Chain is an ordered certificate chain, leaf first and pinned root last.
type Chain []*x509.Certificate

// Leaf returns the certificate the token was signed with.
func (c Chain) Leaf() *x509.Certificate {
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// Root returns the last certificate of the chain.
func (c Chain) Root() *x509.Certificate {
	if len(c) == 0 {
		return nil
	}
	return c[len(c)-1]
}

// Intermediates returns the certificates between leaf and root.
func (c Chain) Intermediates() []*x509.Certificate {
	if len(c) < 2 {
		return nil
	}
	return c[1 : len(c)-1]
}

// ParseFunc turns one x5c entry into a certificate.
type ParseFunc func(encoded string) (*x509.Certificate, error)

// ParseDER decodes a base64 x5c entry and parses the DER certificate inside it.
func ParseDER(encoded string) (*x509.Certificate, error) {
	der := b64.DecodeStd(encoded)
	if len(der) == 0 {
		return nil, fmt.Errorf("%w: entry is not base64", ErrParse)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return cert, nil
}

// ParsePEM wraps a base64 x5c entry in PEM armor and parses the result.
func ParsePEM(encoded string) (*x509.Certificate, error) {
	var sb strings.Builder
	sb.WriteString("-----BEGIN CERTIFICATE-----\n")
	for len(encoded) > 64 {
		sb.WriteString(encoded[:64])
		sb.WriteByte('\n')
		encoded = encoded[64:]
	}
	sb.WriteString(encoded)
	sb.WriteString("\n-----END CERTIFICATE-----\n")

	block, rest := pem.Decode([]byte(sb.String()))
	if block == nil {
		return nil, fmt.Errorf("%w: entry is not PEM encodable", ErrParse)
	}
	if block.Type != "CERTIFICATE" || len(rest) != 0 {
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrParse, block.Type)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return cert, nil
}

// Build parses the x5c entries in order and appends root.
func Build(x5c []string, root *x509.Certificate, parse ParseFunc) (Chain, error) {
	if root == nil {
		return nil, ErrNoRoot
	}
	if len(x5c) == 0 {
		return nil, ErrEmpty
	}
	if len(x5c)+1 > MaxLen {
		return nil, fmt.Errorf("%w: %d certificates plus root", ErrTooLong, len(x5c))
	}

	c := make(Chain, 0, len(x5c)+1)
	for i, entry := range x5c {
		cert, err := parse(entry)
		if err != nil {
			return nil, fmt.Errorf("x5c[%d]: %w", i, err)
		}
		c = append(c, cert)
	}
	return append(c, root), nil
}
