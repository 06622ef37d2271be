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
	"crypto/x509"
	_ "embed"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"
)

var (
	//go:embed seat_root.pem
	SeatRootCert []byte
)

// PinnedRoot returns the compiled-in trust anchor. It is parsed once, the
// returned certificate is shared and must not be modified.
var PinnedRoot = sync.OnceValues(func() (*x509.Certificate, error) {
	return ParseRootPEM(SeatRootCert)
})

// ParseRootPEM parses a single PEM encoded root certificate. The certificate must
// be a self-signed CA.
func ParseRootPEM(b []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(b)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("failed to decode root certificate PEM")
	}

	root, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse root certificate: %w", err)
	}
	if !root.BasicConstraintsValid || !root.IsCA {
		return nil, errors.New("root certificate is not a CA")
	}
	if err := root.CheckSignatureFrom(root); err != nil {
		return nil, fmt.Errorf("root certificate is not self-signed: %w", err)
	}
	return root, nil
}
