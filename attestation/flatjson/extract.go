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

package flatjson

import (
	"errors"
	"fmt"

	"github.com/openpcc/seatattest/attestation/b64"
	"github.com/openpcc/seatattest/attestation/nonce"
)

const (
	// AlgRS512 is the only signature algorithm a token header may declare.
	AlgRS512 = "RS512"
	// MaxX5CCerts is the maximum number of certificates a token may carry,
	// the leaf plus at most two intermediates. The root is never included.
	MaxX5CCerts = 3
)

var (
	ErrAlgorithmMismatch = errors.New("unsupported signature algorithm")
	ErrNoCerts           = errors.New("x5c carries no certificates")
	ErrTooManyCerts      = fmt.Errorf("x5c carries more than %d certificates", MaxX5CCerts)
	ErrNonceDecode       = errors.New("nonce is not valid base64")
	ErrNonceMismatch     = errors.New("nonce does not match")
)

// Header holds the fields of a token header the verifier acts on.
type Header struct {
	Alg string
	X5C []string
}

// ParseHeader extracts and checks alg and x5c from a decoded token header.
func ParseHeader(b []byte) (*Header, error) {
	obj, err := Scan(b)
	if err != nil {
		return nil, fmt.Errorf("failed to scan header: %w", err)
	}

	alg, err := obj.String("alg")
	if err != nil {
		return nil, err
	}
	if alg != AlgRS512 {
		return nil, fmt.Errorf("%w: %q", ErrAlgorithmMismatch, alg)
	}

	x5c, err := obj.Strings("x5c")
	if err != nil {
		return nil, err
	}
	if len(x5c) == 0 {
		return nil, ErrNoCerts
	}
	if len(x5c) > MaxX5CCerts {
		return nil, fmt.Errorf("%w: got %d", ErrTooManyCerts, len(x5c))
	}

	return &Header{
		Alg: alg,
		X5C: x5c,
	}, nil
}

// Payload holds the fields of a token payload the verifier acts on.
type Payload struct {
	Nonce []byte
}

// ParsePayload extracts the nonce from a decoded token payload and compares it
// against expected, the nonce the caller sent with its challenge.
func ParsePayload(b []byte, expected []byte) (*Payload, error) {
	obj, err := Scan(b)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payload: %w", err)
	}

	encoded, err := obj.String("nonce")
	if err != nil {
		return nil, err
	}

	got := b64.DecodeStd(encoded)
	if len(got) == 0 {
		return nil, ErrNonceDecode
	}

	if !nonce.Equal(got, expected) {
		return nil, ErrNonceMismatch
	}

	return &Payload{
		Nonce: got,
	}, nil
}
