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

// Package nonce generates and compares the single-use challenge values that bind
// an attestation token to one request.
package nonce

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
)

const (
	// MinSize is the smallest nonce, in bytes, a challenge may use.
	MinSize = 16
	// DefaultSize is the nonce size used when the caller has no preference.
	DefaultSize = 32
)

// Generate returns size bytes read from the system CSPRNG.
func Generate(size int) ([]byte, error) {
	if size < MinSize {
		return nil, fmt.Errorf("nonce size is %d, need at least %d bytes", size, MinSize)
	}

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// Equal reports whether a and b hold the same bytes. The time taken depends only
// on the lengths, never on the contents.
func Equal(a, b []byte) bool {
	return len(a) != 0 && subtle.ConstantTimeCompare(a, b) == 1
}
