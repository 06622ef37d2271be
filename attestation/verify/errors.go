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
	"errors"

	"github.com/openpcc/seatattest/attestation/flatjson"
)

// Every rejection matches exactly one of these kinds with [errors.Is].
var (
	ErrMalformed = errors.New("malformed token")
	ErrPolicy    = errors.New("token violates policy")
	ErrTrust     = errors.New("certificate chain not trusted")
	ErrCrypto    = errors.New("signature verification failed")
	ErrResource  = errors.New("verifier resources unavailable")
)

var (
	ErrTokenTooLarge = errors.New("token exceeds maximum size")
	ErrNonceTooShort = errors.New("nonce is too short")
	ErrSegmentDecode = errors.New("token segment is not base64url")
)

// Stage names the pipeline step a token was rejected at.
type Stage string

const (
	StageInput     Stage = "input"
	StageSplit     Stage = "split"
	StageDecode    Stage = "decode"
	StageHeader    Stage = "header"
	StagePayload   Stage = "payload"
	StageChain     Stage = "chain"
	StageValidate  Stage = "validate"
	StageSignature Stage = "signature"
)

// VerificationError reports why a token was rejected. It unwraps to both its
// Kind and the underlying error.
type VerificationError struct {
	Stage Stage
	Kind  error
	Err   error
}

func (e *VerificationError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func (e *VerificationError) Error() string {
	return string(e.Stage) + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func reject(stage Stage, kind, err error) *VerificationError {
	return &VerificationError{
		Stage: stage,
		Kind:  kind,
		Err:   err,
	}
}

// parseKind classifies header and payload errors. Input that is not the flat
// object shape at all is malformed, anything else failed a policy check.
func parseKind(err error) error {
	switch {
	case errors.Is(err, flatjson.ErrSyntax),
		errors.Is(err, flatjson.ErrNested),
		errors.Is(err, flatjson.ErrDuplicateKey):
		return ErrMalformed
	default:
		return ErrPolicy
	}
}
