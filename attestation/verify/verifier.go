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

// Package verify decides whether an attestation token from a cloud seat can be
// trusted.
//
// A token is accepted only when all of the following hold:
//   - it is three base64url segments, header, payload and signature;
//   - the header declares RS512 and carries an x5c chain of at most three certificates;
//   - the payload nonce equals the nonce the caller issued;
//   - the x5c chain, completed with the pinned root, is valid for server authentication;
//   - the signature over the header and payload verifies under the leaf key.
//
// Every failure is fatal. [Verify] only reports the verdict, [Verifier.VerifyToken]
// returns a [*VerificationError] describing the rejection.
package verify

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openpcc/seatattest/attestation/b64"
	"github.com/openpcc/seatattest/attestation/chain"
	"github.com/openpcc/seatattest/attestation/evidence"
	"github.com/openpcc/seatattest/attestation/flatjson"
	"github.com/openpcc/seatattest/internal/otelutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Verifier is immutable once created and safe for concurrent use.
type Verifier struct {
	cfg     Config
	backend Backend
	root    *x509.Certificate
	logger  *slog.Logger
	now     func() time.Time
}

// Result describes an accepted token.
type Result struct {
	ID       uuid.UUID
	Backend  string
	Header   *flatjson.Header
	Payload  *flatjson.Payload
	Chain    chain.Chain
	Evidence *evidence.SignedEvidencePiece
}

var defaultVerifier = sync.OnceValues(func() (*Verifier, error) {
	return New()
})

// Verify checks token against the pinned root and the nonce the caller issued,
// using the default verifier.
func Verify(token string, nonce []byte) bool {
	v, err := defaultVerifier()
	if err != nil {
		slog.Error("attestation verifier unavailable", "err", err)
		return false
	}
	return v.Verify(token, nonce)
}

// Verify reports whether token is trusted and was issued for nonce.
func (v *Verifier) Verify(token string, nonce []byte) bool {
	_, err := v.VerifyToken(context.Background(), token, nonce)
	return err == nil
}

// Backend returns the name of the backend in use.
func (v *Verifier) Backend() string {
	return v.backend.Name()
}

// VerifyToken runs the full verification pipeline. A nil error means every check
// passed, otherwise the error is a [*VerificationError].
func (v *Verifier) VerifyToken(ctx context.Context, token string, nonce []byte) (*Result, error) {
	ctx, span := otelutil.Tracer.Start(ctx, "verify.VerifyToken", trace.WithAttributes(
		attribute.String("backend", v.backend.Name()),
	))
	defer span.End()

	id := uuid.New()
	res, verr := v.run(token, nonce)
	if verr != nil {
		span.SetAttributes(attribute.String("stage", string(verr.Stage)))
		otelutil.RecordError(span, verr)
		v.log().WarnContext(ctx, "attestation rejected",
			"verification_id", id,
			"backend", v.backend.Name(),
			"stage", verr.Stage,
			"kind", verr.Kind,
			"err", verr.Err,
		)
		return nil, verr
	}

	res.ID = id
	span.SetAttributes(attribute.Int("chain_length", len(res.Chain)))
	span.SetStatus(codes.Ok, "")
	v.log().DebugContext(ctx, "attestation verified",
		"verification_id", id,
		"backend", v.backend.Name(),
		"leaf", res.Chain.Leaf().Subject.String(),
	)

	return res, nil
}

func (v *Verifier) run(token string, nonce []byte) (*Result, *VerificationError) {
	if len(token) > v.cfg.MaxTokenSize {
		return nil, reject(StageInput, ErrMalformed, fmt.Errorf("%w: %d bytes, limit %d", ErrTokenTooLarge, len(token), v.cfg.MaxTokenSize))
	}
	if len(nonce) < v.cfg.MinNonceSize {
		return nil, reject(StageInput, ErrPolicy, fmt.Errorf("%w: %d bytes, need %d", ErrNonceTooShort, len(nonce), v.cfg.MinNonceSize))
	}

	tok, err := evidence.SplitToken(token)
	if err != nil {
		return nil, reject(StageSplit, ErrMalformed, err)
	}

	headerJSON := b64.DecodeURL(tok.Header)
	if len(headerJSON) == 0 {
		return nil, reject(StageDecode, ErrMalformed, fmt.Errorf("%w: header", ErrSegmentDecode))
	}
	payloadJSON := b64.DecodeURL(tok.Payload)
	if len(payloadJSON) == 0 {
		return nil, reject(StageDecode, ErrMalformed, fmt.Errorf("%w: payload", ErrSegmentDecode))
	}
	sig := b64.DecodeURL(tok.Signature)
	if len(sig) == 0 {
		return nil, reject(StageDecode, ErrMalformed, fmt.Errorf("%w: signature", ErrSegmentDecode))
	}

	header, err := flatjson.ParseHeader(headerJSON)
	if err != nil {
		return nil, reject(StageHeader, parseKind(err), err)
	}

	payload, err := flatjson.ParsePayload(payloadJSON, nonce)
	if err != nil {
		return nil, reject(StagePayload, parseKind(err), err)
	}

	c, err := chain.Build(header.X5C, v.root, v.backend.ParseCertificate)
	if err != nil {
		return nil, reject(StageChain, ErrTrust, err)
	}

	if err := v.backend.ValidateChain(c, v.root, v.now()); err != nil {
		return nil, reject(StageValidate, ErrTrust, err)
	}

	signingInput := tok.SigningInput()
	if err := v.backend.VerifySignature(signingInput, sig, c.Leaf()); err != nil {
		kind := ErrCrypto
		if errors.Is(err, ErrUnsupportedKey) {
			kind = ErrPolicy
		}
		return nil, reject(StageSignature, kind, err)
	}

	return &Result{
		Backend: v.backend.Name(),
		Header:  header,
		Payload: payload,
		Chain:   c,
		Evidence: &evidence.SignedEvidencePiece{
			Type:      evidence.SeatAttestationToken,
			Data:      signingInput,
			Signature: sig,
		},
	}, nil
}

func (v *Verifier) log() *slog.Logger {
	if v.logger != nil {
		return v.logger
	}
	return slog.Default()
}
