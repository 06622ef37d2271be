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

package evidence

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ccoveille/go-safecast"
	"github.com/openpcc/seatattest/attestation/b64"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrInvalidTokenFormat = errors.New("invalid token format")
	ErrEmptySegment       = errors.New("empty token segment")
)

//revive:disable:exported
type EvidenceType int

//revive:enable:exported
const (
	EvidenceTypeUnspecified EvidenceType = iota
	SeatAttestationToken
)

func (s EvidenceType) String() string {
	switch s {
	case SeatAttestationToken:
		return "SeatAttestationToken"
	case EvidenceTypeUnspecified:
		// for completeness, we must include unspecified. revive:useless-fallthrough triggers if there is no comment
		fallthrough
	default:
		return "EvidenceTypeUnspecified"
	}
}

// Token holds the three undecoded segments of a compact attestation token.
type Token struct {
	Header    string
	Payload   string
	Signature string
}

// SplitToken splits raw into its header, payload and signature segments. Exactly two
// separators are required and no segment may be empty.
func SplitToken(raw string) (Token, error) {
	if strings.Count(raw, ".") != 2 {
		return Token{}, fmt.Errorf("%w: want 3 segments, got %d", ErrInvalidTokenFormat, strings.Count(raw, ".")+1)
	}

	parts := strings.SplitN(raw, ".", 3)
	for i, name := range []string{"header", "payload", "signature"} {
		if parts[i] == "" {
			return Token{}, fmt.Errorf("%w: %s", ErrEmptySegment, name)
		}
	}

	return Token{
		Header:    parts[0],
		Payload:   parts[1],
		Signature: parts[2],
	}, nil
}

// SigningInput returns the bytes the token signature covers, the wire form of the
// header and payload joined by a dot.
func (t Token) SigningInput() []byte {
	return []byte(t.Header + "." + t.Payload)
}

func (t Token) String() string {
	return t.Header + "." + t.Payload + "." + t.Signature
}

type SignedEvidencePiece struct {
	Type      EvidenceType
	Data      []byte
	Signature []byte
}

// FromToken converts a compact token into an evidence piece whose Data is the
// signing input and whose Signature is the decoded signature segment.
func FromToken(raw string) (*SignedEvidencePiece, error) {
	tok, err := SplitToken(raw)
	if err != nil {
		return nil, err
	}

	sig := b64.DecodeURL(tok.Signature)
	if len(sig) == 0 {
		return nil, errors.New("invalid signature: not base64url")
	}

	return &SignedEvidencePiece{
		Type:      SeatAttestationToken,
		Data:      tok.SigningInput(),
		Signature: sig,
	}, nil
}

// ToJWT rebuilds the compact token the piece was created from.
func (se *SignedEvidencePiece) ToJWT() string {
	return string(se.Data) + "." + b64.EncodeURL(se.Signature)
}

const (
	fieldType      protowire.Number = 1
	fieldData      protowire.Number = 2
	fieldSignature protowire.Number = 3
)

// MarshalBinary encodes the piece in protobuf wire format.
func (se *SignedEvidencePiece) MarshalBinary() ([]byte, error) {
	var b []byte
	if se.Type != EvidenceTypeUnspecified {
		typ, err := safecast.ToUint64(int(se.Type))
		if err != nil {
			return nil, fmt.Errorf("invalid evidence type %d: %w", se.Type, err)
		}
		b = protowire.AppendTag(b, fieldType, protowire.VarintType)
		b = protowire.AppendVarint(b, typ)
	}
	if len(se.Data) > 0 {
		b = protowire.AppendTag(b, fieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, se.Data)
	}
	if len(se.Signature) > 0 {
		b = protowire.AppendTag(b, fieldSignature, protowire.BytesType)
		b = protowire.AppendBytes(b, se.Signature)
	}
	return b, nil
}

// UnmarshalBinary decodes a piece produced by MarshalBinary. Unknown fields are skipped.
func (se *SignedEvidencePiece) UnmarshalBinary(data []byte) error {
	*se = SignedEvidencePiece{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("failed to consume tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("failed to consume type: %w", protowire.ParseError(n))
			}
			typ, err := safecast.ToInt(v)
			if err != nil {
				return fmt.Errorf("invalid evidence type: %w", err)
			}
			se.Type = EvidenceType(typ)
			data = data[n:]
		case num == fieldData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("failed to consume data: %w", protowire.ParseError(n))
			}
			se.Data = bytes.Clone(v)
			data = data[n:]
		case num == fieldSignature && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("failed to consume signature: %w", protowire.ParseError(n))
			}
			se.Signature = bytes.Clone(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("failed to skip field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}
