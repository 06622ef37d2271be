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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestSplitToken(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		tok, err := SplitToken("aGVhZGVy.cGF5bG9hZA.c2ln")
		require.NoError(t, err)
		require.Equal(t, Token{Header: "aGVhZGVy", Payload: "cGF5bG9hZA", Signature: "c2ln"}, tok)
		require.Equal(t, []byte("aGVhZGVy.cGF5bG9hZA"), tok.SigningInput())
		require.Equal(t, "aGVhZGVy.cGF5bG9hZA.c2ln", tok.String())
	})

	tests := map[string]struct {
		raw string
		err error
	}{
		"no separators":    {raw: "aGVhZGVy", err: ErrInvalidTokenFormat},
		"one separator":    {raw: "aGVhZGVy.cGF5bG9hZA", err: ErrInvalidTokenFormat},
		"three separators": {raw: "a.b.c.d", err: ErrInvalidTokenFormat},
		"empty":            {raw: "", err: ErrInvalidTokenFormat},
		"empty header":     {raw: ".cGF5bG9hZA.c2ln", err: ErrEmptySegment},
		"empty payload":    {raw: "aGVhZGVy..c2ln", err: ErrEmptySegment},
		"empty signature":  {raw: "aGVhZGVy.cGF5bG9hZA.", err: ErrEmptySegment},
		"only separators":  {raw: "..", err: ErrEmptySegment},
	}
	for name, tc := range tests {
		t.Run("fail, "+name, func(t *testing.T) {
			_, err := SplitToken(tc.raw)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestFromToken(t *testing.T) {
	t.Run("ok, round trips through ToJWT", func(t *testing.T) {
		raw := "aGVhZGVy.cGF5bG9hZA.c2lnbmF0dXJl"
		se, err := FromToken(raw)
		require.NoError(t, err)
		require.Equal(t, SeatAttestationToken, se.Type)
		require.Equal(t, []byte("aGVhZGVy.cGF5bG9hZA"), se.Data)
		require.Equal(t, []byte("signature"), se.Signature)
		require.Equal(t, raw, se.ToJWT())
	})

	t.Run("fail, signature not base64url", func(t *testing.T) {
		_, err := FromToken("aGVhZGVy.cGF5bG9hZA.!!")
		require.Error(t, err)
	})
}

func TestSignedEvidencePieceBinary(t *testing.T) {
	tests := map[string]*SignedEvidencePiece{
		"full": {
			Type:      SeatAttestationToken,
			Data:      []byte("aGVhZGVy.cGF5bG9hZA"),
			Signature: []byte("signature"),
		},
		"unspecified type": {
			Data:      []byte("data"),
			Signature: []byte("sig"),
		},
	}

	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			b, err := want.MarshalBinary()
			require.NoError(t, err)

			got := &SignedEvidencePiece{}
			require.NoError(t, got.UnmarshalBinary(b))
			require.Empty(t, cmp.Diff(want, got))
		})
	}

	t.Run("ok, unknown fields skipped", func(t *testing.T) {
		b, err := tests["full"].MarshalBinary()
		require.NoError(t, err)
		b = protowire.AppendTag(b, 9, protowire.VarintType)
		b = protowire.AppendVarint(b, 42)

		got := &SignedEvidencePiece{}
		require.NoError(t, got.UnmarshalBinary(b))
		require.Equal(t, tests["full"].Data, got.Data)
	})

	t.Run("fail, truncated", func(t *testing.T) {
		b, err := tests["full"].MarshalBinary()
		require.NoError(t, err)

		got := &SignedEvidencePiece{}
		require.Error(t, got.UnmarshalBinary(b[:len(b)-1]))
	})

	t.Run("fail, negative type", func(t *testing.T) {
		_, err := (&SignedEvidencePiece{Type: -1}).MarshalBinary()
		require.Error(t, err)
	})

	t.Run("fail, type overflows int", func(t *testing.T) {
		b := protowire.AppendTag(nil, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, 1<<63)

		got := &SignedEvidencePiece{}
		require.Error(t, got.UnmarshalBinary(b))
	})
}

func TestEvidenceTypeString(t *testing.T) {
	require.Equal(t, "SeatAttestationToken", SeatAttestationToken.String())
	require.Equal(t, "EvidenceTypeUnspecified", EvidenceType(99).String())
}
