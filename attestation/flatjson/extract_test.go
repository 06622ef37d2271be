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

package flatjson_test

import (
	"testing"

	"github.com/openpcc/seatattest/attestation/b64"
	"github.com/openpcc/seatattest/attestation/flatjson"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	t.Run("ok, leaf and intermediates, extra fields ignored", func(t *testing.T) {
		h, err := flatjson.ParseHeader([]byte(`{"alg":"RS512","typ":"JWT","x5c":["MIIB","MIIC","MIID"]}`))
		require.NoError(t, err)
		require.Equal(t, flatjson.AlgRS512, h.Alg)
		require.Equal(t, []string{"MIIB", "MIIC", "MIID"}, h.X5C)
	})

	t.Run("ok, escaped slashes in certificates", func(t *testing.T) {
		h, err := flatjson.ParseHeader([]byte(`{"x5c":["ab\/cd+=="],"alg":"RS512"}`))
		require.NoError(t, err)
		require.Equal(t, []string{"ab/cd+=="}, h.X5C)
	})

	failures := map[string]struct {
		input string
		err   error
	}{
		"RS256":              {input: `{"alg":"RS256","x5c":["MIIB"]}`, err: flatjson.ErrAlgorithmMismatch},
		"lowercase alg":      {input: `{"alg":"rs512","x5c":["MIIB"]}`, err: flatjson.ErrAlgorithmMismatch},
		"none":               {input: `{"alg":"none","x5c":["MIIB"]}`, err: flatjson.ErrAlgorithmMismatch},
		"alg not a string":   {input: `{"alg":512,"x5c":["MIIB"]}`, err: flatjson.ErrWrongType},
		"missing alg":        {input: `{"x5c":["MIIB"]}`, err: flatjson.ErrMissingField},
		"missing x5c":        {input: `{"alg":"RS512"}`, err: flatjson.ErrMissingField},
		"x5c not an array":   {input: `{"alg":"RS512","x5c":"MIIB"}`, err: flatjson.ErrWrongType},
		"x5c empty":          {input: `{"alg":"RS512","x5c":[]}`, err: flatjson.ErrNoCerts},
		"x5c four entries":   {input: `{"alg":"RS512","x5c":["a","b","c","d"]}`, err: flatjson.ErrTooManyCerts},
		"x5c number element": {input: `{"alg":"RS512","x5c":["a",1]}`, err: flatjson.ErrWrongType},
		"not json":           {input: `alg=RS512`, err: flatjson.ErrSyntax},
	}

	for name, tc := range failures {
		t.Run("fail, "+name, func(t *testing.T) {
			_, err := flatjson.ParseHeader([]byte(tc.input))
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestParsePayload(t *testing.T) {
	expected := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f}
	other := []byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f}

	t.Run("ok, matching nonce", func(t *testing.T) {
		p, err := flatjson.ParsePayload([]byte(`{"iat":1791968855,"nonce":"AAECAwQFBgcICQoLDA0ODw==","seat":"s-1"}`), expected)
		require.NoError(t, err)
		require.Equal(t, expected, p.Nonce)
	})

	failures := map[string]struct {
		input string
		err   error
	}{
		"different nonce":   {input: `{"nonce":"` + b64.EncodeStd(other) + `"}`, err: flatjson.ErrNonceMismatch},
		"truncated nonce":   {input: `{"nonce":"` + b64.EncodeStd(expected[:15]) + `"}`, err: flatjson.ErrNonceMismatch},
		"longer nonce":      {input: `{"nonce":"` + b64.EncodeStd(append(expected, 0x10)) + `"}`, err: flatjson.ErrNonceMismatch},
		"nonce not base64":  {input: `{"nonce":"!!!"}`, err: flatjson.ErrNonceDecode},
		"nonce empty":       {input: `{"nonce":""}`, err: flatjson.ErrNonceDecode},
		"nonce not string":  {input: `{"nonce":16}`, err: flatjson.ErrWrongType},
		"missing nonce":     {input: `{"iat":1}`, err: flatjson.ErrMissingField},
		"nested claim":      {input: `{"nonce":"AAECAwQFBgcICQoLDA0ODw==","tee":{"a":1}}`, err: flatjson.ErrNested},
		"duplicated nonce":  {input: `{"nonce":"AAECAwQFBgcICQoLDA0ODw==","nonce":"AAAA"}`, err: flatjson.ErrDuplicateKey},
		"garbage after obj": {input: `{"nonce":"AAECAwQFBgcICQoLDA0ODw=="}x`, err: flatjson.ErrSyntax},
	}

	for name, tc := range failures {
		t.Run("fail, "+name, func(t *testing.T) {
			_, err := flatjson.ParsePayload([]byte(tc.input), expected)
			require.ErrorIs(t, err, tc.err)
		})
	}
}
