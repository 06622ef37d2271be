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

package b64_test

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/openpcc/seatattest/attestation/b64"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	for size := 1; size <= 130; size++ {
		b := make([]byte, size)
		_, err := rand.Read(b)
		require.NoError(t, err)

		std := b64.EncodeStd(b)
		require.Equal(t, base64.StdEncoding.EncodeToString(b), std)
		require.Equal(t, b, b64.DecodeStd(std))

		url := b64.EncodeURL(b)
		require.Equal(t, base64.RawURLEncoding.EncodeToString(b), url)
		require.Equal(t, b, b64.DecodeURL(url))
	}
}

func TestDecodeStd(t *testing.T) {
	tests := map[string]struct {
		text string
		want []byte
	}{
		"ok, no padding":         {text: "AAEC", want: []byte{0, 1, 2}},
		"ok, one pad":            {text: "AAE=", want: []byte{0, 1}},
		"ok, two pads":           {text: "AA==", want: []byte{0}},
		"ok, skips whitespace":   {text: "AA\nEC\r\n", want: []byte{0, 1, 2}},
		"ok, ignores after pads": {text: "AA==AAEC", want: []byte{0}},
		"fail, empty":            {text: "", want: nil},
		"fail, no symbols":       {text: "\n\t !", want: nil},
		"fail, partial group":    {text: "AAE", want: nil},
		"fail, three pads":       {text: "A===", want: nil},
		"fail, four pads":        {text: "====", want: nil},
		"fail, url alphabet":     {text: "-_-_", want: nil},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := b64.DecodeStd(tc.text)
			if tc.want == nil {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeURL(t *testing.T) {
	tests := map[string]struct {
		text string
		want []byte
	}{
		"ok, unpadded":          {text: "-_8", want: []byte{0xfb, 0xff}},
		"ok, already padded":    {text: "-_8=", want: []byte{0xfb, 0xff}},
		"ok, single byte":       {text: "AA", want: []byte{0}},
		"ok, std chars too":     {text: "+/8", want: []byte{0xfb, 0xff}},
		"fail, empty":           {text: "", want: nil},
		"fail, one dangling":    {text: "AAAAA", want: nil},
		"fail, only separators": {text: "..", want: nil},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := b64.DecodeURL(tc.text)
			if tc.want == nil {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tc.want, got)
		})
	}
}
