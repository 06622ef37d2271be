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

// Package b64 decodes the base64 and base64url text found in seat attestation tokens.
//
// The decoder is deliberately lenient about bytes outside the alphabet (they are
// skipped) and strict about structure: the number of symbols must be a non-zero
// multiple of four and at most two pad characters may end the input. Any failure
// yields a zero-length result, callers must treat that as "do not proceed".
package b64

const (
	stdAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	urlAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	padChar = '='
	invalid = 0x80
)

// decodeTable maps a byte to its 6-bit value, padChar to 0, everything else to invalid.
var decodeTable = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = invalid
	}
	for i := 0; i < len(stdAlphabet); i++ {
		t[stdAlphabet[i]] = byte(i)
	}
	t[padChar] = 0
	return t
}()

// DecodeStd decodes standard (padded) base64. It returns nil on failure.
func DecodeStd(text string) []byte {
	if len(text) == 0 {
		return nil
	}

	count := 0
	for i := 0; i < len(text); i++ {
		if decodeTable[text[i]] != invalid {
			count++
		}
	}
	if count == 0 || count%4 != 0 {
		return nil
	}

	out := make([]byte, 0, count/4*3)
	var (
		block [4]byte
		n     int
		pad   int
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		v := decodeTable[c]
		if v == invalid {
			continue
		}
		if c == padChar {
			pad++
		}
		block[n] = v
		n++
		if n < 4 {
			continue
		}

		out = append(out,
			block[0]<<2|block[1]>>4,
			block[1]<<4|block[2]>>2,
			block[2]<<6|block[3],
		)
		n = 0

		if pad == 0 {
			continue
		}
		switch pad {
		case 1:
			out = out[:len(out)-1]
		case 2:
			out = out[:len(out)-2]
		default:
			return nil
		}
		break
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// DecodeURL decodes base64url text with or without padding. It returns nil on failure.
func DecodeURL(text string) []byte {
	if len(text) == 0 {
		return nil
	}

	scratch := make([]byte, len(text), len(text)+3)
	copy(scratch, text)
	for len(scratch)%4 != 0 {
		scratch = append(scratch, padChar)
	}
	for i, c := range scratch {
		switch c {
		case '-':
			scratch[i] = '+'
		case '_':
			scratch[i] = '/'
		}
	}

	return DecodeStd(string(scratch))
}

// EncodeStd encodes b as padded standard base64.
func EncodeStd(b []byte) string {
	return encode(b, stdAlphabet, true)
}

// EncodeURL encodes b as unpadded base64url, the form used for token segments.
func EncodeURL(b []byte) string {
	return encode(b, urlAlphabet, false)
}

func encode(b []byte, alphabet string, pad bool) string {
	out := make([]byte, 0, (len(b)+2)/3*4)
	for i := 0; i+3 <= len(b); i += 3 {
		v := uint(b[i])<<16 | uint(b[i+1])<<8 | uint(b[i+2])
		out = append(out,
			alphabet[v>>18&0x3f],
			alphabet[v>>12&0x3f],
			alphabet[v>>6&0x3f],
			alphabet[v&0x3f],
		)
	}

	switch rem := len(b) % 3; rem {
	case 1:
		v := uint(b[len(b)-1]) << 16
		out = append(out, alphabet[v>>18&0x3f], alphabet[v>>12&0x3f])
		if pad {
			out = append(out, padChar, padChar)
		}
	case 2:
		v := uint(b[len(b)-2])<<16 | uint(b[len(b)-1])<<8
		out = append(out, alphabet[v>>18&0x3f], alphabet[v>>12&0x3f], alphabet[v>>6&0x3f])
		if pad {
			out = append(out, padChar)
		}
	}

	return string(out)
}
