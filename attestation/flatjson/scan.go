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

// Package flatjson extracts fields from the single flat JSON object that makes up a
// token header or payload. It is not a general JSON parser: values may be strings,
// numbers, literals or arrays of those, and anything nested deeper is rejected.
package flatjson

import (
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

var (
	ErrSyntax       = errors.New("syntax error")
	ErrNested       = errors.New("nested objects and arrays are not supported")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrMissingField = errors.New("missing field")
	ErrWrongType    = errors.New("field has wrong type")
)

// Kind is the type of a scanned value.
type Kind int

const (
	KindString Kind = iota + 1
	KindNumber
	KindLiteral
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindLiteral:
		return "literal"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a scanned value. Str holds the unescaped text for strings and the raw
// text for numbers and literals. Elems is only populated for arrays.
type Value struct {
	Kind  Kind
	Str   string
	Elems []Value
}

// Object is a scanned flat object.
type Object struct {
	fields map[string]Value
}

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Len returns the number of fields in the object.
func (o Object) Len() int {
	return len(o.fields)
}

// String returns the string stored under key.
func (o Object) String(key string) (string, error) {
	v, ok := o.fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	if v.Kind != KindString {
		return "", fmt.Errorf("%w: %q is a %s, want string", ErrWrongType, key, v.Kind)
	}
	return v.Str, nil
}

// Strings returns the array of strings stored under key.
func (o Object) Strings(key string) ([]string, error) {
	v, ok := o.fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	if v.Kind != KindArray {
		return nil, fmt.Errorf("%w: %q is a %s, want array", ErrWrongType, key, v.Kind)
	}
	out := make([]string, 0, len(v.Elems))
	for i, e := range v.Elems {
		if e.Kind != KindString {
			return nil, fmt.Errorf("%w: %q[%d] is a %s, want string", ErrWrongType, key, i, e.Kind)
		}
		out = append(out, e.Str)
	}
	return out, nil
}

// Scan tokenizes b, which must hold exactly one flat object and optional whitespace.
func Scan(b []byte) (Object, error) {
	s := &scanner{buf: b}
	obj, err := s.object()
	if err != nil {
		return Object{}, err
	}

	s.skipSpace()
	if s.pos != len(s.buf) {
		return Object{}, s.errorf("unexpected trailing data")
	}
	return obj, nil
}

type scanner struct {
	buf []byte
	pos int
}

func (s *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, s.pos, fmt.Sprintf(format, args...))
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.buf) {
		switch s.buf[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

// peek returns the next non-space byte without consuming it, or 0 at the end.
func (s *scanner) peek() byte {
	s.skipSpace()
	if s.pos >= len(s.buf) {
		return 0
	}
	return s.buf[s.pos]
}

func (s *scanner) expect(c byte) error {
	if s.peek() != c {
		if s.pos >= len(s.buf) {
			return s.errorf("expected %q, got end of input", c)
		}
		return s.errorf("expected %q, got %q", c, s.buf[s.pos])
	}
	s.pos++
	return nil
}

func (s *scanner) object() (Object, error) {
	if err := s.expect('{'); err != nil {
		return Object{}, err
	}

	obj := Object{fields: map[string]Value{}}
	if s.peek() == '}' {
		s.pos++
		return obj, nil
	}

	for {
		if s.peek() != '"' {
			return Object{}, s.errorf("expected object key")
		}
		key, err := s.str()
		if err != nil {
			return Object{}, err
		}
		if err := s.expect(':'); err != nil {
			return Object{}, err
		}
		val, err := s.value(true)
		if err != nil {
			return Object{}, fmt.Errorf("field %q: %w", key, err)
		}
		if _, ok := obj.fields[key]; ok {
			return Object{}, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		obj.fields[key] = val

		switch s.peek() {
		case ',':
			s.pos++
		case '}':
			s.pos++
			return obj, nil
		default:
			return Object{}, s.errorf("expected ',' or '}'")
		}
	}
}

func (s *scanner) value(allowArray bool) (Value, error) {
	switch c := s.peek(); {
	case c == '"':
		str, err := s.str()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindString, Str: str}, nil
	case c == '[':
		if !allowArray {
			return Value{}, ErrNested
		}
		return s.array()
	case c == '{':
		return Value{}, ErrNested
	case c == '-' || (c >= '0' && c <= '9'):
		return s.number()
	case c == 't':
		return s.literal("true")
	case c == 'f':
		return s.literal("false")
	case c == 'n':
		return s.literal("null")
	case c == 0:
		return Value{}, s.errorf("expected value, got end of input")
	default:
		return Value{}, s.errorf("unexpected %q", c)
	}
}

// array scans a single level array, elements are split on structure so a ',' or
// ']' inside a quoted element never ends it.
func (s *scanner) array() (Value, error) {
	s.pos++ // '['
	arr := Value{Kind: KindArray}
	if s.peek() == ']' {
		s.pos++
		return arr, nil
	}

	for {
		elem, err := s.value(false)
		if err != nil {
			return Value{}, err
		}
		arr.Elems = append(arr.Elems, elem)

		switch s.peek() {
		case ',':
			s.pos++
		case ']':
			s.pos++
			return arr, nil
		default:
			return Value{}, s.errorf("expected ',' or ']'")
		}
	}
}

func (s *scanner) literal(word string) (Value, error) {
	end := s.pos + len(word)
	if end > len(s.buf) || string(s.buf[s.pos:end]) != word {
		return Value{}, s.errorf("invalid literal")
	}
	s.pos = end
	return Value{Kind: KindLiteral, Str: word}, nil
}

func (s *scanner) number() (Value, error) {
	start := s.pos
	if s.buf[s.pos] == '-' {
		s.pos++
	}
	if s.digits() == 0 {
		return Value{}, s.errorf("invalid number")
	}
	if s.pos < len(s.buf) && s.buf[s.pos] == '.' {
		s.pos++
		if s.digits() == 0 {
			return Value{}, s.errorf("invalid fraction")
		}
	}
	if s.pos < len(s.buf) && (s.buf[s.pos] == 'e' || s.buf[s.pos] == 'E') {
		s.pos++
		if s.pos < len(s.buf) && (s.buf[s.pos] == '+' || s.buf[s.pos] == '-') {
			s.pos++
		}
		if s.digits() == 0 {
			return Value{}, s.errorf("invalid exponent")
		}
	}
	return Value{Kind: KindNumber, Str: string(s.buf[start:s.pos])}, nil
}

func (s *scanner) digits() int {
	n := 0
	for s.pos < len(s.buf) && s.buf[s.pos] >= '0' && s.buf[s.pos] <= '9' {
		s.pos++
		n++
	}
	return n
}

// str scans a quoted string, s.pos must be at the opening quote.
func (s *scanner) str() (string, error) {
	s.pos++ // '"'
	var out []byte
	for {
		if s.pos >= len(s.buf) {
			return "", s.errorf("unterminated string")
		}
		c := s.buf[s.pos]
		switch {
		case c == '"':
			s.pos++
			return string(out), nil
		case c < 0x20:
			return "", s.errorf("control character in string")
		case c == '\\':
			s.pos++
			r, err := s.escape()
			if err != nil {
				return "", err
			}
			out = utf8.AppendRune(out, r)
		default:
			out = append(out, c)
			s.pos++
		}
	}
}

// escape decodes the escape sequence following a backslash.
func (s *scanner) escape() (rune, error) {
	if s.pos >= len(s.buf) {
		return 0, s.errorf("unterminated escape")
	}
	c := s.buf[s.pos]
	s.pos++
	switch c {
	case '"', '\\', '/':
		return rune(c), nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'u':
		r, err := s.hex4()
		if err != nil {
			return 0, err
		}
		if !utf16.IsSurrogate(r) {
			return r, nil
		}
		if s.pos+1 < len(s.buf) && s.buf[s.pos] == '\\' && s.buf[s.pos+1] == 'u' {
			s.pos += 2
			r2, err := s.hex4()
			if err != nil {
				return 0, err
			}
			if dec := utf16.DecodeRune(r, r2); dec != utf8.RuneError {
				return dec, nil
			}
		}
		return utf8.RuneError, nil
	default:
		return 0, s.errorf("invalid escape %q", c)
	}
}

func (s *scanner) hex4() (rune, error) {
	if s.pos+4 > len(s.buf) {
		return 0, s.errorf("short unicode escape")
	}
	var r rune
	for _, c := range s.buf[s.pos : s.pos+4] {
		r <<= 4
		switch {
		case c >= '0' && c <= '9':
			r |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			r |= rune(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			r |= rune(c - 'A' + 10)
		default:
			return 0, s.errorf("invalid unicode escape")
		}
	}
	s.pos += 4
	return r, nil
}
