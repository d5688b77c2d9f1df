// Copyright © 2021 Rak Laptudirm <raklaptudirm@gmail.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bencode

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ravel-io/mtor/pkg/bencode/scanner"
	"github.com/ravel-io/mtor/pkg/bencode/token"
)

// Kind identifies which variant of the bencode sum type a Value holds.
type Kind int

const (
	KindBytes Kind = iota
	KindInt
	KindList
	KindDict
)

// ErrTrailingData is returned by DecodeAll when the input carries bytes
// after the first top-level value.
var ErrTrailingData = errors.New("bencode: trailing data after top-level value")

// Value is a closed, self-describing bencode value: a byte string, a
// signed integer, an ordered list of values, or a dict keyed by raw byte
// strings. It is read-only once constructed, as spec'd by the torrent's
// lifecycle: bencode values never mutate after decode.
type Value struct {
	kind Kind

	bytes []byte
	num   int64
	list  []Value
	// keys holds the dict's keys in ascending byte order, which is also
	// their canonical encoding order; dict maps each of those keys to
	// its value.
	keys []string
	dict map[string]Value
}

// Bytes wraps a raw byte string as a Value.
func Bytes(b []byte) Value { return Value{kind: KindBytes, bytes: b} }

// Int wraps a signed integer as a Value.
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

// List wraps an ordered sequence of values as a Value.
func List(v []Value) Value { return Value{kind: KindList, list: v} }

// Dict wraps a string-keyed map of values as a Value. The keys are
// sorted ascending by raw byte comparison so that Keys and Encode agree
// on canonical order regardless of the order m was built in.
func Dict(m map[string]Value) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	return Value{kind: KindDict, dict: m, keys: keys}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// AsBytes returns v's byte string and true, or nil and false if v is not
// a byte string.
func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.bytes, true
}

// AsInt returns v's integer and true, or 0 and false if v is not an
// integer.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.num, true
}

// AsList returns v's element slice and true, or nil and false if v is
// not a list.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsDict returns v's key set (in canonical ascending order) and a lookup
// function, or nil/false if v is not a dict.
func (v Value) AsDict() (keys []string, get func(string) (Value, bool), ok bool) {
	if v.kind != KindDict {
		return nil, nil, false
	}
	return v.keys, func(k string) (Value, bool) {
		val, ok := v.dict[k]
		return val, ok
	}, true
}

// Decode decodes a single bencode value from the front of data, and
// returns it along with any unconsumed trailing bytes.
func Decode(data []byte) (Value, []byte, error) {
	s := scanner.New(data)
	if err := s.Next(); err != nil {
		return Value{}, nil, err
	}

	d := &decoder{scanner: s}
	v, err := d.valueAsValue()
	if err != nil {
		return Value{}, nil, err
	}

	if len(s.Tokens) == 0 {
		return v, nil, nil
	}

	last := s.Tokens[len(s.Tokens)-1]
	end := last.Offset + len(last.Literal)
	return v, data[end:], nil
}

// DecodeAll decodes data as exactly one top-level bencode value, failing
// with ErrTrailingData if any bytes remain afterwards.
func DecodeAll(data []byte) (Value, error) {
	v, rest, err := Decode(data)
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, ErrTrailingData
	}
	return v, nil
}

// valueAsValue is the Value-producing counterpart of decoder.valueInterface:
// it walks the same token stream but materializes the closed sum type
// instead of an untyped any.
func (d *decoder) valueAsValue() (Value, error) {
	switch d.peek().Type {
	case token.DICT:
		return d.dictAsValue()
	case token.LIST:
		return d.listAsValue()
	case token.NUMBER:
		return d.numberAsValue()
	case token.STRING:
		return d.stringAsValue()
	default:
		panic(syntaxPanicMsg)
	}
}

func (d *decoder) dictAsValue() (Value, error) {
	d.mustConsume(token.DICT)

	// Ordering of dict keys is already enforced by the scanner while it
	// tokenizes; by the time the tokens reach here the stream is known
	// to be in strict ascending order.
	m := make(map[string]Value)
	for d.consume(token.STRING) {
		key := d.curr.RawString()

		val, err := d.valueAsValue()
		if err != nil {
			return Value{}, err
		}
		m[key] = val
	}

	d.mustConsume(token.END)
	return Dict(m), nil
}

func (d *decoder) listAsValue() (Value, error) {
	d.mustConsume(token.LIST)

	var v []Value
	for !d.consume(token.END) {
		val, err := d.valueAsValue()
		if err != nil {
			return Value{}, err
		}
		v = append(v, val)
	}

	return List(v), nil
}

func (d *decoder) numberAsValue() (Value, error) {
	n, err := d.numberInterface()
	if err != nil {
		return Value{}, err
	}
	return Int(n.(int64)), nil
}

func (d *decoder) stringAsValue() (Value, error) {
	d.mustConsume(token.STRING)
	return Bytes([]byte(d.curr.RawString())), nil
}

// EncodeValue renders v as canonical bencode bytes: dict keys ascending
// by raw byte order, integers without leading zeros. Encoding a Value
// decoded from well-formed bencode data always round-trips byte for
// byte, since the scanner that produced it already rejected
// non-canonical input.
func EncodeValue(v Value) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case KindBytes:
		fmt.Fprintf(buf, "%d:", len(v.bytes))
		buf.Write(v.bytes)
	case KindInt:
		fmt.Fprintf(buf, "i%de", v.num)
	case KindList:
		buf.WriteByte('l')
		for _, el := range v.list {
			writeValue(buf, el)
		}
		buf.WriteByte('e')
	case KindDict:
		buf.WriteByte('d')
		for _, k := range v.keys {
			fmt.Fprintf(buf, "%d:%s", len(k), k)
			writeValue(buf, v.dict[k])
		}
		buf.WriteByte('e')
	}
}

// JSON renders v as a JSON-safe value suitable for encoding/json: byte
// strings become UTF-8-lossy Go strings, dicts become string-keyed maps
// (encoding/json already sorts map keys on marshal, so this preserves
// ascending-key output for free).
func (v Value) JSON() any {
	switch v.kind {
	case KindBytes:
		return string(v.bytes)
	case KindInt:
		return v.num
	case KindList:
		out := make([]any, len(v.list))
		for i, el := range v.list {
			out[i] = el.JSON()
		}
		return out
	case KindDict:
		out := make(map[string]any, len(v.dict))
		for k, el := range v.dict {
			out[k] = el.JSON()
		}
		return out
	default:
		return nil
	}
}

// sortStrings sorts a []string ascending by raw byte comparison. Go's
// default string ordering already is byte-wise, so this is a thin,
// explicitly-named wrapper kept separate from sort.Strings to make the
// canonicality requirement (ascending raw byte order, not locale
// collation) explicit at the call site.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
