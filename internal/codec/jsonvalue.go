// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package codec decodes the server's JSON-encoded row values into typed
// host values, and encodes host values back into SQL literal expressions
// for prepared EXECUTE statements.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies the dynamic shape of a decoded JSON value, carried
// through the decoder boundary before it is mapped onto a declared SQL
// type.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a tagged variant over the JSON value space: Null, Bool, Number
// (kept as the raw json.Number so callers choose int64/float64/decimal
// precision themselves), String, Array, and Object. It exists so that
// TypeCodec never carries bare `any` across its boundary.
type Value struct {
	Kind Kind
	Bool bool
	Num  json.Number
	Str  string
	Arr  []Value
	Obj  map[string]Value
}

// ParseValue decodes a single JSON-encoded cell into a Value.
func ParseValue(raw json.RawMessage) (Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Value{Kind: KindNull}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, fmt.Errorf("codec: decode json value: %w", err)
	}
	return fromAny(v)
}

func fromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Value{Kind: KindNull}, nil
	case bool:
		return Value{Kind: KindBool, Bool: t}, nil
	case json.Number:
		return Value{Kind: KindNumber, Num: t}, nil
	case string:
		return Value{Kind: KindString, Str: t}, nil
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			ev, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			out[i] = ev
		}
		return Value{Kind: KindArray, Arr: out}, nil
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			out[k] = ev
		}
		return Value{Kind: KindObject, Obj: out}, nil
	default:
		return Value{}, fmt.Errorf("codec: unsupported json value type %T", v)
	}
}

// Raw returns the original JSON encoding, used by the "json" logical type
// which passes the element through unmodified.
func (v Value) Raw() (json.RawMessage, error) {
	switch v.Kind {
	case KindNull:
		return json.RawMessage("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindNumber:
		return json.RawMessage(v.Num.String()), nil
	case KindString:
		return json.Marshal(v.Str)
	case KindArray:
		elems := make([]json.RawMessage, len(v.Arr))
		for i, e := range v.Arr {
			r, err := e.Raw()
			if err != nil {
				return nil, err
			}
			elems[i] = r
		}
		return json.Marshal(elems)
	case KindObject:
		m := make(map[string]json.RawMessage, len(v.Obj))
		for k, e := range v.Obj {
			r, err := e.Raw()
			if err != nil {
				return nil, err
			}
			m[k] = r
		}
		return json.Marshal(m)
	default:
		return nil, fmt.Errorf("codec: unknown value kind %d", v.Kind)
	}
}
