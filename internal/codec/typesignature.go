// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// Signature is a parsed declared-type string, e.g. the raw type
// "array(map(varchar,decimal(24,10)))" parses to a Signature whose Base is
// "array" and whose single child parses recursively to "map" with two
// children "varchar" and "decimal(24,10)".
//
// The grammar is `base ( params )?` where params may itself contain
// further commas and nested parentheses. Splitting on the first '(' and
// the last ')' gives the parameter block; the block is then split on
// top-level commas (commas not nested inside a deeper pair of
// parentheses) to get each child signature, which is parsed recursively.
type Signature struct {
	Base string
	Args []string // raw, unparsed children (each itself a valid signature string)
}

// ParseSignature parses a single declared type string.
func ParseSignature(raw string) (Signature, error) {
	raw = strings.TrimSpace(raw)
	open := strings.IndexByte(raw, '(')
	if open < 0 {
		return Signature{Base: strings.ToLower(raw)}, nil
	}
	close := strings.LastIndexByte(raw, ')')
	if close < open {
		return Signature{}, fmt.Errorf("codec: malformed type signature %q", raw)
	}
	// Most types put their parameter block at the end ("array(...)",
	// "decimal(24,10)"), but multi-word types such as
	// "timestamp(3) with time zone" embed it in the middle. Rejoining the
	// text before '(' and after ')' recovers the full base name in both
	// cases.
	base := strings.ToLower(strings.TrimSpace(strings.Join(
		strings.Fields(raw[:open]+" "+raw[close+1:]), " ")))
	params := raw[open+1 : close]
	args, err := splitTopLevel(params)
	if err != nil {
		return Signature{}, fmt.Errorf("codec: malformed type signature %q: %w", raw, err)
	}
	return Signature{Base: base, Args: args}, nil
}

// Child parses the i'th argument as its own Signature.
func (s Signature) Child(i int) (Signature, error) {
	if i < 0 || i >= len(s.Args) {
		return Signature{}, fmt.Errorf("codec: type signature %q has no argument %d", s.Base, i)
	}
	return ParseSignature(s.Args[i])
}

// DecimalPrecisionScale parses the two integer arguments of a
// decimal(p,s) signature.
func (s Signature) DecimalPrecisionScale() (precision, scale int, err error) {
	if s.Base != "decimal" || len(s.Args) != 2 {
		return 0, 0, fmt.Errorf("codec: not a decimal(p,s) signature: %q", s.Base)
	}
	precision, err = strconv.Atoi(strings.TrimSpace(s.Args[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("codec: invalid decimal precision %q: %w", s.Args[0], err)
	}
	scale, err = strconv.Atoi(strings.TrimSpace(s.Args[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("codec: invalid decimal scale %q: %w", s.Args[1], err)
	}
	return precision, scale, nil
}

// precision returns the single integer time-precision argument carried by
// types like "timestamp(3) with time zone", if present.
func (s Signature) precision() (int, bool) {
	if len(s.Args) != 1 {
		return 0, false
	}
	p, err := strconv.Atoi(strings.TrimSpace(s.Args[0]))
	if err != nil {
		return 0, false
	}
	return p, true
}

// CharLength parses the single integer argument of a char(n) signature.
func (s Signature) CharLength() (int, error) {
	if s.Base != "char" || len(s.Args) != 1 {
		return 0, fmt.Errorf("codec: not a char(n) signature: %q", s.Base)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s.Args[0]))
	if err != nil {
		return 0, fmt.Errorf("codec: invalid char length %q: %w", s.Args[0], err)
	}
	return n, nil
}

// splitTopLevel splits params on commas that are not nested inside a
// deeper pair of parentheses, so "varchar,decimal(24,10)" yields
// ["varchar", "decimal(24,10)"] rather than splitting the inner comma.
func splitTopLevel(params string) ([]string, error) {
	if strings.TrimSpace(params) == "" {
		return nil, nil
	}
	var out []string
	depth := 0
	start := 0
	for i, r := range params {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", params)
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(params[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", params)
	}
	out = append(out, strings.TrimSpace(params[start:]))
	return out, nil
}
