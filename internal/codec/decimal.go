// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimal wraps shopspring/decimal.Decimal to provide the explicit-sign,
// -0.x-preserving semantics the wire format requires (the server sends
// decimals as plain strings such as "-0.5" or "123456789000.1234005").
type Decimal struct {
	decimal.Decimal
	precision, scale int
	negativeZero     bool
}

// ParseDecimal decodes the server's textual decimal representation for a
// decimal(precision,scale) column.
func ParseDecimal(raw string, precision, scale int) (Decimal, error) {
	raw = strings.TrimSpace(raw)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Decimal{}, fmt.Errorf("codec: invalid decimal %q: %w", raw, err)
	}
	return Decimal{
		Decimal:      d,
		precision:    precision,
		scale:        scale,
		negativeZero: strings.HasPrefix(raw, "-0") && d.IsZero(),
	}, nil
}

// String renders the decimal back to its canonical textual form,
// preserving a leading '-' on a zero value if the source carried one.
func (d Decimal) String() string {
	s := d.Decimal.StringFixed(int32(d.scale))
	if d.negativeZero && !strings.HasPrefix(s, "-") {
		return "-" + s
	}
	return s
}

// ToFloat64 converts the decimal to a float64, matching the lossy
// conversion a caller opts into explicitly.
func (d Decimal) ToFloat64() float64 {
	f, _ := d.Decimal.Float64()
	return f
}

// ToInt64 returns the decimal's unscaled coefficient — the integer value
// it would hold if stored fixed-point at its declared scale — as an
// int64, reporting overflow rather than silently wrapping. A
// decimal(24,10) carries up to 24 significant digits at 10 fractional
// digits, so its coefficient routinely needs more than the ~19 digits
// an int64 can hold even though the decimal value itself fits its
// declared precision; 123456789000.1234005 at decimal(24,10) is exactly
// such a case.
func (d Decimal) ToInt64() (int64, error) {
	bi := d.Decimal.Shift(int32(d.scale)).Truncate(0).BigInt()
	if !bi.IsInt64() {
		return 0, fmt.Errorf("codec: decimal %s overflows int64 at scale %d", d.String(), d.scale)
	}
	return bi.Int64(), nil
}

// Overflows32 reports whether f lies outside the finite range of a
// 32-bit float (its magnitude exceeds math.MaxFloat32). Precision loss
// within that range is not detected.
func Overflows32(f float64) bool {
	return f > math.MaxFloat32 || f < -math.MaxFloat32
}
