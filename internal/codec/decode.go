// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Date is a calendar date with no time-of-day or zone component.
type Date struct {
	Year, Month, Day int
}

// TimeOfDay is a time-of-day with no calendar date or zone component.
type TimeOfDay struct {
	Hour, Minute, Second, Nanosecond int
}

// Timestamp is a local date-time with no zone component.
type Timestamp struct {
	Date
	TimeOfDay
}

// OffsetDateTime is an instant paired with the UTC offset it was
// expressed in on the wire — the offset is preserved rather than
// collapsed into the instant, since "timestamp with time zone" values
// are defined by their (instant, offset) pair, not just the instant.
type OffsetDateTime struct {
	Timestamp
	Offset time.Duration // signed offset from UTC
}

// IntervalYearMonth is a signed {years, months} interval.
type IntervalYearMonth struct {
	Years, Months int
}

// IntervalDaySecond is a signed day-to-second interval.
type IntervalDaySecond struct {
	time.Duration
}

// Decode converts a JSON-encoded wire value into its host-native Go
// representation, per the declared type signature.
func Decode(v Value, sig Signature) (any, error) {
	switch sig.Base {
	case "bigint":
		return decodeInt(v, 64)
	case "integer":
		n, err := decodeInt(v, 32)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case "smallint":
		n, err := decodeInt(v, 16)
		if err != nil {
			return nil, err
		}
		return int16(n), nil
	case "tinyint":
		n, err := decodeInt(v, 8)
		if err != nil {
			return nil, err
		}
		return int8(n), nil
	case "boolean":
		if v.Kind != KindBool {
			return nil, fmt.Errorf("codec: expected boolean, got kind %d", v.Kind)
		}
		return v.Bool, nil
	case "double":
		return decodeDouble(v)
	case "real":
		f, err := decodeDouble(v)
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	case "decimal":
		precision, scale, err := sig.DecimalPrecisionScale()
		if err != nil {
			return nil, err
		}
		s, err := requireString(v)
		if err != nil {
			return nil, err
		}
		return ParseDecimal(s, precision, scale)
	case "date":
		s, err := requireString(v)
		if err != nil {
			return nil, err
		}
		return parseDate(s)
	case "time":
		s, err := requireString(v)
		if err != nil {
			return nil, err
		}
		return parseTimeOfDay(s)
	case "time with time zone":
		return requireString(v)
	case "timestamp":
		s, err := requireString(v)
		if err != nil {
			return nil, err
		}
		ts, err := parseTimestamp(s)
		if err != nil {
			return nil, err
		}
		if p, ok := sig.precision(); ok {
			ts.TimeOfDay = roundToPrecision(ts.TimeOfDay, p)
		}
		return ts, nil
	case "timestamp with time zone":
		s, err := requireString(v)
		if err != nil {
			return nil, err
		}
		odt, err := parseOffsetDateTime(s)
		if err != nil {
			return nil, err
		}
		if p, ok := sig.precision(); ok {
			odt.TimeOfDay = roundToPrecision(odt.TimeOfDay, p)
		}
		return odt, nil
	case "varchar":
		return requireString(v)
	case "char":
		n, err := sig.CharLength()
		if err != nil {
			return nil, err
		}
		s, err := requireString(v)
		if err != nil {
			return nil, err
		}
		return trimFixedPadding(s, n), nil
	case "uuid":
		s, err := requireString(v)
		if err != nil {
			return nil, err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("codec: invalid uuid %q: %w", s, err)
		}
		return id, nil
	case "varbinary":
		s, err := requireString(v)
		if err != nil {
			return nil, err
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("codec: invalid varbinary base64: %w", err)
		}
		return b, nil
	case "interval year to month":
		s, err := requireString(v)
		if err != nil {
			return nil, err
		}
		return parseIntervalYearMonth(s)
	case "interval day to second":
		s, err := requireString(v)
		if err != nil {
			return nil, err
		}
		return parseIntervalDaySecond(s)
	case "array":
		child, err := sig.Child(0)
		if err != nil {
			return nil, err
		}
		if v.Kind == KindNull {
			return nil, nil
		}
		if v.Kind != KindArray {
			return nil, fmt.Errorf("codec: expected array, got kind %d", v.Kind)
		}
		out := make([]any, len(v.Arr))
		for i, e := range v.Arr {
			dv, err := Decode(e, child)
			if err != nil {
				return nil, fmt.Errorf("codec: array element %d: %w", i, err)
			}
			out[i] = dv
		}
		return out, nil
	case "map":
		keySig, err := sig.Child(0)
		if err != nil {
			return nil, err
		}
		valSig, err := sig.Child(1)
		if err != nil {
			return nil, err
		}
		if v.Kind == KindNull {
			return nil, nil
		}
		if v.Kind != KindObject {
			return nil, fmt.Errorf("codec: expected map, got kind %d", v.Kind)
		}
		out := make(map[any]any, len(v.Obj))
		for k, e := range v.Obj {
			dk, err := Decode(Value{Kind: KindString, Str: k}, keySig)
			if err != nil {
				return nil, fmt.Errorf("codec: map key %q: %w", k, err)
			}
			dv, err := Decode(e, valSig)
			if err != nil {
				return nil, fmt.Errorf("codec: map value for key %q: %w", k, err)
			}
			out[dk] = dv
		}
		return out, nil
	case "json":
		return v.Raw()
	case "ipaddress":
		return requireString(v)
	case "row":
		return decodeRow(v, sig)
	default:
		// Unknown/unmapped types pass through as their raw JSON form so a
		// caller can still inspect them, rather than failing the whole page.
		return v.Raw()
	}
}

func decodeRow(v Value, sig Signature) (any, error) {
	if v.Kind == KindNull {
		return nil, nil
	}
	if v.Kind != KindArray {
		return nil, fmt.Errorf("codec: expected row, got kind %d", v.Kind)
	}
	out := make([]any, len(v.Arr))
	for i, e := range v.Arr {
		if i >= len(sig.Args) {
			return nil, fmt.Errorf("codec: row has more fields than signature declares")
		}
		fieldSig, err := sig.Child(i)
		if err != nil {
			return nil, err
		}
		dv, err := Decode(e, fieldSig)
		if err != nil {
			return nil, fmt.Errorf("codec: row field %d: %w", i, err)
		}
		out[i] = dv
	}
	return out, nil
}

func requireString(v Value) (string, error) {
	if v.Kind == KindNull {
		return "", nil
	}
	if v.Kind != KindString {
		return "", fmt.Errorf("codec: expected string, got kind %d", v.Kind)
	}
	return v.Str, nil
}

func decodeInt(v Value, bits int) (int64, error) {
	if v.Kind == KindNull {
		return 0, nil
	}
	if v.Kind != KindNumber {
		return 0, fmt.Errorf("codec: expected number, got kind %d", v.Kind)
	}
	n, err := strconv.ParseInt(v.Num.String(), 10, bits)
	if err != nil {
		return 0, fmt.Errorf("codec: invalid integer %q: %w", v.Num.String(), err)
	}
	return n, nil
}

func decodeDouble(v Value) (float64, error) {
	switch v.Kind {
	case KindNull:
		return 0, nil
	case KindString:
		if v.Str == "NaN" {
			return math.NaN(), nil
		}
		if v.Str == "Infinity" {
			return math.Inf(1), nil
		}
		if v.Str == "-Infinity" {
			return math.Inf(-1), nil
		}
		return strconv.ParseFloat(v.Str, 64)
	case KindNumber:
		return v.Num.Float64()
	default:
		return 0, fmt.Errorf("codec: expected double, got kind %d", v.Kind)
	}
}

func parseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("codec: invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
}

func parseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("codec: invalid time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("codec: invalid time %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("codec: invalid time %q: %w", s, err)
	}
	secStr := parts[2]
	var sec int
	var nanos int
	if dot := strings.IndexByte(secStr, '.'); dot >= 0 {
		sec, err = strconv.Atoi(secStr[:dot])
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("codec: invalid time %q: %w", s, err)
		}
		nanos, err = parseFraction(secStr[dot+1:])
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("codec: invalid time %q: %w", s, err)
		}
	} else {
		sec, err = strconv.Atoi(secStr)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("codec: invalid time %q: %w", s, err)
		}
	}
	return TimeOfDay{Hour: hour, Minute: minute, Second: sec, Nanosecond: nanos}, nil
}

// parseFraction converts a fractional-seconds digit string of any length
// up to 9 digits into nanoseconds, right-padding with zeros.
func parseFraction(digits string) (int, error) {
	if len(digits) > 9 {
		digits = digits[:9]
	}
	padded := digits + strings.Repeat("0", 9-len(digits))
	n, err := strconv.Atoi(padded)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func parseTimestamp(s string) (Timestamp, error) {
	parts := strings.SplitN(s, " ", 2)
	if len(parts) != 2 {
		parts = strings.SplitN(s, "T", 2)
	}
	if len(parts) != 2 {
		return Timestamp{}, fmt.Errorf("codec: invalid timestamp %q", s)
	}
	d, err := parseDate(parts[0])
	if err != nil {
		return Timestamp{}, err
	}
	t, err := parseTimeOfDay(parts[1])
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Date: d, TimeOfDay: t}, nil
}

// timestampTZPattern preserves sub-second fractions up to 7 fractional
// digits (100-ns ticks), per the wire format's declared precision. An
// offset is either "UTC" or "+HH:MM"/"-HH:MM".
var timestampTZPattern = regexp.MustCompile(
	`^(\d{4})-(\d{2})-(\d{2})[ T](\d{2}):(\d{2}):(\d{2})(?:\.(\d{1,7}))?\s*(UTC|[+-]\d{2}:\d{2})$`)

func parseOffsetDateTime(s string) (OffsetDateTime, error) {
	m := timestampTZPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return OffsetDateTime{}, fmt.Errorf("codec: invalid timestamp with time zone %q", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second, _ := strconv.Atoi(m[6])
	var nanos int
	if m[7] != "" {
		if len(m[7]) > 7 {
			return OffsetDateTime{}, fmt.Errorf("codec: timestamp fraction %q exceeds 7 digits", m[7])
		}
		n, err := parseFraction(m[7])
		if err != nil {
			return OffsetDateTime{}, fmt.Errorf("codec: invalid timestamp fraction %q: %w", m[7], err)
		}
		nanos = n
	}

	var offset time.Duration
	if m[8] != "UTC" {
		sign := 1
		off := m[8]
		if off[0] == '-' {
			sign = -1
		}
		off = off[1:]
		offParts := strings.SplitN(off, ":", 2)
		oh, _ := strconv.Atoi(offParts[0])
		om, _ := strconv.Atoi(offParts[1])
		offset = time.Duration(sign) * (time.Duration(oh)*time.Hour + time.Duration(om)*time.Minute)
	}

	return OffsetDateTime{
		Timestamp: Timestamp{
			Date:      Date{Year: year, Month: month, Day: day},
			TimeOfDay: TimeOfDay{Hour: hour, Minute: minute, Second: second, Nanosecond: nanos},
		},
		Offset: offset,
	}, nil
}

// roundToPrecision rounds the fractional-seconds component to p decimal
// digits (round-half-up), carrying a full second if rounding overflows,
// e.g. 01:02:03.004567 at precision 3 becomes 01:02:03.005.
func roundToPrecision(t TimeOfDay, p int) TimeOfDay {
	if p < 0 || p > 9 {
		return t
	}
	scale := int(math.Pow10(9 - p))
	rounded := (t.Nanosecond + scale/2) / scale * scale
	if rounded >= 1_000_000_000 {
		rounded -= 1_000_000_000
		t.Second++
	}
	t.Nanosecond = rounded
	return t
}

// trimFixedPadding enforces the fixed width n of a char(n) column: values
// longer than n are truncated to n runes, and any trailing blank padding
// within that width is stripped, matching the server's char(n) convention.
func trimFixedPadding(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimRight(string(r), " ")
}

var intervalYearMonthPattern = regexp.MustCompile(`^(-)?(\d+)-(\d+)$`)

func parseIntervalYearMonth(s string) (IntervalYearMonth, error) {
	m := intervalYearMonthPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return IntervalYearMonth{}, fmt.Errorf("codec: invalid interval year to month %q", s)
	}
	years, _ := strconv.Atoi(m[2])
	months, _ := strconv.Atoi(m[3])
	if m[1] == "-" {
		years, months = -years, -months
	}
	return IntervalYearMonth{Years: years, Months: months}, nil
}

// intervalDaySecondPattern matches "d hh:mm:ss.fff", optionally signed.
var intervalDaySecondPattern = regexp.MustCompile(
	`^(-)?(\d+)\s+(\d{2}):(\d{2}):(\d{2})(?:\.(\d{1,3}))?$`)

func parseIntervalDaySecond(s string) (IntervalDaySecond, error) {
	m := intervalDaySecondPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return IntervalDaySecond{}, fmt.Errorf("codec: invalid interval day to second %q", s)
	}
	days, _ := strconv.Atoi(m[2])
	hours, _ := strconv.Atoi(m[3])
	minutes, _ := strconv.Atoi(m[4])
	seconds, _ := strconv.Atoi(m[5])
	var millis int
	if m[6] != "" {
		padded := m[6] + strings.Repeat("0", 3-len(m[6]))
		millis, _ = strconv.Atoi(padded)
	}
	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	if m[1] == "-" {
		d = -d
	}
	return IntervalDaySecond{Duration: d}, nil
}
