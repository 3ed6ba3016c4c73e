// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// EncodeParameter renders a host value as a SQL literal expression
// suitable for embedding in `EXECUTE <id> USING <literal>, ...`.
func EncodeParameter(v any) (string, error) {
	if v == nil {
		return "NULL", nil
	}
	switch t := v.(type) {
	case string:
		return quoteString(t), nil
	case bool:
		if t {
			return "TRUE", nil
		}
		return "FALSE", nil
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(t)) + "'", nil
	case time.Time:
		return fmt.Sprintf("timestamp '%s'", t.Format("2006-01-02 15:04:05.000")), nil
	case Timestamp:
		return fmt.Sprintf("timestamp '%s'", formatTimestamp(t)), nil
	case OffsetDateTime:
		return fmt.Sprintf(`"timestamp with time zone" '%s %s'`,
			formatTimestamp(t.Timestamp), formatOffset(t.Offset)), nil
	case IntervalDaySecond:
		return quoteString(formatIntervalDaySecond(t)), nil
	case IntervalYearMonth:
		return quoteString(formatIntervalYearMonth(t)), nil
	case Decimal:
		return t.String(), nil
	case fmt.Stringer:
		// covers uuid.UUID and similar single-token stringers
		return quoteString(t.String()), nil
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			return encodeSequence(rv)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return fmt.Sprintf("%d", rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return fmt.Sprintf("%d", rv.Uint()), nil
		case reflect.Float32, reflect.Float64:
			return fmt.Sprintf("%v", rv.Float()), nil
		default:
			return quoteString(fmt.Sprintf("%v", v)), nil
		}
	}
}

func encodeSequence(rv reflect.Value) (string, error) {
	parts := make([]string, rv.Len())
	for i := range parts {
		p, err := EncodeParameter(rv.Index(i).Interface())
		if err != nil {
			return "", fmt.Errorf("codec: encode sequence element %d: %w", i, err)
		}
		parts[i] = p
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatTimestamp(t Timestamp) string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%03d",
		t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second, t.Nanosecond/1_000_000)
}

func formatOffset(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%s%02d:%02d", sign, h, m)
}

func formatIntervalDaySecond(i IntervalDaySecond) string {
	d := i.Duration
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := int(d / time.Second)
	d -= time.Duration(seconds) * time.Second
	millis := int(d / time.Millisecond)
	return fmt.Sprintf("%s%d %02d:%02d:%02d.%03d", sign, days, hours, minutes, seconds, millis)
}

func formatIntervalYearMonth(i IntervalYearMonth) string {
	years, months := i.Years, i.Months
	sign := ""
	if years < 0 || months < 0 {
		sign = "-"
		years, months = -years, -months
	}
	return fmt.Sprintf("%s%d-%d", sign, years, months)
}
