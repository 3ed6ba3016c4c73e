// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEncodeParameterLiterals(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"string", "it's", "'it''s'"},
		{"bool true", true, "TRUE"},
		{"bool false", false, "FALSE"},
		{"bytes", []byte{0xDE, 0xAD, 0xBE, 0xEF}, "X'DEADBEEF'"},
		{
			"timestamp",
			Timestamp{Date: Date{Year: 2024, Month: 1, Day: 1}},
			"timestamp '2024-01-01 00:00:00.000'",
		},
		{
			"offset date time",
			OffsetDateTime{Timestamp: Timestamp{Date: Date{Year: 2024, Month: 1, Day: 1}}, Offset: 0},
			`"timestamp with time zone" '2024-01-01 00:00:00.000 +00:00'`,
		},
		{"interval year to month", IntervalYearMonth{Years: 1, Months: 6}, "'1-6'"},
		{"sequence", []int{1, 2, 3}, "(1, 2, 3)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeParameter(tt.in)
			if err != nil {
				t.Fatalf("EncodeParameter(%v): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("EncodeParameter(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeParameterUUID(t *testing.T) {
	id := uuid.MustParse("f5b5d0e0-2f1e-4f4e-9c1a-8e1b2c3d4e5f")
	got, err := EncodeParameter(id)
	if err != nil {
		t.Fatal(err)
	}
	want := "'f5b5d0e0-2f1e-4f4e-9c1a-8e1b2c3d4e5f'"
	if got != want {
		t.Errorf("EncodeParameter(uuid) = %q, want %q", got, want)
	}
}

func TestEncodeParameterDecimalIsBare(t *testing.T) {
	d, err := ParseDecimal("-0.50", 5, 2)
	if err != nil {
		t.Fatal(err)
	}
	got, err := EncodeParameter(d)
	if err != nil {
		t.Fatal(err)
	}
	if got != "-0.50" {
		t.Errorf("EncodeParameter(decimal) = %q, want -0.50 (unquoted)", got)
	}
}

func TestEncodeParameterGoTimeConvenience(t *testing.T) {
	tm := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := EncodeParameter(tm)
	if err != nil {
		t.Fatal(err)
	}
	want := "timestamp '2024-01-01 00:00:00.000'"
	if got != want {
		t.Errorf("EncodeParameter(time.Time) = %q, want %q", got, want)
	}
}
