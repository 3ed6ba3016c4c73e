// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		raw  string
		want Signature
	}{
		{"bigint", Signature{Base: "bigint"}},
		{"VARCHAR", Signature{Base: "varchar"}},
		{"decimal(24,10)", Signature{Base: "decimal", Args: []string{"24", "10"}}},
		{"array(map(varchar,decimal(24,10)))", Signature{
			Base: "array",
			Args: []string{"map(varchar,decimal(24,10))"},
		}},
		{"timestamp(3) with time zone", Signature{Base: "timestamp with time zone", Args: []string{"3"}}},
		{"char(10)", Signature{Base: "char", Args: []string{"10"}}},
	}
	for _, tt := range tests {
		got, err := ParseSignature(tt.raw)
		if err != nil {
			t.Fatalf("ParseSignature(%q): %v", tt.raw, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseSignature(%q) mismatch (-want +got):\n%s", tt.raw, diff)
		}
	}
}

func TestSignatureChild(t *testing.T) {
	sig, err := ParseSignature("array(map(varchar,decimal(24,10)))")
	if err != nil {
		t.Fatal(err)
	}
	mapSig, err := sig.Child(0)
	if err != nil {
		t.Fatal(err)
	}
	if mapSig.Base != "map" || len(mapSig.Args) != 2 {
		t.Fatalf("got %+v, want map with 2 args", mapSig)
	}
	keySig, err := mapSig.Child(0)
	if err != nil {
		t.Fatal(err)
	}
	if keySig.Base != "varchar" {
		t.Errorf("key signature = %q, want varchar", keySig.Base)
	}
	valSig, err := mapSig.Child(1)
	if err != nil {
		t.Fatal(err)
	}
	p, s, err := valSig.DecimalPrecisionScale()
	if err != nil {
		t.Fatal(err)
	}
	if p != 24 || s != 10 {
		t.Errorf("decimal(p,s) = (%d,%d), want (24,10)", p, s)
	}
}

func TestSignatureCharLength(t *testing.T) {
	sig, err := ParseSignature("char(10)")
	if err != nil {
		t.Fatal(err)
	}
	n, err := sig.CharLength()
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Errorf("CharLength() = %d, want 10", n)
	}
}

func TestParseSignatureUnbalanced(t *testing.T) {
	if _, err := ParseSignature("decimal(24,10"); err == nil {
		t.Error("expected error for unbalanced parentheses, got nil")
	}
}
