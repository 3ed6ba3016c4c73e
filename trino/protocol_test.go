// Copyright 2025 The trino-go Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trino

import (
	"encoding/json"
	"math"
	"testing"
)

func TestStatsProgressPercentageNaNRoundTrip(t *testing.T) {
	var stats Stats
	if err := json.Unmarshal([]byte(`{"state":"RUNNING","progressPercentage":"NaN"}`), &stats); err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(stats.ProgressPercentage.Float64()) {
		t.Fatalf("ProgressPercentage = %v, want NaN", stats.ProgressPercentage.Float64())
	}

	out, err := json.Marshal(stats)
	if err != nil {
		t.Fatal(err)
	}
	var roundTripped map[string]any
	if err := json.Unmarshal(out, &roundTripped); err != nil {
		t.Fatal(err)
	}
	if roundTripped["progressPercentage"] != "NaN" {
		t.Errorf(`serialized progressPercentage = %v, want "NaN"`, roundTripped["progressPercentage"])
	}
}

func TestStatsProgressPercentageNumeric(t *testing.T) {
	var stats Stats
	if err := json.Unmarshal([]byte(`{"progressPercentage":42.5}`), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.ProgressPercentage.Float64() != 42.5 {
		t.Errorf("ProgressPercentage = %v, want 42.5", stats.ProgressPercentage.Float64())
	}
}

func TestStatementResponseHasMorePages(t *testing.T) {
	withNext := &StatementResponse{NextURI: "http://x/y"}
	if !withNext.HasMorePages() {
		t.Error("expected HasMorePages() true when NextURI is set")
	}
	terminal := &StatementResponse{}
	if terminal.HasMorePages() {
		t.Error("expected HasMorePages() false when NextURI is empty")
	}
}
