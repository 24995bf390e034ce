package bitget

import (
	"encoding/json"
	"testing"
)

func TestParsePositionData_ListShape(t *testing.T) {
	// Fixture as returned by singlePosition in hedge accounting.
	raw := json.RawMessage(`[
		{"holdSide":"long","total":"0.02","available":"0.02","averageOpenPrice":"61000.5"},
		{"holdSide":"short","total":"0","available":"0","averageOpenPrice":"0"}
	]`)

	legs, err := parsePositionData(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if legs.Long.String() != "0.02" {
		t.Errorf("long = %s, want 0.02", legs.Long)
	}
	if !legs.Short.IsZero() {
		t.Errorf("short = %s, want 0", legs.Short)
	}
	if legs.LongEntry.String() != "61000.5" {
		t.Errorf("long entry = %s, want 61000.5", legs.LongEntry)
	}
}

func TestParsePositionData_DictShape(t *testing.T) {
	// Fixture as returned in one-way accounting on some API revisions.
	raw := json.RawMessage(`{
		"long":{"total":"0","averageOpenPrice":"0"},
		"short":{"total":"0.015","averageOpenPrice":"59800"}
	}`)

	legs, err := parsePositionData(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !legs.Long.IsZero() {
		t.Errorf("long = %s, want 0", legs.Long)
	}
	if legs.Short.String() != "0.015" {
		t.Errorf("short = %s, want 0.015", legs.Short)
	}
	if legs.ShortEntry.String() != "59800" {
		t.Errorf("short entry = %s, want 59800", legs.ShortEntry)
	}
}

func TestParsePositionData_EdgeShapes(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"null payload", `null`, false},
		{"empty payload", ``, false},
		{"empty list", `[]`, false},
		{"dict with missing legs", `{}`, false},
		{"leg with empty total", `[{"holdSide":"long","total":""}]`, false},
		{"scalar payload", `42`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			legs, err := parsePositionData(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (!legs.Long.IsZero() || !legs.Short.IsZero()) {
				t.Errorf("expected zero legs, got %+v", legs)
			}
		})
	}
}

func TestPositionModeData(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"holdMode":"single_hold"}`, "single_hold"},
		{`{"posMode":"one_way_mode"}`, "one_way_mode"},
		{`{}`, "unknown"},
	}
	for _, tt := range tests {
		var m positionModeData
		if err := json.Unmarshal([]byte(tt.raw), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if got := m.mode(); got != tt.want {
			t.Errorf("mode(%s) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}
