package domain

import "testing"

func TestPositionSnapshot_Flatness(t *testing.T) {
	tests := []struct {
		name     string
		long     string
		short    string
		flat     bool
		hasLong  bool
		hasShort bool
	}{
		{"truly flat", "0", "0", true, false, false},
		{"long held", "0.02", "0", false, true, false},
		{"short held", "0", "0.02", false, false, true},
		{"float dust", "0.0000000001", "0", true, false, false},
		{"both legs (hedge lag)", "0.1", "0.2", false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PositionSnapshot{Long: d(tt.long), Short: d(tt.short)}
			if got := p.IsFlat(); got != tt.flat {
				t.Errorf("IsFlat() = %v, want %v", got, tt.flat)
			}
			if got := p.HasExposure(SideLong); got != tt.hasLong {
				t.Errorf("HasExposure(long) = %v, want %v", got, tt.hasLong)
			}
			if got := p.HasExposure(SideShort); got != tt.hasShort {
				t.Errorf("HasExposure(short) = %v, want %v", got, tt.hasShort)
			}
		})
	}
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		raw     string
		want    Side
		wantErr bool
	}{
		{"BUY", SideLong, false},
		{"buy", SideLong, false},
		{"SELL", SideShort, false},
		{" sell ", SideShort, false},
		{"LONG", SideLong, false},
		{"short", SideShort, false},
		{"FLAT", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSide(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSide(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseSide(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestSide_Opposite(t *testing.T) {
	if SideLong.Opposite() != SideShort || SideShort.Opposite() != SideLong {
		t.Error("Opposite() must swap directions")
	}
	if SideLong.OrderSide() != "buy" || SideShort.OrderSide() != "sell" {
		t.Error("one-way order side mapping broken")
	}
}
