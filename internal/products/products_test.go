package products

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		name      string
		vendor    uint32
		product   uint32
		wantOK    bool
		wantName  string
		infrared  bool
		multiZone bool
	}{
		{name: "A19", vendor: 1, product: 27, wantOK: true, wantName: "LIFX A19"},
		{name: "infrared model", vendor: 1, product: 29, wantOK: true, wantName: "LIFX+ A19", infrared: true},
		{name: "strip", vendor: 1, product: 32, wantOK: true, wantName: "LIFX Z 2", multiZone: true},
		{name: "unknown product", vendor: 1, product: 9999},
		{name: "other vendor", vendor: 2, product: 27},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Lookup(tt.vendor, tt.product)
			if ok != tt.wantOK {
				t.Fatalf("Lookup() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if p.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name, tt.wantName)
			}
			if p.Infrared != tt.infrared || p.MultiZone != tt.multiZone {
				t.Errorf("features = %+v, want infrared=%v multizone=%v", p, tt.infrared, tt.multiZone)
			}
		})
	}
}

func TestName(t *testing.T) {
	if got := Name(22); got != "Color 1000" {
		t.Errorf("Name(22) = %q, want %q", got, "Color 1000")
	}
	if got := Name(0); got != "Unknown" {
		t.Errorf("Name(0) = %q, want Unknown", got)
	}
}
