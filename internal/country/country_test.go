package country

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		in       string
		wantISO3 string
		wantName string
		wantOK   bool
	}{
		{"KEN", "KEN", "Kenya", true},
		{" bra ", "BRA", "Brazil", true},
		{"KE", "", "", false},
		{"XYZ", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		iso3, name, ok := Lookup(tt.in)
		if iso3 != tt.wantISO3 || name != tt.wantName || ok != tt.wantOK {
			t.Errorf("Lookup(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.in, iso3, name, ok, tt.wantISO3, tt.wantName, tt.wantOK)
		}
	}
}
