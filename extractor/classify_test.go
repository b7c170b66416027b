package extractor

import "testing"

func TestClassifyUnitType(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		bedrooms int
		ok       bool
	}{
		{"plain bedroom", "3 Bedroom", 3, true},
		{"bedroom with study", "3 Bedroom + Study", 3, true},
		{"abbreviated", "2BR", 2, true},
		{"abbreviated spaced", "4 BR Premium", 4, true},
		{"plural", "2 Bedrooms", 2, true},
		{"dual key", "3 Bedroom Dual Key", 3, true},
		{"studio", "Studio", 0, true},
		{"studio lowercase", "studio apartment", 0, true},
		{"penthouse", "Penthouse", 0, true},
		{"penthouse with count", "5 Bedroom Penthouse", 5, true},
		{"nbr token", "NBR", 0, true},
		{"nbr with leading count", "3 NBR", 3, true},
		{"car park", "Car Park Lot", 0, false},
		{"shop unit", "Shop Unit", 0, false},
		{"empty", "", 0, false},
		{"whitespace", "   ", 0, false},
		{"nbr lowercase is not the token", "nbr", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bedrooms, ok := classifyUnitType(tt.label)
			if ok != tt.ok {
				t.Fatalf("classifyUnitType(%q) ok = %v, want %v", tt.label, ok, tt.ok)
			}
			if ok && bedrooms != tt.bedrooms {
				t.Errorf("classifyUnitType(%q) bedrooms = %d, want %d", tt.label, bedrooms, tt.bedrooms)
			}
		})
	}
}
