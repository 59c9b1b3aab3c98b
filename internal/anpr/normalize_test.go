package anpr

import "testing"

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"uppercases", "abc123", "ABCI23"},
		{"strips punctuation and spaces", " AB-12 C.D ", "ABI2CD"},
		{"confusable zero to O", "B0B", "BOB"},
		{"confusable one to I", "A1A", "AIA"},
		{"confusable five to S", "55X", "SSX"},
		{"confusable eight to B", "878", "B7B"},
		{"all confusables", "0158", "OISB"},
		{"empty", "", ""},
		{"only punctuation", "--..!!", ""},
		{"unicode stripped", "ABé中12", "ABI2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePlate(tt.in); got != tt.want {
				t.Errorf("NormalizePlate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizePlateIdempotent(t *testing.T) {
	inputs := []string{"abc-123", "B0B 15", "XYZ888", "", "A1B2C3D4"}
	for _, in := range inputs {
		once := NormalizePlate(in)
		twice := NormalizePlate(once)
		if once != twice {
			t.Errorf("NormalizePlate not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
