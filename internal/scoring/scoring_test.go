package scoring

import "testing"

func TestPhonics(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		correct  int
		want     bool
	}{
		{"correct option", 2, 2, true},
		{"wrong option", 0, 2, false},
		{"first option correct", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Phonics(tt.selected, tt.correct); got != tt.want {
				t.Errorf("Phonics(%d, %d) = %v, want %v", tt.selected, tt.correct, got, tt.want)
			}
		})
	}
}

func TestSpelling(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		answer string
		want   bool
	}{
		{"exact", "chop", "chop", true},
		{"uppercase", "CHOP", "chop", true},
		{"mixed case", "Chop", "chop", true},
		{"trailing space", "chop ", "chop", true},
		{"leading space", "  chop", "chop", true},
		{"plural rejected", "chops", "chop", false},
		{"typo rejected", "chp", "chop", false},
		{"empty input", "", "chop", false},
		{"internal space rejected", "ch op", "chop", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Spelling(tt.input, tt.answer); got != tt.want {
				t.Errorf("Spelling(%q, %q) = %v, want %v", tt.input, tt.answer, got, tt.want)
			}
		})
	}
}
