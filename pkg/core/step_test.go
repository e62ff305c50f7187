package core

import (
	"slices"
	"testing"
)

func TestStepID(t *testing.T) {
	id := StepID(0, 2, 1)
	if id != "0.2.1" {
		t.Errorf("expected 0.2.1, got %s", id)
	}
}

func TestParseStepID(t *testing.T) {
	tests := []struct {
		input     string
		want      []int
		wantError bool
	}{
		{"0", []int{0}, false},
		{"3.1", []int{3, 1}, false},
		{"0.2.10", []int{0, 2, 10}, false},
		{"", nil, true},
		{"a.1", nil, true},
		{"1..2", nil, true},
		{"-1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStepID(tt.input)
			if tt.wantError {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error for %q: %v", tt.input, err)
				return
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("indices: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStepIDRoundTrip(t *testing.T) {
	original := StepID(4, 0, 7)
	indices, err := ParseStepID(original)
	if err != nil {
		t.Fatal(err)
	}
	if reconstructed := StepID(indices...); reconstructed != original {
		t.Errorf("round-trip failed: %q != %q", reconstructed, original)
	}
}

func TestObserverFunc(t *testing.T) {
	var got []Line
	var o Observer = ObserverFunc(func(l Line) { got = append(got, l) })
	o.Observe(Line{Origin: OriginStdout, Text: "hello"})
	if len(got) != 1 || got[0].Text != "hello" || got[0].Origin != OriginStdout {
		t.Errorf("observer: got %+v", got)
	}
}
