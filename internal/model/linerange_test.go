package model

import (
	"errors"
	"testing"
)

func TestParseLineRange(t *testing.T) {
	tests := []struct {
		input   string
		want    LineRange
		wantErr bool
	}{
		{input: "10-20", want: LineRange{Start: 10, End: 20}},
		{input: " 5 - 5 ", want: LineRange{Start: 5, End: 5}},
		{input: "20-10", wantErr: true},
		{input: "0-3", wantErr: true},
		{input: "10", wantErr: true},
		{input: "a-b", wantErr: true},
		{input: "1-2-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLineRange(tt.input)
			if tt.wantErr {
				var rangeErr *RangeError
				if !errors.As(err, &rangeErr) {
					t.Fatalf("expected RangeError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewLineRange_RejectsInverted(t *testing.T) {
	if _, err := NewLineRange(10, 9); err == nil {
		t.Error("expected error for end < start")
	}
}

func TestLineRange_Overlaps(t *testing.T) {
	tests := []struct {
		a, b LineRange
		want bool
		desc string
	}{
		{a: MustLineRange(1, 10), b: MustLineRange(11, 20), want: false, desc: "adjacent ranges"},
		{a: MustLineRange(1, 10), b: MustLineRange(10, 20), want: true, desc: "shared boundary line"},
		{a: MustLineRange(5, 15), b: MustLineRange(10, 12), want: true, desc: "contained"},
		{a: MustLineRange(1, 3), b: MustLineRange(7, 9), want: false, desc: "disjoint"},
		{a: MustLineRange(4, 4), b: MustLineRange(4, 4), want: true, desc: "identical single line"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("%s.Overlaps(%s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("overlap is not symmetric for %s and %s", tt.a, tt.b)
			}
		})
	}
}

func TestLineRange_ContainsAndDistance(t *testing.T) {
	r := MustLineRange(10, 20)

	if !r.Contains(10) || !r.Contains(20) || !r.Contains(15) {
		t.Error("expected boundaries and interior to be contained")
	}
	if r.Contains(9) || r.Contains(21) {
		t.Error("expected lines outside the range not to be contained")
	}

	tests := []struct {
		line int
		want int
	}{
		{line: 15, want: 0},
		{line: 5, want: 5},
		{line: 23, want: 3},
	}
	for _, tt := range tests {
		if got := r.Distance(tt.line); got != tt.want {
			t.Errorf("Distance(%d) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestLineRange_String(t *testing.T) {
	r := MustLineRange(3, 42)
	if r.String() != "3-42" {
		t.Errorf("expected 3-42, got %s", r.String())
	}
	parsed, err := ParseLineRange(r.String())
	if err != nil || parsed != r {
		t.Errorf("string form did not parse back: %v %v", parsed, err)
	}
	if r.Len() != 40 {
		t.Errorf("expected 40 lines, got %d", r.Len())
	}
}
