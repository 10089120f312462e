package main

import (
	"testing"

	"annot/internal/anchor"
	"annot/internal/store"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    anchor.Range
		wantErr bool
	}{
		{in: "1:2-3:4", want: anchor.Range{Start: anchor.Position{Line: 1, Character: 2}, End: anchor.Position{Line: 3, Character: 4}}},
		{in: " 0:0 - 0:5 ", want: anchor.Range{End: anchor.Position{Character: 5}}},
		{in: "3:4-1:2", wantErr: true},
		{in: "1:2", wantErr: true},
		{in: "a:2-3:4", wantErr: true},
		{in: "1-3:4", wantErr: true},
		{in: "-1:0-1:0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRange(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseRange(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"7", 7, false},
		{"#12", 12, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseID(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestParseFloats(t *testing.T) {
	got, err := parseFloats("1, 2.5 -3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1, 2.5, -3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}

	if got, err := parseFloats(""); err != nil || got != nil {
		t.Errorf("empty input: got %v, %v", got, err)
	}
	if _, err := parseFloats("1,two"); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestOptionalStatus(t *testing.T) {
	if _, ok, err := optionalStatus("all"); ok || err != nil {
		t.Errorf("all: ok=%v err=%v", ok, err)
	}
	if _, ok, err := optionalStatus(""); ok || err != nil {
		t.Errorf("empty: ok=%v err=%v", ok, err)
	}
	if st, ok, err := optionalStatus("done"); !ok || err != nil || st != store.StatusDone {
		t.Errorf("done: %v %v %v", st, ok, err)
	}
	if _, _, err := optionalStatus("later"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestParseLocation(t *testing.T) {
	term := anchor.Range{Start: anchor.Position{Line: 2, Character: 4}, End: anchor.Position{Line: 2, Character: 9}}
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"2:6", true, false},
		{"2:9", true, false},
		{"2:10", false, false},
		{"1:0-2:4", true, false},
		{"3:0-4:0", false, false},
		{"2:x", false, true},
		{"3:0-1:0", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			match, err := parseLocation(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLocation(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := match(term); got != tt.want {
				t.Errorf("match(%v) = %v, want %v", term, got, tt.want)
			}
		})
	}
	if match, err := parseLocation(""); err != nil || match != nil {
		t.Errorf("empty location: filter %v, error %v; want no filter", match != nil, err)
	}
}
