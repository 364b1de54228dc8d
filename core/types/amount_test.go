package types

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestParseUnits(t *testing.T) {
	cases := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"10", 6, "10000000"},
		{"100.5", 6, "100500000"},
		{"0.000001", 6, "1"},
		{".5", 6, "500000"},
		{"1", 18, "1000000000000000000"},
		{"0", 18, "0"},
	}
	for _, tc := range cases {
		got, err := ParseUnits(tc.in, tc.decimals)
		if err != nil {
			t.Fatalf("ParseUnits(%q): %v", tc.in, err)
		}
		if got.Dec() != tc.want {
			t.Fatalf("ParseUnits(%q) = %s, want %s", tc.in, got.Dec(), tc.want)
		}
	}
	for _, bad := range []string{"", "1.0000001", "abc", "1.", "-1"} {
		if _, err := ParseUnits(bad, 6); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatUnits(t *testing.T) {
	cases := []struct {
		in       uint64
		decimals uint8
		want     string
	}{
		{100500000, 6, "100.5"},
		{1, 6, "0.000001"},
		{10000000, 6, "10"},
		{0, 6, "0"},
		{42, 0, "42"},
	}
	for _, tc := range cases {
		if got := FormatUnits(uint256.NewInt(tc.in), tc.decimals); got != tc.want {
			t.Fatalf("FormatUnits(%d, %d) = %s, want %s", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestUnits(t *testing.T) {
	if got := Units(300000, 6).Dec(); got != "300000000000" {
		t.Fatalf("unexpected units %s", got)
	}
	if got := Units(1, 18).Dec(); got != "1000000000000000000" {
		t.Fatalf("unexpected units %s", got)
	}
}
