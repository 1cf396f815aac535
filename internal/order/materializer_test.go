package order

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatOrderNumber(t *testing.T) {
	cases := []struct {
		code     string
		n        int64
		expected string
	}{
		{"tablewood", 1, "TABLEWOOD-00001"},
		{"tw", 42, "TW-00042"},
		{"tw", 123456, "TW-123456"},
	}
	for _, tc := range cases {
		if got := FormatOrderNumber(tc.code, tc.n); got != tc.expected {
			t.Fatalf("FormatOrderNumber(%q, %d) = %q, expected %q", tc.code, tc.n, got, tc.expected)
		}
	}
}

func TestAmountsMatch(t *testing.T) {
	total := decimal.RequireFromString("25.00")
	if !AmountsMatch(2500, total) {
		t.Fatal("2500 minor units should match 25.00")
	}
	if AmountsMatch(2499, total) {
		t.Fatal("2499 minor units must not match 25.00")
	}
	if !AmountsMatch(0, decimal.Zero) {
		t.Fatal("zero should match zero")
	}
}
