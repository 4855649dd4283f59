package core

import (
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{"-500", "-500", true},
		{"1,234.56", "1234.56", true},
		{"1.234,56", "1234.56", true},
		{"1.234", "1234", true},
		{"1,234", "1234", true},
		{"20000", "20000", true},
		{"12,50-", "-12.5", true},
		{"-12,50", "-12.5", true},
		{"€ 99,95", "99.95", true},
		{"1.234.567,89", "1234567.89", true},
		{"", "", false},
		{"abc", "", false},
		{"12,34,56.78.90", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParseAmount(%q): unexpected error %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("ParseAmount(%q): expected error, got %s", tc.in, got)
			}
			continue
		}
		if got.String() != tc.want {
			t.Fatalf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseAmountDeterministic(t *testing.T) {
	a, err := ParseAmount("1.234,56")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseAmount("1,234.56")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Fatalf("separator conventions disagree: %s vs %s", a, b)
	}
}
