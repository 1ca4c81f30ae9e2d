package core

import "testing"

func TestFormatMinutes(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0m"},
		{45, "45m"},
		{60, "1h"},
		{180, "3h"},
		{200, "3h 20m"},
		{1440, "24h"},
		{-90, "-1h 30m"},
	}
	for _, tc := range cases {
		if got := FormatMinutes(tc.in); got != tc.want {
			t.Fatalf("FormatMinutes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCombineHoursMinutes(t *testing.T) {
	cases := []struct {
		hours, minutes string
		want           int
	}{
		{"2", "15", 135},
		{"0", "30", 30},
		{"24", "0", 1440},
		{"", "", 0},      // blank reads as zero, not a parse error
		{"abc", "30", 30}, // unparseable hour field reads as zero
		{"-1", "30", 30},  // negatives read as zero
		{"1", "", 60},
	}
	for i, tc := range cases {
		if got := CombineHoursMinutes(tc.hours, tc.minutes); got != tc.want {
			t.Fatalf("case %d: CombineHoursMinutes(%q, %q) = %d, want %d", i, tc.hours, tc.minutes, got, tc.want)
		}
	}
}
