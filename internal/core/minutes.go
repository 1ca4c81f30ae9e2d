// Package core holds the time-budget domain: activities, the category
// registry, and the day-budget accountant.
//
// This file contains duration parsing and formatting: turning a minute count
// into a human string and combining the hour/minute split a form submits into
// a single minute count.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// FormatMinutes renders a minute count as "Xh Ym", dropping whichever half is
// zero ("45m", "3h", "3h 20m"). Zero renders as "0m".
func FormatMinutes(minutes int) string {
	neg := minutes < 0
	if neg {
		minutes = -minutes
	}
	hours := minutes / 60
	mins := minutes % 60

	var s string
	switch {
	case hours == 0:
		s = strconv.Itoa(mins) + "m"
	case mins == 0:
		s = strconv.Itoa(hours) + "h"
	default:
		s = strconv.Itoa(hours) + "h " + strconv.Itoa(mins) + "m"
	}
	if neg {
		return "-" + s
	}
	return s
}

// CombineHoursMinutes folds the hour/minute fields of a duration input into
// one minute count. Blank or unparseable fields read as 0 rather than
// erroring, so "0 hours, 0 minutes" fails the positivity check downstream
// instead of surfacing a parse error. Negative or non-digit input also reads
// as 0.
func CombineHoursMinutes(hours, minutes string) int {
	return parseField(hours)*60 + parseField(minutes)
}

func parseField(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
