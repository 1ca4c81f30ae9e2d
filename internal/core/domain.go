package core

import (
	"errors"
	"strings"
	"time"
)

// MinutesInDay is the daily time budget: every activity logged against one
// calendar day draws from this pool.
const MinutesInDay = 1440

// MaxTitleLength bounds activity titles.
const MaxTitleLength = 100

type (
	// Day is a pure calendar date ("YYYY-MM-DD"), no time component and no
	// timezone. It is computed once from the caller's local clock at selection
	// time and compared as a string from then on, so the "today" boundary is
	// whatever the selecting device said it was.
	Day struct {
		value string
	}

	// Activity is a single logged entry for one user and one day.
	Activity struct {
		ID              string
		UserID          string
		Date            Day
		Title           string
		Category        string
		DurationMinutes int
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrEmptyTitle      = errors.New("empty title")
	ErrTitleTooLong    = errors.New("title too long")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrBudgetExceeded  = errors.New("daily budget exceeded")
	ErrNotFound        = errors.New("activity not found")
)

const dayLayout = "2006-01-02"

// NewDay builds a Day from calendar components.
func NewDay(year, month, day int) Day {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return Day{value: t.Format(dayLayout)}
}

// Today returns the current local calendar date.
func Today() Day {
	return Day{value: time.Now().Format(dayLayout)}
}

// ParseDay parses a "YYYY-MM-DD" string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, ErrInvalidDay
	}
	return Day{value: t.Format(dayLayout)}, nil
}

// String returns the canonical "YYYY-MM-DD" form.
func (d Day) String() string { return d.value }

// IsZero reports whether the day was never set.
func (d Day) IsZero() bool { return d.value == "" }

func (d Day) Validate() error {
	if d.value == "" {
		return ErrInvalidDay
	}
	if _, err := time.Parse(dayLayout, d.value); err != nil {
		return ErrInvalidDay
	}
	return nil
}

// Validate checks the fields a caller controls. Duration positivity is
// checked here; the budget ceiling is the accountant's job because it needs
// the rest of the day partition. The category is stored verbatim even when
// the registry does not know it.
func (a Activity) Validate() error {
	if err := a.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(a.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(a.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if a.DurationMinutes < 1 {
		return ErrInvalidDuration
	}
	return nil
}
