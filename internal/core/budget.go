package core

import "fmt"

// Budget arithmetic over one day partition. Pure functions: callers fetch the
// partition, these decide. The check is advisory under concurrent writers —
// nothing here (or in the stores) re-validates the ceiling atomically at
// commit time, so two racing sessions can overshoot the day.

// TotalMinutes sums the logged durations; 0 for an empty set.
func TotalMinutes(activities []Activity) int {
	total := 0
	for _, a := range activities {
		total += a.DurationMinutes
	}
	return total
}

// RemainingMinutes is MinutesInDay minus the logged total. Not clamped:
// callers treat <= 0 as "day complete", and a negative value means the
// partition is over budget.
func RemainingMinutes(activities []Activity) int {
	return MinutesInDay - TotalMinutes(activities)
}

// ValidateNewDuration decides whether a brand-new entry of the proposed
// length fits the day.
func ValidateNewDuration(activities []Activity, proposedMinutes int) error {
	if proposedMinutes <= 0 {
		return ErrInvalidDuration
	}
	if remaining := RemainingMinutes(activities); proposedMinutes > remaining {
		return fmt.Errorf("%w: %d requested, %d available", ErrBudgetExceeded, proposedMinutes, remaining)
	}
	return nil
}

// ValidateEditedDuration is ValidateNewDuration with the edit-in-place
// exception: the edited activity first returns its current duration to the
// pool, so a full day can still be re-saved at the same length.
func ValidateEditedDuration(activities []Activity, editedID string, proposedMinutes int) error {
	if proposedMinutes <= 0 {
		return ErrInvalidDuration
	}
	current := -1
	for _, a := range activities {
		if a.ID == editedID {
			current = a.DurationMinutes
			break
		}
	}
	if current < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, editedID)
	}
	if ceiling := RemainingMinutes(activities) + current; proposedMinutes > ceiling {
		return fmt.Errorf("%w: %d requested, %d available", ErrBudgetExceeded, proposedMinutes, ceiling)
	}
	return nil
}

// EditCeiling returns the largest duration the edited activity may take,
// for display next to the form field.
func EditCeiling(activities []Activity, editedID string) int {
	remaining := RemainingMinutes(activities)
	for _, a := range activities {
		if a.ID == editedID {
			return remaining + a.DurationMinutes
		}
	}
	return remaining
}
