package services

import (
	"fmt"
	"strings"
	"time"
)

// IsExpired reports whether now is strictly after the deadline; no deadline never expires
func IsExpired(deadline *time.Time, now time.Time) bool {
	if deadline == nil {
		return false
	}
	return now.After(*deadline)
}

// TimeRemaining renders the time left before the deadline for display
func TimeRemaining(deadline *time.Time, now time.Time) string {
	if deadline == nil {
		return "No deadline"
	}
	if IsExpired(deadline, now) {
		return "Expired"
	}

	minutes := int(deadline.Sub(now) / time.Minute)
	hours := minutes / 60
	minutes %= 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm remaining", hours, minutes)
	}
	return fmt.Sprintf("%dm remaining", minutes)
}

var timeOfDayLayouts = []string{"15:04:05", "15:04"}

var localTimestampLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"}

// ResolveDeadline parses an RFC 3339 timestamp, a local date-time, or a time of day.
// A time of day is placed on today's date in loc.
func ResolveDeadline(input string, now time.Time, loc *time.Location) (time.Time, error) {
	input = strings.TrimSpace(input)
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t, nil
	}

	for _, layout := range localTimestampLayouts {
		if t, err := time.ParseInLocation(layout, input, loc); err == nil {
			return t, nil
		}
	}

	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			today := now.In(loc)
			return time.Date(today.Year(), today.Month(), today.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, loc), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized deadline %q", input)
}
