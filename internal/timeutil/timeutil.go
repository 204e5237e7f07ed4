// Package timeutil holds pure time-derivation helpers for the dashboard.
// All functions take the current time explicitly and are re-evaluated by the
// caller on every display tick; nothing here caches or subscribes.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Unknown is rendered for absent values.
const Unknown = "N/A"

// Ukrainian short month names, January first.
var monthNames = [12]string{
	"січ.", "лют.", "бер.", "квіт.", "трав.", "черв.",
	"лип.", "серп.", "вер.", "жовт.", "лист.", "груд.",
}

// ElapsedSeconds returns whole seconds from start to now.
func ElapsedSeconds(start time.Time, now time.Time) int64 {
	return floorSeconds(now.Sub(start))
}

// RemainingSeconds returns whole seconds from now to the planned end, or nil
// when no planned end exists. A negative value signals overdue.
func RemainingSeconds(plannedEnd *time.Time, now time.Time) *int64 {
	if plannedEnd == nil {
		return nil
	}
	s := floorSeconds(plannedEnd.Sub(now))
	return &s
}

// IsOverdue reports whether the planned end has passed. Nil means no planned
// end and therefore never overdue.
func IsOverdue(plannedEnd *time.Time, now time.Time) bool {
	if plannedEnd == nil {
		return false
	}
	return plannedEnd.Before(now)
}

// HumanDuration renders seconds as non-zero day/hour/minute/second components,
// largest unit first, e.g. "2г 30хв 15с". Values under a minute render the
// seconds component alone, zero included ("0с"). Negative input renders the
// absolute value with a leading minus. Nil renders the Unknown sentinel.
func HumanDuration(seconds *int64) string {
	if seconds == nil {
		return Unknown
	}

	s := *seconds
	abs := s
	if abs < 0 {
		abs = -abs
	}

	days := abs / 86400
	hours := (abs % 86400) / 3600
	minutes := (abs % 3600) / 60
	secs := abs % 60

	parts := make([]string, 0, 4)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dд", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dг", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dхв", minutes))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dс", secs))
	}

	formatted := strings.Join(parts, " ")
	if s < 0 {
		return "-" + formatted
	}
	return formatted
}

// ClockDuration renders seconds as HH:MM:SS with a leading minus for negative
// input. Hours are not capped at 24. Nil renders the Unknown sentinel.
func ClockDuration(seconds *int64) string {
	if seconds == nil {
		return "--:--:--"
	}

	s := *seconds
	abs := s
	if abs < 0 {
		abs = -abs
	}

	formatted := fmt.Sprintf("%02d:%02d:%02d", abs/3600, (abs%3600)/60, abs%60)
	if s < 0 {
		return "-" + formatted
	}
	return formatted
}

// FormatDate renders a timestamp in the fixed uk-UA style with a 24-hour
// clock, e.g. "2 січ. 2024, 15:04". Server timestamps arrive in UTC; the
// viewer expects wall time, so the value is converted to the local zone
// before formatting. Nil renders the Unknown sentinel.
func FormatDate(t *time.Time) string {
	if t == nil {
		return Unknown
	}
	lt := t.In(time.Local)
	return fmt.Sprintf("%d %s %d, %02d:%02d", lt.Day(), monthNames[lt.Month()-1], lt.Year(), lt.Hour(), lt.Minute())
}

// floorSeconds truncates toward negative infinity so that e.g. -0.5s of
// remaining time reports -1, matching overdue display expectations.
func floorSeconds(d time.Duration) int64 {
	s := d / time.Second
	if d%time.Second < 0 {
		s--
	}
	return int64(s)
}
