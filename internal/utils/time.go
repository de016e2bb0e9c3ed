package utils

import (
	"strings"
	"time"
)

const ClockLayout = "15:04"

// FormatClock renders t as a zero-padded 24h "HH:MM" string.
func FormatClock(t time.Time) string {
	return t.Format(ClockLayout)
}

// IsValidClock reports whether s is a well-formed "HH:MM" value.
func IsValidClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse(ClockLayout, s)
	return err == nil
}

// DayName returns the lowercase English weekday name, e.g. "monday".
func DayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

func IsValidDayName(day string) bool {
	switch strings.ToLower(day) {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	}
	return false
}

func LoadLocation(timezone string) *time.Location {
	if timezone == "" {
		timezone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
