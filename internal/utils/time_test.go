package utils

import (
	"testing"
	"time"
)

func TestClockHelpers(t *testing.T) {
	at := time.Date(2024, 1, 15, 7, 5, 0, 0, time.UTC)
	if got := FormatClock(at); got != "07:05" {
		t.Errorf("FormatClock() = %q, want 07:05", got)
	}
	if got := DayName(at); got != "monday" {
		t.Errorf("DayName() = %q, want monday", got)
	}

	for clock, want := range map[string]bool{
		"00:00": true,
		"23:59": true,
		"7:05":  false,
		"24:00": false,
		"12:60": false,
		"noon":  false,
	} {
		if got := IsValidClock(clock); got != want {
			t.Errorf("IsValidClock(%q) = %v, want %v", clock, got, want)
		}
	}
}

func TestIsValidDayName(t *testing.T) {
	for _, day := range []string{"monday", "Sunday", "WEDNESDAY"} {
		if !IsValidDayName(day) {
			t.Errorf("IsValidDayName(%q) = false", day)
		}
	}
	for _, day := range []string{"", "mon", "funday"} {
		if IsValidDayName(day) {
			t.Errorf("IsValidDayName(%q) = true", day)
		}
	}
}

func TestLoadLocation(t *testing.T) {
	if got := LoadLocation(""); got.String() != "UTC" {
		t.Errorf("LoadLocation(\"\") = %v, want UTC", got)
	}
	if got := LoadLocation("Not/AZone"); got != time.UTC {
		t.Errorf("LoadLocation(invalid) = %v, want UTC", got)
	}
}
