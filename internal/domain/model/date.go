package model

import "time"

const (
	// DateISO is the calendar-date layout persisted in the user store.
	DateISO = "2006-01-02"
	// DateWire is the layout the payment gateway reports subscription windows in.
	DateWire = "02.01.2006"
)

// DateOnly truncates t to a UTC calendar date (midnight).
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseISODate(s string) (time.Time, error) {
	return time.ParseInLocation(DateISO, s, time.UTC)
}

func ParseWireDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateWire, s, time.UTC)
}

func FormatISODate(t time.Time) string { return t.UTC().Format(DateISO) }

func FormatWireDate(t time.Time) string { return t.UTC().Format(DateWire) }
