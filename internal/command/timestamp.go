package command

import (
	"errors"
	"fmt"
	"time"
)

// TimestampLayout renders an instant as YYYYMMDDHHMMSS.
const TimestampLayout = "20060102150405"

const timestampLen = len(TimestampLayout)

// ErrClockFormat reports a timestamp that is not exactly fourteen digits.
var ErrClockFormat = errors.New("timestamp is not 14 digits")

// FormatTimestamp renders t in UTC with second precision.
func FormatTimestamp(t time.Time) (string, error) {
	s := t.UTC().Format(TimestampLayout)
	if len(s) != timestampLen || !allDigits(s) {
		return "", fmt.Errorf("%w: %q", ErrClockFormat, s)
	}
	return s, nil
}

// ParseTimestamp reads a YYYYMMDDHHMMSS value as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if len(s) != timestampLen || !allDigits(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrClockFormat, s)
	}
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
