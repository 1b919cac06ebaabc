package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the length of a day in minutes.
const MinutesPerDay = 24 * 60

// ClockMinutes converts an "HH:MM" wall-clock string into minutes since midnight.
// "24:00" is accepted as the end of the day.
func ClockMinutes(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock value %q: expected HH:MM", raw)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock hour in %q: %w", raw, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock minute in %q: %w", raw, err)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock value %q out of range", raw)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as zero-padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
