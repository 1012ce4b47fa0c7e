package repost

import (
	"strconv"
	"strings"
	"time"
)

const (
	secondsPerDay   = 86400
	secondsPerMonth = 2_630_016  // 30.44 days
	secondsPerYear  = 31_557_600 // 365.25 days
)

// FormatDuration renders d with whole-second precision, e.g. "1h",
// "2days 3h 4m 5s" or "1year 2months". Every non-zero unit is shown.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs <= 0 {
		return "0s"
	}

	years := secs / secondsPerYear
	rem := secs % secondsPerYear
	months := rem / secondsPerMonth
	rem %= secondsPerMonth
	days := rem / secondsPerDay
	rem %= secondsPerDay

	units := []struct {
		value  int64
		name   string
		plural bool
	}{
		{years, "year", true},
		{months, "month", true},
		{days, "day", true},
		{rem / 3600, "h", false},
		{rem % 3600 / 60, "m", false},
		{rem % 60, "s", false},
	}

	var parts []string
	for _, u := range units {
		if u.value == 0 {
			continue
		}
		part := strconv.FormatInt(u.value, 10) + u.name
		if u.plural && u.value > 1 {
			part += "s"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}
