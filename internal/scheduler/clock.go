package scheduler

import (
	"fmt"
	"regexp"
)

var reClock = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)

// ParseClock parses a daily "HH:MM" trigger spec (24h clock) into its
// hour/minute pair.
func ParseClock(raw string) (hour, minute int, err error) {
	m := reClock.FindStringSubmatch(raw)
	if len(m) != 3 {
		return 0, 0, fmt.Errorf("invalid trigger time %q (use HH:MM, e.g. \"10:50\")", raw)
	}
	for i := 0; i < len(m[1]); i++ {
		hour = hour*10 + int(m[1][i]-'0')
	}
	minute = int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	if minute > 59 {
		return 0, 0, fmt.Errorf("invalid minutes in %q", raw)
	}
	return hour, minute, nil
}

// cronSpec renders the 5-field cron expression for a daily HH:MM firing.
func cronSpec(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}
