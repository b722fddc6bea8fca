package context

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var compactPattern = regexp.MustCompile(`^(\d+)([dhm])$`)
var relativePattern = regexp.MustCompile(`^(\d+)\s+(day|days|month|months)\s+ago$`)

// ParseTimeframe translates a timeframe string (§6.4's grammar) to an
// absolute "since" instant relative to now. A form it cannot parse
// falls back to the default 7-day window.
func ParseTimeframe(raw string, now time.Time) time.Time {
	s := strings.ToLower(strings.TrimSpace(raw))

	if m := compactPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			switch m[2] {
			case "d":
				return now.AddDate(0, 0, -n)
			case "h":
				return now.Add(-time.Duration(n) * time.Hour)
			case "m":
				return now.Add(-time.Duration(n) * time.Minute)
			}
		}
	}

	switch s {
	case "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "yesterday":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	case "last week":
		return now.AddDate(0, 0, -7)
	}

	if m := relativePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			if strings.HasPrefix(m[2], "month") {
				return now.AddDate(0, -n, 0)
			}
			return now.AddDate(0, 0, -n)
		}
	}

	return parseDefault(now)
}

func parseDefault(now time.Time) time.Time {
	return now.AddDate(0, 0, -7)
}
