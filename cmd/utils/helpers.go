package utils

import (
	"fmt"
	"time"
)

// FormatCount renders an aggregate counter the way the feed displays it:
// 999 stays as-is, 1500 becomes 1.5K, 2300000 becomes 2.3M.
func FormatCount(n int) string {
	if n <= 0 {
		return "0"
	}
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

// TimeAgo renders a timestamp relative to now, coarsest unit first.
func TimeAgo(t time.Time, now time.Time) string {
	diff := now.Sub(t)
	if diff < 0 {
		diff = 0
	}
	if d := int(diff.Hours() / 24); d >= 1 {
		return fmt.Sprintf("%dd ago", d)
	}
	if h := int(diff.Hours()); h >= 1 {
		return fmt.Sprintf("%dh ago", h)
	}
	if m := int(diff.Minutes()); m >= 1 {
		return fmt.Sprintf("%dm ago", m)
	}
	return "just now"
}

// ParseCreatedAt parses the backend's ISO timestamps. Returns the zero
// time on failure so callers can render a blank instead of erroring.
func ParseCreatedAt(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
