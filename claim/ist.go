package claim

import (
	"strings"
	"time"
)

// IST is Indian Standard Time, UTC+05:30 all year.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// Stamp formats t as "YYYY-MM-DD HH:MM:SS IST".
func Stamp(t time.Time) string {
	return t.In(IST).Format("2006-01-02 15:04:05") + " IST"
}

var zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
}

// ParseSubmitted reads a stored submission date. Zoned values are converted
// to IST; naive values are taken to already be IST.
func ParseSubmitted(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(IST), true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, IST); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatSubmitted renders a stored submission date for display, returning
// the input unchanged when it cannot be parsed.
func FormatSubmitted(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	t, ok := ParseSubmitted(s)
	if !ok {
		return s
	}
	return Stamp(t)
}
