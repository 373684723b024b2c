package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	slashPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	textPattern  = regexp.MustCompile(`^([A-Za-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})$`)
	isoPattern   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// layout is one supported input shape. match returns year, month and day
// when the input has this shape.
type layout struct {
	name  string
	match func(s string) (year int, month time.Month, day int, ok bool)
}

// layouts is tried in order; the first match wins.
var layouts = []layout{
	{name: "M/D/YYYY", match: matchSlash},
	{name: "Month D, YYYY", match: matchText},
	{name: "YYYY-MM-DD", match: matchISO},
}

// Parse converts a ledger date into noon UTC of that calendar day.
// ok is false for empty, unrecognised or calendar-invalid input.
func Parse(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, l := range layouts {
		year, month, day, matched := l.match(s)
		if !matched {
			continue
		}
		return noon(year, month, day)
	}

	return time.Time{}, false
}

// Format renders t the way the remote service expects published instants.
func Format(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// noon builds the instant and rejects days that overflow their month.
func noon(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func matchSlash(s string) (int, time.Month, int, bool) {
	m := slashPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	return year, time.Month(month), day, true
}

func matchText(s string) (int, time.Month, int, bool) {
	m := textPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, false
	}
	month, known := monthNames[strings.ToLower(m[1])]
	if !known {
		return 0, 0, 0, false
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	return year, month, day, true
}

func matchISO(s string) (int, time.Month, int, bool) {
	m := isoPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return year, time.Month(month), day, true
}
