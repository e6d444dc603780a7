package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date format used for grouping keys.
const DateLayout = "2006-01-02"

var (
	reNonNum = regexp.MustCompile(`[^0-9.\-]`)

	isoLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02 3:04:05 PM",
		"2006-01-02 3:04 PM",
		"2006-01-02",
		"2006/01/02 15:04:05",
		"2006/01/02 15:04",
		"2006/01/02",
		"02-Jan-2006 15:04:05",
		"02-Jan-2006 15:04",
		"02-Jan-2006",
		"2 Jan 2006 15:04:05",
		"2 Jan 2006 15:04",
		"2 Jan 2006",
		"Jan 2, 2006 15:04:05",
		"Jan 2, 2006 3:04 PM",
		"Jan 2, 2006",
	}
	monthFirstLayouts = []string{
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
		"1/2/2006 3:04:05 PM",
		"1/2/2006 3:04 PM",
		"1/2/2006",
		"1-2-2006 15:04:05",
		"1-2-2006 15:04",
		"1-2-2006",
		"1/2/06",
	}
	dayFirstLayouts = []string{
		"2/1/2006 15:04:05",
		"2/1/2006 15:04",
		"2/1/2006 3:04:05 PM",
		"2/1/2006 3:04 PM",
		"2/1/2006",
		"2-1-2006 15:04:05",
		"2-1-2006 15:04",
		"2-1-2006",
		"2.1.2006 15:04:05",
		"2.1.2006",
		"2/1/06",
	}
	clockLayouts = []string{
		"15:04:05",
		"15:04",
		"3:04:05 PM",
		"3:04 PM",
		"3:04:05PM",
		"3:04PM",
	}
)

// ParseTimestamp parses a date or date-time. Ambiguous slash/dash dates are
// read month-first unless dayFirst is set; the other order is tried as a
// fallback so "13/01/2024" still parses without the hint.
func ParseTimestamp(s string, dayFirst bool) (time.Time, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, false
	}
	v = strings.ToUpper(v)
	if t, ok := tryLayouts(v, isoLayouts); ok {
		return t, true
	}
	first, second := monthFirstLayouts, dayFirstLayouts
	if dayFirst {
		first, second = dayFirstLayouts, monthFirstLayouts
	}
	if t, ok := tryLayouts(v, first); ok {
		return t, true
	}
	return tryLayouts(v, second)
}

// ParseDate parses s and returns the canonical calendar date, or "" when s
// cannot be parsed.
func ParseDate(s string, dayFirst bool) string {
	t, ok := ParseTimestamp(s, dayFirst)
	if !ok {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseClock extracts a time of day from either a bare clock value
// ("02:45", "2:45 AM") or a full timestamp.
func ParseClock(s string, dayFirst bool) (time.Duration, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return 0, false
	}
	if t, ok := tryLayouts(v, clockLayouts); ok {
		return TimeOfDay(t), true
	}
	if t, ok := ParseTimestamp(v, dayFirst); ok {
		return TimeOfDay(t), true
	}
	return 0, false
}

// TimeOfDay is the wall-clock offset of t from its own midnight.
func TimeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

func tryLayouts(v string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Quantity coerces a numeric cell to a non-negative decimal. Plain and
// scientific notation ("1.5E+03") parse as is; otherwise thousands separators
// and currency symbols are stripped. Anything unparsable or negative becomes
// zero.
func Quantity(s string) decimal.Decimal {
	v := strings.TrimSpace(s)
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		v = reNonNum.ReplaceAllString(v, "")
		if v == "" || v == "-" || v == "." {
			return decimal.Zero
		}
		if d, err = decimal.NewFromString(v); err != nil {
			return decimal.Zero
		}
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Text trims a categorical or identifier cell.
func Text(s string) string { return strings.TrimSpace(s) }

// matchesAny compares v against labels case-insensitively.
func matchesAny(v string, labels []string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, l := range labels {
		if strings.EqualFold(v, strings.TrimSpace(l)) {
			return true
		}
	}
	return false
}

// patternMatcher builds a case-insensitive matcher for free text. Each
// pattern must start on a word boundary so "OOS" does not match "choose".
func patternMatcher(patterns []string) *regexp.Regexp {
	var parts []string
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, regexp.QuoteMeta(p))
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)`)
}
