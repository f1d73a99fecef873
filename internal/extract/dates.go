package extract

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts are tried in order against cleaned date strings. The set
// mirrors the formats the source site has been observed to use.
var dateLayouts = []string{
	"02/01/2006",      // 15/03/2023
	"02-01-2006",      // 15-03-2023
	"2006-01-02",      // 2023-03-15
	"2006/01/02",      // 2023/03/15
	"2 January 2006",  // 15 March 2023
	"2 Jan 2006",      // 15 Mar 2023
	"January 2, 2006", // March 15, 2023
	"Jan 2, 2006",     // Mar 15, 2023
	"2006",            // 2023
	"2006-01",         // 2023-03
}

var (
	datePrefixRe = regexp.MustCompile(`(?i)^(date[:\s]*|on[:\s]*)`)
	yearRe       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// ParseDate parses a scraped date string against the known layouts.
// Returns the zero time when nothing works; it never errors because
// unparseable dates are an expected condition, not a failure.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	s = datePrefixRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	// Last resort: a bare 4-digit year anywhere in the string.
	if y := yearRe.FindString(s); y != "" {
		if t, err := time.Parse("2006", y); err == nil {
			return t
		}
	}

	return time.Time{}
}

// ParseDateOr parses s, falling back to def when unparseable. Used for
// the recall date, which must never be absent.
func ParseDateOr(s string, def time.Time) time.Time {
	if t := ParseDate(s); !t.IsZero() {
		return t
	}
	return def
}

// ParseDatePtr parses s into a nullable date for the manufacturing and
// expiry fields, which are allowed to stay empty.
func ParseDatePtr(s string) *time.Time {
	if t := ParseDate(s); !t.IsZero() {
		return &t
	}
	return nil
}
