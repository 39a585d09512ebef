package dataset

import (
	"strings"
	"time"
)

// dateLayouts lists the accepted date formats. Ambiguous numeric dates are
// read day first; ISO dates are unambiguous and keep year-month-day order.
var dateLayouts = []string{
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006 03:04 PM",
	"02-01-2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006 03:04 PM",
	"02/01/2006",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006 3:04 PM",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006 3:04 PM",
	"2-1-2006",
	"2/1/2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseDate parses s with a day-first convention. Dates without a zone are
// taken as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
