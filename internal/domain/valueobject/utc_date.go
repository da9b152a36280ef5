package valueobject

import (
	"strings"
	"time"
)

// Layouts accepted for native date strings. Zone-less layouts are read as UTC.
var utcDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseUTCDate parses a date string emitted by the native SDK.
func ParseUTCDate(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range utcDateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// IsUTCDateStringFuture reports whether dateString is strictly after the
// current instant. Unparseable input is never in the future.
func IsUTCDateStringFuture(dateString string) bool {
	return IsUTCDateStringFutureAt(dateString, time.Now())
}

// IsUTCDateStringFutureAt is IsUTCDateStringFuture against a fixed clock.
func IsUTCDateStringFutureAt(dateString string, now time.Time) bool {
	t, ok := ParseUTCDate(dateString)
	if !ok {
		return false
	}
	return t.After(now)
}
