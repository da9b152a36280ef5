package valueobject_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
)

func TestIsUTCDateStringFuture(t *testing.T) {
	t.Run("returns true when a date is in the future", func(t *testing.T) {
		ahead := time.Now().Add(48 * time.Hour).UTC()

		assert.True(t, valueobject.IsUTCDateStringFuture(ahead.Format(time.RFC1123)))
		assert.True(t, valueobject.IsUTCDateStringFuture(ahead.Format(time.RFC3339)))
	})

	t.Run("returns false when a date is in the past", func(t *testing.T) {
		behind := time.Now().Add(-48 * time.Hour).UTC()

		assert.False(t, valueobject.IsUTCDateStringFuture(behind.Format(time.RFC1123)))
		assert.False(t, valueobject.IsUTCDateStringFuture(behind.Format(time.RFC3339)))
	})

	t.Run("returns false for unparseable input", func(t *testing.T) {
		assert.False(t, valueobject.IsUTCDateStringFuture(""))
		assert.False(t, valueobject.IsUTCDateStringFuture("not a date"))
		assert.False(t, valueobject.IsUTCDateStringFuture("2030-13-45"))
	})
}

func TestIsUTCDateStringFutureAt(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "one second later", input: "2026-10-19T12:00:01Z", expected: true},
		{name: "exactly now", input: "2026-10-19T12:00:00Z", expected: false},
		{name: "one second earlier", input: "2026-10-19T11:59:59Z", expected: false},
		{name: "toUTCString format", input: "Tue, 20 Oct 2026 12:00:00 GMT", expected: true},
		{name: "offset is honored", input: "2026-10-19T13:30:00+02:00", expected: false},
		{name: "zone-less layout read as UTC", input: "2026-10-19 12:00:01", expected: true},
		{name: "date only", input: "2026-10-20", expected: true},
		{name: "fractional seconds", input: "2026-10-19T12:00:00.500Z", expected: true},
		{name: "garbage", input: "tomorrow", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, valueobject.IsUTCDateStringFutureAt(tt.input, now))
		})
	}
}

func TestParseUTCDate(t *testing.T) {
	parsed, ok := valueobject.ParseUTCDate("  2026-01-02T03:04:05Z ")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), parsed)
	assert.Equal(t, time.UTC, parsed.Location())

	_, ok = valueobject.ParseUTCDate("   ")
	assert.False(t, ok)
}
