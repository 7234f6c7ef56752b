package queue

import (
	"strings"
	"testing"
	"time"
)

func TestFormatTimestampOrdersWithinOneSecond(t *testing.T) {
	whole := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	later := whole.Add(500 * time.Millisecond)

	a, b := formatTimestamp(whole), formatTimestamp(later)
	if len(a) != len(b) {
		t.Fatalf("timestamps are not fixed width: %q vs %q", a, b)
	}
	// The eligibility query compares these as strings, so lexicographic order
	// must match chronological order even when nanoseconds are zero.
	if strings.Compare(a, b) >= 0 {
		t.Fatalf("%q does not sort before %q", a, b)
	}

	parsed, err := time.Parse(time.RFC3339Nano, b)
	if err != nil {
		t.Fatalf("parse round trip: %v", err)
	}
	if !parsed.Equal(later) {
		t.Fatalf("round trip changed the instant: %v vs %v", parsed, later)
	}
}
