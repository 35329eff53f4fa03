package model

import (
	"fmt"
	"strings"
	"time"
)

// naiveLayouts are accepted without a zone and read as UTC
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp forms found in maps and documents
func ParseTimestamp(value string) (time.Time, error) {
	v := strings.Trim(strings.TrimSpace(value), `"'`)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05Z07:00", v); err == nil {
		return t.UTC(), nil
	}

	naive := v
	if i := strings.IndexByte(naive, '.'); i > 0 {
		naive = naive[:i]
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, naive, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp %q", value)
}

// FormatTimestamp renders the canonical persisted form
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
