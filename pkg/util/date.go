package util

import (
    "strconv"
    "time"
)

// ISOMillis is the UTC ISO-8601 layout with millisecond precision used in decision records.
const ISOMillis = "2006-01-02T15:04:05.000Z"

// FormatISOMillis renders t in UTC as 2023-12-01T10:00:00.000Z.
func FormatISOMillis(t time.Time) string {
    return t.UTC().Format(ISOMillis)
}

// ParseTime tries ISO millis, RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    for _, layout := range []string{ISOMillis, time.RFC3339, time.RFC3339Nano} {
        if t, err := time.Parse(layout, s); err == nil {
            return t, true
        }
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}
