package util

import (
    "strconv"
    "testing"
    "time"
)

func TestFormatISOMillis(t *testing.T) {
    ts := time.Date(2023, 12, 1, 10, 0, 0, 0, time.UTC)
    if got := FormatISOMillis(ts); got != "2023-12-01T10:00:00.000Z" {
        t.Fatalf("unexpected format %q", got)
    }
    local := time.Date(2023, 12, 1, 12, 0, 0, 123_000_000, time.FixedZone("X", 2*3600))
    if got := FormatISOMillis(local); got != "2023-12-01T10:00:00.123Z" {
        t.Fatalf("expected UTC conversion, got %q", got)
    }
}

func TestParseTimeISOMillis(t *testing.T) {
    got, ok := ParseTime("2023-12-01T10:00:00.250Z")
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Nanosecond() != 250_000_000 {
        t.Fatalf("unexpected nanos %d", got.Nanosecond())
    }
}

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}
