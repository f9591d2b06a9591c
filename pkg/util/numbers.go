package util

import (
    "math"
    "strconv"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
    if s == "" {
        return def
    }
    v, err := strconv.Atoi(s)
    if err != nil {
        return def
    }
    return v
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
    return math.Round(v*100) / 100
}

// FormatFloat prints the shortest decimal form of v (0.5, 1, 0.83).
func FormatFloat(v float64) string {
    return strconv.FormatFloat(v, 'f', -1, 64)
}
