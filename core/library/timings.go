package library

import (
	"math"
	"strconv"
	"strings"
)

// ParseTimings parses a comma separated list of seconds, e.g. "1, 2.5,4".
// Entries that are not numbers or are negative are dropped.
func ParseTimings(text string) []float64 {
	var out []float64
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// FormatTimings is the inverse of ParseTimings for display.
func FormatTimings(timings []float64) string {
	parts := make([]string, len(timings))
	for i, t := range timings {
		parts[i] = strconv.FormatFloat(t, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}
