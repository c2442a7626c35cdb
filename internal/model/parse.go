package model

import (
	"math"
	"strconv"
	"strings"
)

// ColumnIndex returns the index of the first header matching any alias,
// compared case-insensitively after trimming, or -1.
func ColumnIndex(header []string, aliases ...string) int {
	for _, a := range aliases {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), a) {
				return i
			}
		}
	}
	return -1
}

// ParseNumber reads a numeric cell, tolerating a trailing "%" and thousands
// commas. Empty or unparseable text reports ok=false.
func ParseNumber(s string) (float64, bool) {
	if IsEmptyCell(s) {
		return 0, false
	}
	t := strings.TrimSpace(s)
	t = strings.TrimSpace(strings.TrimSuffix(t, "%"))
	t = strings.ReplaceAll(t, ",", "")
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseCount reads an integer cell; fractional values are rounded.
// Missing values count as zero.
func ParseCount(s string) int {
	v, ok := ParseNumber(s)
	if !ok {
		return 0
	}
	return int(math.Round(v))
}

// ParseFlag reads an indicator cell such as "1", "0", "Yes", "TRUE", "W" or "Win".
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "w", "win", "won", "x", "✓":
		return true
	}
	if v, ok := ParseNumber(s); ok {
		return v > 0
	}
	return false
}
