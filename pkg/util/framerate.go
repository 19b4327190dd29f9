package util

import (
	"strconv"
	"strings"
)

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30/1").
// Plain decimals are accepted too; anything unparsable yields 0.
func ParseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		f, err := strconv.ParseFloat(num, 64)
		if err != nil || f < 0 {
			return 0
		}
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
