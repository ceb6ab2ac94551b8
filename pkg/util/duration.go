package util

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidHours = errors.New("hours must be a number greater than or equal to zero")

// ParseHours parses a user-entered hour estimate. Empty input counts as zero.
func ParseHours(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	h, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHours, s)
	}
	if h < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHours, s)
	}
	return h, nil
}

// HoursToMinutes converts hours to the canonical minute count.
func HoursToMinutes(h float64) int {
	return int(math.Round(h * 60))
}

func MinutesToHours(m int) float64 {
	return float64(m) / 60
}

// FormatHours renders minutes as hours with one decimal, dropping a trailing ".0".
func FormatHours(m int) string {
	s := strconv.FormatFloat(MinutesToHours(m), 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}
