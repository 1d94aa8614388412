package utils

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParseInterval converts an interval string like "15m", "1h" or "1d" into a
// duration. An unrecognized suffix or a missing numeric part falls back to
// one minute, matching the exchange's smallest polling period.
func ParseInterval(interval string) time.Duration {
	s := strings.TrimSpace(interval)
	if s == "" {
		return time.Minute
	}

	unit := s[len(s)-1]
	digits := strings.TrimRightFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	value, err := strconv.Atoi(digits)
	if err != nil || value <= 0 {
		return time.Minute
	}

	switch unit {
	case 'm':
		return time.Duration(value) * time.Minute
	case 'h':
		return time.Duration(value) * time.Hour
	case 'd':
		return time.Duration(value) * 24 * time.Hour
	default:
		return time.Minute
	}
}

// CandlePeriod maps an interval string onto the period names the candle
// endpoint expects: minutes become "Nmin", hours stay "Nh" and days become
// "Nday". Anything unrecognized maps to "1min".
func CandlePeriod(interval string) string {
	s := strings.TrimSpace(interval)
	if s == "" {
		return "1min"
	}

	unit := s[len(s)-1]
	digits := strings.TrimRightFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	value, err := strconv.Atoi(digits)
	if err != nil || value <= 0 {
		return "1min"
	}

	switch unit {
	case 'm':
		return digits + "min"
	case 'h':
		return digits + "h"
	case 'd':
		return digits + "day"
	default:
		return "1min"
	}
}
