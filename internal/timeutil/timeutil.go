// Package timeutil parses, formats and validates video time positions
// expressed in seconds.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MinLoopDuration is the shortest range, in seconds, accepted as a loop.
const MinLoopDuration = 1.0

// maxHours keeps hours*3600 plus minutes and seconds within an int.
const maxHours = (math.MaxInt - 3599) / 3600

// ValidationResult carries every rule a value violated. Valid is true only
// when Errors is empty.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// FormatSecondsToMMSS renders seconds as M:SS, or H:MM:SS when the value
// reaches an hour or forceHours is set. Negative or non-finite input gives "0:00".
func FormatSecondsToMMSS(seconds float64, forceHours bool) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}

	total := int64(math.Floor(seconds))
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 || forceHours {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// ParseTimeString parses "MM:SS" or "HH:MM:SS" into seconds. The boolean is
// false when the string is empty, malformed, has a non-numeric or negative
// component, or has minutes or seconds of 60 or more.
func ParseTimeString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}

	values := make([]int, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return 0, false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return 0, false
			}
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, false
		}
		values[i] = v
	}

	if len(values) == 2 {
		minutes, secs := values[0], values[1]
		if minutes >= 60 || secs >= 60 {
			return 0, false
		}
		return float64(minutes*60 + secs), true
	}

	hours, minutes, secs := values[0], values[1], values[2]
	if minutes >= 60 || secs >= 60 || hours > maxHours {
		return 0, false
	}
	return float64(hours*3600 + minutes*60 + secs), true
}

// ParseFlexibleTime accepts either a time string understood by
// ParseTimeString or a plain non-negative number of seconds.
func ParseFlexibleTime(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		return ParseTimeString(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// IsValidTimeRange checks a start/end pair against every rule at once:
// non-negative values, end after start, the minimum loop duration and, when
// maxDuration is positive, the video length.
func IsValidTimeRange(start, end, maxDuration float64) ValidationResult {
	var errs []string

	if start < 0 || end < 0 {
		errs = append(errs, "Les temps ne peuvent pas être négatifs")
	}
	if end <= start {
		errs = append(errs, "Le temps de fin doit être supérieur au temps de début")
	}
	if end-start < MinLoopDuration {
		errs = append(errs, "La durée minimale est de 1 seconde")
	}
	if maxDuration > 0 && (start > maxDuration || end > maxDuration) {
		errs = append(errs, fmt.Sprintf("La plage dépasse la durée de la vidéo (%s)", FormatSecondsToMMSS(maxDuration, false)))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// CalculateProgress returns current as a percentage of duration, clamped to [0, 100].
func CalculateProgress(current, duration float64) float64 {
	if !usableDuration(duration) || math.IsNaN(current) {
		return 0
	}
	return clamp(current/duration*100, 0, 100)
}

// PercentageToTime converts a percentage back to a position, clamped to [0, duration].
func PercentageToTime(percentage, duration float64) float64 {
	if !usableDuration(duration) || math.IsNaN(percentage) {
		return 0
	}
	return clamp(percentage/100*duration, 0, duration)
}

func usableDuration(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d > 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
