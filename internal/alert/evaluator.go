package alert

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaxThresholdPct bounds the magnitude of a threshold.
const MaxThresholdPct = 1000

var (
	ErrInvalidThreshold    = errors.New("threshold is not a number")
	ErrZeroThreshold       = errors.New("threshold must be non-zero")
	ErrThresholdOutOfRange = errors.New("threshold magnitude must not exceed 1000%")
)

// Crossed applies the crossing rule: a positive threshold is crossed by a
// change at or above it, a negative one by a change at or below it. Zero
// never crosses.
func Crossed(threshold, change float64) bool {
	switch {
	case threshold > 0:
		return change >= threshold
	case threshold < 0:
		return change <= threshold
	default:
		return false
	}
}

// ShouldAlert is Crossed gated by the cooldown: any alert recorded inside the
// window suppresses notification.
func ShouldAlert(threshold, change float64, recentAlerts int) bool {
	return recentAlerts == 0 && Crossed(threshold, change)
}

// ValidateThreshold enforces a non-zero, finite threshold of at most 1000%.
func ValidateThreshold(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return ErrInvalidThreshold
	}
	if t == 0 {
		return ErrZeroThreshold
	}
	if math.Abs(t) > MaxThresholdPct {
		return ErrThresholdOutOfRange
	}
	return nil
}

// ParseThreshold accepts user input such as "+15", "-10", "15%" or "-7.5 %".
func ParseThreshold(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")

	t, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidThreshold, "%q", s)
	}
	if err := ValidateThreshold(t); err != nil {
		return 0, err
	}
	return t, nil
}
