package cache

import (
	"errors"
	"fmt"
	"time"
)

// Capacity and TTL limits.
const (
	// DefaultCapacity is the number of entries kept when none is configured.
	DefaultCapacity = 100

	// MinCapacity is the smallest usable capacity.
	MinCapacity = 1

	// MaxTTL is the longest accepted entry lifetime (7 days).
	MaxTTL = 7 * 24 * time.Hour

	// hoursPerDay is used for duration formatting.
	hoursPerDay = 24

	// minutesPerHour is used for duration formatting.
	minutesPerHour = 60
)

// Validation errors.
var (
	ErrInvalidCapacity = errors.New("cache capacity must be at least 1")
	ErrInvalidTTL      = fmt.Errorf("cache TTL must be between 0 and %s", FormatDuration(MaxTTL))
)

// ValidateCapacity returns ErrInvalidCapacity when capacity is below MinCapacity.
func ValidateCapacity(capacity int) error {
	if capacity < MinCapacity {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return nil
}

// ValidateTTL accepts zero (no expiry) or a positive duration up to MaxTTL.
func ValidateTTL(ttl time.Duration) error {
	if ttl < 0 || ttl > MaxTTL {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, ttl)
	}
	return nil
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "0s", "45s", "30m", "1h30m", "7d".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}
