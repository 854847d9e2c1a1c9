package app

import (
	"time"

	"guild-quiz-bot/internal/domain"
)

// ComputeDeadline adds cooldownSeconds to start as a flat duration.
func ComputeDeadline(start time.Time, cooldownSeconds int) (time.Time, error) {
	if cooldownSeconds < 0 {
		return time.Time{}, domain.ErrNegativeCooldown
	}
	return start.Add(time.Duration(cooldownSeconds) * time.Second), nil
}
