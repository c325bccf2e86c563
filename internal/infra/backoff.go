package infra

import "time"

const (
	baseBackoff = 1 * time.Second
	maxBackoff  = 60 * time.Second
)

// CalculateBackoff returns the exponential delay for a retry attempt,
// capped at maxBackoff.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount <= 0 {
		return baseBackoff
	}
	delay := baseBackoff << uint(retryCount)
	if delay > maxBackoff || delay <= 0 {
		return maxBackoff
	}
	return delay
}
