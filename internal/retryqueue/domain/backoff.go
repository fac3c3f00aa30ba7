package domain

import "time"

// Backoff returns the delay after the given failed attempt. With the
// default 2 minute base, attempts 1..4 yield 2, 4, 8, 16 minutes.
func Backoff(base time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	// Clamp the shift so a corrupt attempts value cannot overflow.
	shift := attempts - 1
	if shift > 16 {
		shift = 16
	}
	return base * time.Duration(1<<shift)
}
