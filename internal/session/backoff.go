package session

import (
	"math"
	"math/rand"
	"time"
)

// Delay returns the wait before reconfigure attempt N (1-based). With Jitter
// the result spreads over [0.5, 1.5) of the computed delay so several
// rebooting sessions do not hammer a device in lockstep.
func (c BackoffConfig) Delay(attempt int, rng *rand.Rand) time.Duration {
	if c.InitialDelay <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	multiplier := c.Multiplier
	if multiplier < 1.0 {
		multiplier = 1.0
	}
	delay := float64(c.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if c.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}
