package usage

import "time"

// Projection is the advisory estimate of how much liquid is left.
type Projection struct {
	UsageSinceRefill float64
	RemainingML      float64
	// DaysUntilEmpty is nil when there is no consumption to project.
	DaysUntilEmpty *float64
}

// Project estimates the remaining level from daily usage and the time elapsed
// since the last refill. The stored level is not modified.
func Project(dailyML, currentLevel, capacity float64, lastRefill *time.Time, now time.Time) Projection {
	level := currentLevel
	if level < 0 {
		level = 0
	}
	if capacity > 0 && level > capacity {
		level = capacity
	}

	var p Projection
	if dailyML > 0 && lastRefill != nil && !lastRefill.IsZero() {
		hours := now.UTC().Sub(lastRefill.UTC()).Hours()
		if hours > 0 {
			p.UsageSinceRefill = hours / 24 * dailyML
		}
	}

	p.RemainingML = level
	if p.UsageSinceRefill > 0 {
		p.RemainingML = level - p.UsageSinceRefill
		if p.RemainingML < 0 {
			p.RemainingML = 0
		}
	}

	if dailyML > 0 {
		days := 0.0
		if p.RemainingML > 0 {
			days = p.RemainingML / dailyML
		}
		p.DaysUntilEmpty = &days
	}
	return p
}
