package alerts

import "time"

// MayFire reports whether a rule is allowed to fire at now, given the
// creation time of its most recent alert. A zero or negative cooldown
// disables suppression. The boundary is inclusive: at exactly
// cooldownMinutes elapsed the rule fires again.
func MayFire(cooldownMinutes int, lastFired *time.Time, now time.Time) bool {
	if cooldownMinutes <= 0 {
		return true
	}
	if lastFired == nil {
		return true
	}
	elapsed := now.Sub(*lastFired)
	return elapsed >= time.Duration(cooldownMinutes)*time.Minute
}
