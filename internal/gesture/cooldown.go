package gesture

import "time"

// CooldownGate rate limits labels independently of each other.
//
// It is not safe for concurrent use; the dispatcher owns it and is itself
// called from a single goroutine.
type CooldownGate struct {
	cooldown  time.Duration
	lastFired map[Label]time.Time
}

// NewCooldownGate returns a gate that allows each label once per cooldown.
func NewCooldownGate(cooldown time.Duration) *CooldownGate {
	return &CooldownGate{
		cooldown:  cooldown,
		lastFired: make(map[Label]time.Time),
	}
}

// Cooldown returns the configured cooldown.
func (g *CooldownGate) Cooldown() time.Duration {
	return g.cooldown
}

// SetCooldown changes the cooldown. Recorded firing times are kept.
func (g *CooldownGate) SetCooldown(d time.Duration) {
	g.cooldown = d
}

// Ready reports whether label may fire at now. The boundary is inclusive:
// exactly one cooldown after the last firing is allowed.
func (g *CooldownGate) Ready(label Label, now time.Time) bool {
	last, ok := g.lastFired[label]
	if !ok {
		return true
	}
	return now.Sub(last) >= g.cooldown
}

// Record marks label as fired at now.
func (g *CooldownGate) Record(label Label, now time.Time) {
	g.lastFired[label] = now
}

// Allow is Ready followed by Record when ready.
func (g *CooldownGate) Allow(label Label, now time.Time) bool {
	if !g.Ready(label, now) {
		return false
	}
	g.Record(label, now)
	return true
}

// LastFired returns when label last fired.
func (g *CooldownGate) LastFired(label Label) (time.Time, bool) {
	t, ok := g.lastFired[label]
	return t, ok
}

// Remaining returns how long label is still blocked at now.
func (g *CooldownGate) Remaining(label Label, now time.Time) time.Duration {
	last, ok := g.lastFired[label]
	if !ok {
		return 0
	}
	if left := g.cooldown - now.Sub(last); left > 0 {
		return left
	}
	return 0
}
