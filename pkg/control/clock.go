package control

import "time"

// Clock tells the time. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Pacer reports when a tick period has elapsed.
type Pacer struct {
	clock  Clock
	period time.Duration
	last   time.Time
}

// NewPacer returns a pacer whose first tick is due one period from now.
func NewPacer(clock Clock, period time.Duration) *Pacer {
	return &Pacer{clock: clock, period: period, last: clock.Now()}
}

// Due reports whether a period has elapsed since the last due tick and, if
// so, starts the next period.
func (p *Pacer) Due() bool {
	now := p.clock.Now()
	if now.Sub(p.last) < p.period {
		return false
	}
	p.last = now
	return true
}

// SetPeriod changes the period. Non-positive periods are ignored.
func (p *Pacer) SetPeriod(d time.Duration) {
	if d > 0 {
		p.period = d
	}
}

// Period returns the current period.
func (p *Pacer) Period() time.Duration { return p.period }
