package ratelimit

import (
	"sync"
	"time"
)

// Pacer enforces a minimum interval between consecutive calls to a shared
// upstream (LLM completions, LINE pushes). Wait blocks the caller until at
// least the configured interval has passed since the previous call returned
// from Wait.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// NewPacerWithClock is for tests that need a controllable clock.
func NewPacerWithClock(interval time.Duration, now func() time.Time, sleep func(time.Duration)) *Pacer {
	return &Pacer{
		interval: interval,
		now:      now,
		sleep:    sleep,
	}
}

func (p *Pacer) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interval <= 0 {
		p.last = p.now()
		return
	}

	gap := p.now().Sub(p.last)
	if gap < p.interval {
		p.sleep(p.interval - gap)
	}
	p.last = p.now()
}

// Interval returns the configured minimum interval.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}
