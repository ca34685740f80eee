package request

import (
	"sync"
	"time"
)

// progressTracker polls a delegate-supplied estimate on a timer and reports
// non-decreasing progress to its observers. The value is 0 before the request
// starts and exactly 1 once it reaches a terminal state, regardless of the
// delegate's last estimate.
type progressTracker struct {
	estimate func() float64
	interval time.Duration

	mu        sync.Mutex
	observers []func(float64)
	value     float64
	started   bool
	completed bool
	stop      chan struct{}
}

func newProgressTracker(estimate func() float64, interval time.Duration) *progressTracker {
	if interval <= 0 {
		interval = DefaultPollingInterval
	}
	return &progressTracker{
		estimate: estimate,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// progress returns the last reported value.
func (p *progressTracker) progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// observe registers a progress observer. An observer registered after the
// terminal state is invoked immediately with 1.
func (p *progressTracker) observe(fn func(float64)) {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		fn(1)
		return
	}
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

// start begins polling. Idempotent; a no-op after complete.
func (p *progressTracker) start() {
	p.mu.Lock()
	if p.started || p.completed {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.poll()
}

func (p *progressTracker) poll() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.report(p.estimate())
		}
	}
}

// report clamps the estimate, keeps the value non-decreasing, and notifies
// observers outside the lock.
func (p *progressTracker) report(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return
	}
	if v < p.value {
		v = p.value
	}
	p.value = v
	observers := make([]func(float64), len(p.observers))
	copy(observers, p.observers)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(v)
	}
}

// complete forces the value to exactly 1, notifies observers one final time,
// and stops polling. Idempotent.
func (p *progressTracker) complete() {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return
	}
	p.completed = true
	p.value = 1
	observers := p.observers
	p.observers = nil
	started := p.started
	p.mu.Unlock()

	if started {
		close(p.stop)
	}

	for _, fn := range observers {
		fn(1)
	}
}
