package player

import (
	"sync"
	"time"
)

// Scheduler runs fn every interval until the returned stop function is
// called. Stop must be safe to call more than once and must not block on a
// callback in progress.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// RealScheduler schedules callbacks on a time.Ticker
type RealScheduler struct{}

func (RealScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// ManualScheduler is a virtual clock. Callbacks only run from Advance.
type ManualScheduler struct {
	mutex  sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	interval time.Duration
	next     time.Duration
	fn       func()
	stopped  bool
}

// NewManualScheduler creates a virtual clock at time zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) Every(interval time.Duration, fn func()) func() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	timer := &manualTimer{interval: interval, next: m.now + interval, fn: fn}
	m.timers = append(m.timers, timer)

	return func() {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		timer.stopped = true
	}
}

// Advance moves the clock forward by d, firing due callbacks in time order.
// Callbacks run without the scheduler lock held, so they may start or stop
// timers.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mutex.Lock()
	target := m.now + d

	for {
		var due *manualTimer
		for _, t := range m.timers {
			if t.stopped || t.next > target {
				continue
			}
			if due == nil || t.next < due.next {
				due = t
			}
		}
		if due == nil {
			break
		}

		m.now = due.next
		due.next += due.interval
		fn := due.fn

		m.mutex.Unlock()
		fn()
		m.mutex.Lock()
	}

	m.now = target
	m.prune()
	m.mutex.Unlock()
}

// Active returns the number of running timers
func (m *ManualScheduler) Active() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.prune()
	return len(m.timers)
}

func (m *ManualScheduler) prune() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live
}
