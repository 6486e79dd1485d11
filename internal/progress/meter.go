// Package progress measures transfer throughput from running byte counts.
package progress

import (
	"sync"
	"time"
)

// Stats is a point-in-time view of one transfer.
type Stats struct {
	Done    uint64
	Total   uint64
	Rate    float64 // smoothed bytes per second
	AvgRate float64 // bytes per second since the first observation
	ETA     time.Duration
	Elapsed time.Duration
}

// Percent returns completion in the range 0..100. An empty transfer is
// complete as soon as it is observed.
func (s Stats) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Done) / float64(s.Total) * 100
}

// Meter turns the absolute counts reported after every chunk into a smoothed
// rate. Observe matches the transfer progress callback signature.
type Meter struct {
	mu       sync.Mutex
	alpha    float64
	now      func() time.Time
	started  time.Time
	lastAt   time.Time
	lastDone uint64
	done     uint64
	total    uint64
	rate     float64
}

// NewMeter returns a meter on the wall clock.
func NewMeter() *Meter {
	return NewMeterWithNow(time.Now)
}

// NewMeterWithNow returns a meter with a custom time source.
func NewMeterWithNow(now func() time.Time) *Meter {
	if now == nil {
		now = time.Now
	}
	return &Meter{alpha: 0.2, now: now}
}

// Observe records that done of total bytes have moved.
func (m *Meter) Observe(done, total uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if m.started.IsZero() {
		m.started = now
		m.lastAt = now
	}
	m.total = total
	if done < m.done {
		return
	}
	m.done = done

	dt := now.Sub(m.lastAt).Seconds()
	if dt <= 0 {
		return
	}
	inst := float64(done-m.lastDone) / dt
	if m.rate == 0 {
		m.rate = inst
	} else {
		m.rate = m.alpha*inst + (1-m.alpha)*m.rate
	}
	m.lastAt = now
	m.lastDone = done
}

// Snapshot returns the current stats.
func (m *Meter) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{Done: m.done, Total: m.total, Rate: m.rate}
	if m.started.IsZero() {
		return s
	}
	s.Elapsed = m.now().Sub(m.started)
	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.AvgRate = float64(m.done) / secs
	}
	if m.rate > 0 && m.total > m.done {
		s.ETA = time.Duration(float64(m.total-m.done) / m.rate * float64(time.Second))
	}
	return s
}

// Tee returns a callback that feeds every observer in order. Nil observers
// are skipped.
func Tee(fns ...func(done, total uint64)) func(done, total uint64) {
	var live []func(done, total uint64)
	for _, fn := range fns {
		if fn != nil {
			live = append(live, fn)
		}
	}
	return func(done, total uint64) {
		for _, fn := range live {
			fn(done, total)
		}
	}
}
