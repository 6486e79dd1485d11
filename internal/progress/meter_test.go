package progress

import (
	"testing"
	"time"
)

func TestMeterRateAndETA(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	m := NewMeterWithNow(func() time.Time { return now })
	m.Observe(0, 2000)

	now = now.Add(1 * time.Second)
	m.Observe(1000, 2000)

	stats := m.Snapshot()
	if stats.Done != 1000 {
		t.Fatalf("expected done 1000, got %d", stats.Done)
	}
	if stats.Rate < 900 || stats.Rate > 1100 {
		t.Fatalf("expected rate around 1000 B/s, got %.2f", stats.Rate)
	}
	if stats.ETA < 900*time.Millisecond || stats.ETA > 1100*time.Millisecond {
		t.Fatalf("expected ETA around 1s, got %s", stats.ETA)
	}
	if stats.Percent() != 50 {
		t.Fatalf("expected 50%%, got %.1f", stats.Percent())
	}
}

func TestMeterEWMASmoothing(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	m := NewMeterWithNow(func() time.Time { return now })
	m.Observe(0, 10000)

	now = now.Add(1 * time.Second)
	m.Observe(1000, 10000)

	now = now.Add(1 * time.Second)
	m.Observe(4000, 10000)

	// 0.2*3000 + 0.8*1000
	stats := m.Snapshot()
	if stats.Rate < 1300 || stats.Rate > 1500 {
		t.Fatalf("expected smoothed rate around 1400 B/s, got %.2f", stats.Rate)
	}
	if stats.AvgRate < 1900 || stats.AvgRate > 2100 {
		t.Fatalf("expected average rate around 2000 B/s, got %.2f", stats.AvgRate)
	}
}

func TestMeterNoRateNoETA(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	m := NewMeterWithNow(func() time.Time { return now })
	m.Observe(0, 1000)

	stats := m.Snapshot()
	if stats.Rate != 0 {
		t.Fatalf("expected rate 0, got %.2f", stats.Rate)
	}
	if stats.ETA != 0 {
		t.Fatalf("expected ETA 0, got %s", stats.ETA)
	}
}

func TestMeterIgnoresRegression(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	m := NewMeterWithNow(func() time.Time { return now })
	m.Observe(500, 1000)
	now = now.Add(time.Second)
	m.Observe(100, 1000)

	if got := m.Snapshot().Done; got != 500 {
		t.Fatalf("expected done to stay at 500, got %d", got)
	}
}

func TestEmptyTransferIsComplete(t *testing.T) {
	if p := (Stats{}).Percent(); p != 100 {
		t.Fatalf("expected 100%%, got %.1f", p)
	}
}

func TestTeeSkipsNil(t *testing.T) {
	var a, b uint64
	fn := Tee(func(done, _ uint64) { a = done }, nil, func(done, _ uint64) { b = done })
	fn(42, 100)
	if a != 42 || b != 42 {
		t.Fatalf("expected both observers to see 42, got %d and %d", a, b)
	}
}
