package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if !clock.Now().Equal(start) {
		t.Errorf("Now() = %v, expected %v", clock.Now(), start)
	}

	clock.Advance(3 * time.Second)
	if d := clock.Since(start); d != 3*time.Second {
		t.Errorf("Since(start) = %v, expected 3s", d)
	}
}

func TestMockClock_TickerFires(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	ticker := clock.NewTicker(time.Second)

	select {
	case <-ticker.C():
		t.Fatal("ticker fired before any time advanced")
	default:
	}

	clock.Advance(time.Second)
	select {
	case tick := <-ticker.C():
		if !tick.Equal(start.Add(time.Second)) {
			t.Errorf("tick = %v, expected %v", tick, start.Add(time.Second))
		}
	default:
		t.Fatal("expected ticker to fire after advancing past the interval")
	}
}

func TestMockTicker_Stop(t *testing.T) {
	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ticker := clock.NewTicker(time.Second)
	ticker.Stop()

	clock.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
