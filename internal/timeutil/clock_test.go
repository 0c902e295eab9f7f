package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	now := c.Now()
	if now.Before(before) {
		t.Error("RealClock.Now() went backwards")
	}
	if c.Since(before) < 0 {
		t.Error("RealClock.Since() negative for a past time")
	}
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}

	c.Advance(5 * time.Second)
	if got := c.Since(start); got != 5*time.Second {
		t.Errorf("Since(start) = %v, want 5s", got)
	}
}

func TestMockClockSet(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	target := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c.Set(target)
	if !c.Now().Equal(target) {
		t.Errorf("Now() = %v, want %v", c.Now(), target)
	}
}

func TestMockClockSleepRecords(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	c.Sleep(time.Second)
	c.Sleep(2 * time.Second)

	sleeps := c.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != 2*time.Second {
		t.Errorf("Sleeps() = %v", sleeps)
	}
}

func TestMockTickerFiresOnAdvance(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)

	select {
	case <-ticker.C():
		t.Fatal("ticker fired before its period elapsed")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after Advance past its period")
	}
}

func TestMockTickerStopped(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)
	ticker.Stop()

	c.Advance(2 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestMockTickerTrigger(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ticker := c.NewTicker(time.Hour).(*MockTicker)
	now := time.Unix(42, 0)
	ticker.Trigger(now)

	select {
	case got := <-ticker.C():
		if !got.Equal(now) {
			t.Errorf("tick = %v, want %v", got, now)
		}
	default:
		t.Fatal("Trigger did not deliver a tick")
	}
}
