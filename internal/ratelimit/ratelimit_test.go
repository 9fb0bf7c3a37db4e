package ratelimit

import (
	"testing"
	"time"
)

func TestPacerSleepsToFillTheGap(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var naps []time.Duration

	p := NewPacerWithClock(time.Second,
		func() time.Time { return now },
		func(d time.Duration) {
			naps = append(naps, d)
			now = now.Add(d)
		})

	p.Wait() // first call, no prior timestamp worth a full interval
	now = now.Add(300 * time.Millisecond)
	p.Wait()

	if len(naps) != 1 {
		t.Fatalf("slept %d times, want 1", len(naps))
	}
	if naps[0] != 700*time.Millisecond {
		t.Errorf("slept %s, want 700ms", naps[0])
	}
}

func TestPacerNoSleepWhenGapIsWide(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	slept := false

	p := NewPacerWithClock(time.Second,
		func() time.Time { return now },
		func(d time.Duration) { slept = true })

	p.Wait()
	now = now.Add(5 * time.Second)
	p.Wait()

	if slept {
		t.Error("pacer slept although the interval had already passed")
	}
}

func TestPacerZeroIntervalNeverSleeps(t *testing.T) {
	p := NewPacerWithClock(0,
		time.Now,
		func(d time.Duration) { t.Error("unexpected sleep") })

	p.Wait()
	p.Wait()
}
