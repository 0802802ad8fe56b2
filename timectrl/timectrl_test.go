package timectrl

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestFrameClockSetTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	fc := NewFrameClock(start, time.Second)

	newNow := start.Add(42 * time.Second)
	fc.SetTime(newNow)

	if got := fc.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}
}

func TestFrameClockDefaultTick(t *testing.T) {
	fc := NewFrameClock(time.Time{}, 0)
	if fc.Tick != DefaultTick {
		t.Fatalf("Tick = %v, want %v", fc.Tick, DefaultTick)
	}
}

func TestFrameClockStepNotifiesListeners(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	fc := NewFrameClock(start, 10*time.Millisecond)

	var total time.Duration
	var last time.Time
	fc.AddListener(func(now time.Time, dt time.Duration) {
		total += dt
		last = now
	})

	for i := 0; i < 3; i++ {
		fc.Step()
	}

	if total != 30*time.Millisecond {
		t.Fatalf("total dt = %v, want 30ms", total)
	}
	if want := start.Add(30 * time.Millisecond); !last.Equal(want) || !fc.Now().Equal(want) {
		t.Fatalf("last = %v, Now = %v, want %v", last, fc.Now(), want)
	}
	if fc.Frames() != 3 {
		t.Fatalf("Frames = %d, want 3", fc.Frames())
	}
}

func TestFrameClockStartStopsOnCancel(t *testing.T) {
	fc := NewFrameClock(time.Time{}, time.Millisecond)

	var calls atomic.Int64
	fc.AddListener(func(time.Time, time.Duration) { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := fc.Start(ctx)

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("listener called %d times before deadline", calls.Load())
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("frame loop did not stop after cancel")
	}
	if fc.Frames() < 3 {
		t.Fatalf("Frames = %d, want >= 3", fc.Frames())
	}
}
