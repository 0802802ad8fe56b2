package timectrl

import (
	"context"
	"sync"
	"time"
)

// DefaultTick is roughly one display frame at 60Hz.
const DefaultTick = 16 * time.Millisecond

// Clock is an interface for reading frame time. Components that only need
// "now" depend on this rather than a concrete FrameClock.
type Clock interface {
	Now() time.Time
}

// Listener is invoked once per frame with the frame time and the step
// since the previous frame.
type Listener func(now time.Time, dt time.Duration)

// FrameClock drives the animation loop and notifies registered listeners.
// Time advances by exactly Tick per frame regardless of wall-clock jitter,
// so a run of N frames always covers N*Tick.
type FrameClock struct {
	mu   sync.RWMutex
	Tick time.Duration

	currentTime time.Time
	frames      uint64

	listeners []Listener
}

// NewFrameClock constructs a clock starting at start. A non-positive tick
// falls back to DefaultTick.
func NewFrameClock(start time.Time, tick time.Duration) *FrameClock {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &FrameClock{
		Tick:        tick,
		currentTime: start,
	}
}

// Now returns the current frame time.
func (fc *FrameClock) Now() time.Time {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.currentTime
}

// SetTime moves the clock without notifying listeners.
func (fc *FrameClock) SetTime(t time.Time) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.currentTime = t
}

// Frames returns how many frames have been stepped.
func (fc *FrameClock) Frames() uint64 {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.frames
}

// AddListener registers a callback invoked on every frame.
func (fc *FrameClock) AddListener(fn Listener) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.listeners = append(fc.listeners, fn)
}

// Step advances one frame and runs listeners synchronously. Tests use it
// to drive animation deterministically.
func (fc *FrameClock) Step() time.Time {
	fc.mu.Lock()
	fc.currentTime = fc.currentTime.Add(fc.Tick)
	fc.frames++
	now := fc.currentTime
	dt := fc.Tick
	listeners := append([]Listener(nil), fc.listeners...)
	fc.mu.Unlock()

	for _, fn := range listeners {
		fn(now, dt)
	}
	return now
}

// Start runs the frame loop in a separate goroutine until ctx is done.
// It returns a channel that is closed when the loop exits.
func (fc *FrameClock) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(fc.Tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fc.Step()
			}
		}
	}()
	return done
}
