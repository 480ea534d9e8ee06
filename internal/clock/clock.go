package clock

import (
	"sync"
	"time"
)

// Tick is a wrapping millisecond counter.
type Tick uint32

// Clock abstracts the monotonic tick source and the brief fixed waits
// allowed inside a poll cycle.
type Clock interface {
	// Millis returns the current tick.
	Millis() Tick

	// Sleep pauses the caller for d.
	Sleep(d time.Duration)
}

// Elapsed returns now-start in milliseconds. The subtraction is done on
// unsigned 32-bit values, so a counter that wrapped between start and
// now still yields the true distance.
func Elapsed(now, start Tick) uint32 {
	return uint32(now - start)
}

// HasTimedOut reports whether at least limit milliseconds have passed
// between start and now.
func HasTimedOut(now, start Tick, limit uint32) bool {
	return Elapsed(now, start) >= limit
}

// Real returns a Clock backed by the runtime monotonic clock.
func Real() Clock {
	return &realClock{origin: time.Now()}
}

type realClock struct {
	origin time.Time
}

func (r *realClock) Millis() Tick {
	return Tick(uint32(time.Since(r.origin).Milliseconds()))
}

func (r *realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// FakeClock is a deterministic Clock for tests. Time moves only when
// Advance or Set is called; Sleep advances the clock instead of
// blocking.
//
// FakeClock is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current Tick
	slept   time.Duration
}

// Fake returns a FakeClock starting at the given tick.
func Fake(initial Tick) *FakeClock {
	return &FakeClock{current: initial}
}

// Millis returns the current fake tick.
func (f *FakeClock) Millis() Tick {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Sleep advances the fake clock by d and records the total slept time.
func (f *FakeClock) Sleep(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current += Tick(uint32(d.Milliseconds()))
	f.slept += d
}

// Advance moves the clock forward by d. Wraparound is intentional.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current += Tick(uint32(d.Milliseconds()))
}

// Set jumps the clock to t.
func (f *FakeClock) Set(t Tick) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t
}

// Slept returns the total duration passed to Sleep.
func (f *FakeClock) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}
