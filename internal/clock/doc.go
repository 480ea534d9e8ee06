// Package clock provides the millisecond tick source used for every
// timeout decision in the portal controller.
//
// Ticks are unsigned 32-bit millisecond counters that wrap roughly every
// 49.7 days. Deadlines are never compared directly; instead the elapsed
// time is computed with unsigned subtraction, which stays correct across
// a single wraparound:
//
//	start := c.Millis()
//	...
//	if clock.HasTimedOut(c.Millis(), start, 30000) {
//	    // give up
//	}
//
// Production code injects Real(); tests inject a FakeClock and move it
// forward with Advance or Set.
package clock
