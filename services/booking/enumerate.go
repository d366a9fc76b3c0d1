package booking

import (
	"iter"
	"time"
)

// EnumerateSlots yields candidate starts windowStart, windowStart+step, ... while
// candidate+span still fits in the window. The sequence is finite and can be ranged over repeatedly.
func EnumerateSlots(windowStart, windowEnd time.Time, step, span time.Duration) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if step <= 0 || span < 0 {
			return
		}
		for c := windowStart; !c.Add(span).After(windowEnd); c = c.Add(step) {
			if !yield(c) {
				return
			}
		}
	}
}
