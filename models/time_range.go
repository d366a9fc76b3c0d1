package models

import (
	"sort"
	"time"
)

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether a and b share any instant. Touching endpoints do not overlap.
func Overlaps(a, b TimeRange) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// OverlapsAny reports whether r overlaps any range in others.
func OverlapsAny(r TimeRange, others []TimeRange) bool {
	for _, o := range others {
		if Overlaps(r, o) {
			return true
		}
	}
	return false
}

func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// IsValid reports whether the range is non-empty.
func (r TimeRange) IsValid() bool {
	return r.End.After(r.Start)
}

// Clip returns the intersection of r and bounds; ok is false when it is empty.
func Clip(r, bounds TimeRange) (TimeRange, bool) {
	out := r
	if out.Start.Before(bounds.Start) {
		out.Start = bounds.Start
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	return out, out.IsValid()
}

// MergeRanges returns the union of ranges as a sorted list of disjoint ranges.
// Overlapping and touching ranges are coalesced; empty ranges are dropped.
func MergeRanges(ranges []TimeRange) []TimeRange {
	valid := make([]TimeRange, 0, len(ranges))
	for _, r := range ranges {
		if r.IsValid() {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.Slice(valid, func(i, j int) bool {
		return valid[i].Start.Before(valid[j].Start)
	})

	merged := []TimeRange{valid[0]}
	for _, r := range valid[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
