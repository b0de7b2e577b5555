package daterange

import (
	"fmt"
	"time"
)

// Range is an immutable half-open interval [Start, End). Operations return
// new values; a Range never changes after construction.
type Range struct {
	start time.Time
	end   time.Time
}

// New builds a range, failing when start is after end.
func New(start, end time.Time) (Range, error) {
	if start.After(end) {
		return Range{}, fmt.Errorf("invalid range: start %s after end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Range{start: start, end: end}, nil
}

// Today returns the UTC calendar day containing now.
func Today(now time.Time) Range {
	y, m, d := now.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Range{start: start, end: start.AddDate(0, 0, 1)}
}

// ThisMonth returns the UTC calendar month containing now.
func ThisMonth(now time.Time) Range {
	y, m, _ := now.UTC().Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return Range{start: start, end: start.AddDate(0, 1, 0)}
}

// LastNDays returns the n UTC calendar days ending with (and including) the
// day containing now.
func LastNDays(now time.Time, n int) Range {
	today := Today(now)
	return Range{start: today.start.AddDate(0, 0, -(n - 1)), end: today.end}
}

// Start returns the inclusive lower bound.
func (r Range) Start() time.Time { return r.start }

// End returns the exclusive upper bound.
func (r Range) End() time.Time { return r.end }

// Contains reports whether t falls within [start, end).
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.start) && t.Before(r.end)
}

// Duration returns the length of the interval.
func (r Range) Duration() time.Duration { return r.end.Sub(r.start) }

// Overlaps reports whether the two ranges share any instant.
func (r Range) Overlaps(o Range) bool {
	return r.start.Before(o.end) && o.start.Before(r.end)
}

// Union returns the smallest range covering both r and o.
func (r Range) Union(o Range) Range {
	start := r.start
	if o.start.Before(start) {
		start = o.start
	}
	end := r.end
	if o.end.After(end) {
		end = o.end
	}
	return Range{start: start, end: end}
}

// Intersect returns the overlap of r and o; ok is false when they are
// disjoint.
func (r Range) Intersect(o Range) (Range, bool) {
	if !r.Overlaps(o) {
		return Range{}, false
	}
	start := r.start
	if o.start.After(start) {
		start = o.start
	}
	end := r.end
	if o.end.Before(end) {
		end = o.end
	}
	return Range{start: start, end: end}, true
}

// Shift returns the range moved by d.
func (r Range) Shift(d time.Duration) Range {
	return Range{start: r.start.Add(d), end: r.end.Add(d)}
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.start.Format(time.RFC3339), r.end.Format(time.RFC3339))
}
