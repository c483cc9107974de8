package bagio

import (
	"github.com/rosetool/bagio/rosbag"
)

// TimeRange selects records by timestamp. The zero value is unbounded and
// matches every timestamp; a bounded range is inclusive at both ends.
type TimeRange struct {
	start   rosbag.Time
	end     rosbag.Time
	bounded bool
}

// Unbounded returns the range that matches all times.
func Unbounded() TimeRange {
	return TimeRange{}
}

// NewTimeRange returns the bounded range [start, end]. It fails with
// *InvalidRangeError when end precedes start.
func NewTimeRange(start, end rosbag.Time) (TimeRange, error) {
	if end.Before(start) {
		return TimeRange{}, &InvalidRangeError{Start: start, End: end}
	}
	return TimeRange{start: start, end: end, bounded: true}, nil
}

// FromPair maps the legacy convention where the pair (0, 0) means "no time
// filter" onto an explicit range. Any other pair is validated as bounded.
func FromPair(start, end rosbag.Time) (TimeRange, error) {
	if start.IsZero() && end.IsZero() {
		return Unbounded(), nil
	}
	return NewTimeRange(start, end)
}

// Bounded reports whether the range filters at all.
func (r TimeRange) Bounded() bool {
	return r.bounded
}

// Bounds returns the range endpoints. ok is false for the unbounded range,
// whose endpoints are meaningless.
func (r TimeRange) Bounds() (start, end rosbag.Time, ok bool) {
	return r.start, r.end, r.bounded
}

// Contains reports whether t falls inside the range. Both endpoints are
// included.
func (r TimeRange) Contains(t rosbag.Time) bool {
	if !r.bounded {
		return true
	}
	return !t.Before(r.start) && !t.After(r.end)
}

func (r TimeRange) String() string {
	if !r.bounded {
		return "[unbounded]"
	}
	return "[" + r.start.String() + ", " + r.end.String() + "]"
}
