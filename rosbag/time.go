package rosbag

import (
	"fmt"
	"time"
)

// Time is a bag timestamp as stored on the wire: whole seconds and
// sub-second nanoseconds since the Unix epoch.
type Time struct {
	Sec  uint32
	NSec uint32
}

// NewTime converts a time.Time to a bag timestamp.
func NewTime(t time.Time) Time {
	return timeFromNanos(uint64(t.UnixNano()))
}

func timeFromNanos(nsec uint64) Time {
	sec := nsec / 1e9
	nsec -= sec * 1e9
	return Time{Sec: uint32(sec), NSec: uint32(nsec)}
}

// Nanos returns the timestamp as nanoseconds since the Unix epoch.
func (t Time) Nanos() uint64 {
	return uint64(t.Sec)*1e9 + uint64(t.NSec)
}

// Time converts the timestamp to a time.Time in the local zone.
func (t Time) Time() time.Time {
	return time.Unix(int64(t.Sec), int64(t.NSec))
}

func (t Time) IsZero() bool {
	return t.Sec == 0 && t.NSec == 0
}

func (t Time) Before(u Time) bool {
	return t.Sec < u.Sec || (t.Sec == u.Sec && t.NSec < u.NSec)
}

func (t Time) After(u Time) bool {
	return u.Before(t)
}

func (t Time) String() string {
	return fmt.Sprintf("%d.%09d", t.Sec, t.NSec)
}
