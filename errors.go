package bagio

import (
	"fmt"

	"github.com/rosetool/bagio/rosbag"
)

// OpenError reports that an input recording could not be opened or read.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open recording %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// CreateError reports that an output recording could not be created or
// written.
type CreateError struct {
	Path string
	Err  error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create recording %s: %v", e.Path, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// NotLoadedError reports a call that requires a loaded recording.
type NotLoadedError struct {
	Op string
}

func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("%s requires a loaded recording; call Load first", e.Op)
}

// InvalidRangeError reports a time range whose end precedes its start.
type InvalidRangeError struct {
	Start rosbag.Time
	End   rosbag.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid time range: end %s precedes start %s", e.End, e.Start)
}
