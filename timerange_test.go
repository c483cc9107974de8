package bagio

import (
	"errors"
	"testing"

	"github.com/rosetool/bagio/rosbag"
)

func TestNewTimeRangeRejectsReversedBounds(t *testing.T) {
	_, err := NewTimeRange(rosbag.Time{Sec: 5}, rosbag.Time{Sec: 4})

	var invalid *InvalidRangeError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidRangeError, got %v", err)
	}
}

func TestTimeRangeContains(t *testing.T) {
	window, err := NewTimeRange(rosbag.Time{Sec: 3}, rosbag.Time{Sec: 6})
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		Name     string
		Stamp    rosbag.Time
		Expected bool
	}{
		{Name: "Before Start", Stamp: rosbag.Time{Sec: 2, NSec: 999999999}, Expected: false},
		{Name: "At Start", Stamp: rosbag.Time{Sec: 3}, Expected: true},
		{Name: "Inside", Stamp: rosbag.Time{Sec: 4, NSec: 500}, Expected: true},
		{Name: "At End", Stamp: rosbag.Time{Sec: 6}, Expected: true},
		{Name: "After End", Stamp: rosbag.Time{Sec: 6, NSec: 1}, Expected: false},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			if got := window.Contains(testCase.Stamp); got != testCase.Expected {
				t.Fatalf("Contains(%s) = %v, expected %v", testCase.Stamp, got, testCase.Expected)
			}
		})
	}
}

func TestZeroValueIsUnbounded(t *testing.T) {
	var window TimeRange
	if window.Bounded() {
		t.Fatal("zero value must be unbounded")
	}
	if !window.Contains(rosbag.Time{}) || !window.Contains(rosbag.Time{Sec: 1 << 31}) {
		t.Fatal("unbounded range must contain every timestamp")
	}
}

func TestFromPair(t *testing.T) {
	window, err := FromPair(rosbag.Time{}, rosbag.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if window.Bounded() {
		t.Fatal("the zero pair must map to the unbounded range")
	}

	window, err = FromPair(rosbag.Time{Sec: 1}, rosbag.Time{Sec: 2})
	if err != nil {
		t.Fatal(err)
	}
	start, end, ok := window.Bounds()
	if !ok || start != (rosbag.Time{Sec: 1}) || end != (rosbag.Time{Sec: 2}) {
		t.Fatalf("unexpected bounds: (%s, %s, %v)", start, end, ok)
	}

	if _, err := FromPair(rosbag.Time{Sec: 2}, rosbag.Time{Sec: 1}); err == nil {
		t.Fatal("expected to fail")
	}
}
