package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rosetool/bagio"
	"github.com/rosetool/bagio/rosbag"
)

func writeFixtureBag(t *testing.T) string {
	t.Helper()

	connA := &rosbag.ConnectionHeader{Topic: "/a", Type: "std_msgs/String"}
	connB := &rosbag.ConnectionHeader{Topic: "/b", Type: "std_msgs/Int32"}

	path := filepath.Join(t.TempDir(), "fixture.bag")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	writer, err := rosbag.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		stamp := rosbag.Time{Sec: uint32(i)}
		if err := writer.WriteMessage(connA, stamp, []byte("a")); err != nil {
			t.Fatal(err)
		}
		if err := writer.WriteMessage(connB, stamp, []byte("b")); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadOutput(t *testing.T, path string) (*bagio.Session, []string, map[string]uint64) {
	t.Helper()

	session := bagio.NewSession()
	t.Cleanup(func() { session.Close() })
	if err := session.Load(path, nil); err != nil {
		t.Fatal(err)
	}
	topics, err := session.Topics()
	if err != nil {
		t.Fatal(err)
	}
	counts, err := session.MessageCounts()
	if err != nil {
		t.Fatal(err)
	}
	return session, topics, counts
}

func TestFilterCmd_TopicAndWindow(t *testing.T) {
	in := writeFixtureBag(t)
	out := filepath.Join(t.TempDir(), "out.bag")

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"filter", in, out, "--topics", "/a", "--start", "3", "--end", "6"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("filter command failed: %v", err)
	}

	_, topics, counts := loadOutput(t, out)
	if len(topics) != 1 || topics[0] != "/a" {
		t.Fatalf("unexpected topics: %v", topics)
	}
	if counts["/a"] != 4 {
		t.Fatalf("expected 4 records, got %d", counts["/a"])
	}
}

func TestFilterCmd_Whitelist(t *testing.T) {
	in := writeFixtureBag(t)
	out := filepath.Join(t.TempDir(), "out.bag")

	whitelist := filepath.Join(t.TempDir(), "topics.txt")
	if err := os.WriteFile(whitelist, []byte("# keep\n/b\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"filter", in, out, "--whitelist", whitelist})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("filter command with whitelist failed: %v", err)
	}

	_, topics, counts := loadOutput(t, out)
	if len(topics) != 1 || topics[0] != "/b" {
		t.Fatalf("unexpected topics: %v", topics)
	}
	if counts["/b"] != 10 {
		t.Fatalf("expected 10 records, got %d", counts["/b"])
	}
}

func TestFilterCmd_Profile(t *testing.T) {
	in := writeFixtureBag(t)
	out := filepath.Join(t.TempDir(), "out.bag")

	profilePath := filepath.Join(t.TempDir(), "profile.yaml")
	profileYAML := `topics:
  - /a
start: "0"
end: "1"
compression: lz4
`
	if err := os.WriteFile(profilePath, []byte(profileYAML), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"filter", in, out, "--profile", profilePath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("filter command with profile failed: %v", err)
	}

	_, topics, counts := loadOutput(t, out)
	if len(topics) != 1 || topics[0] != "/a" {
		t.Fatalf("unexpected topics: %v", topics)
	}
	if counts["/a"] != 2 {
		t.Fatalf("expected records at 0s and 1s, got %d", counts["/a"])
	}
}

func TestFilterCmd_RejectsUnknownCompression(t *testing.T) {
	in := writeFixtureBag(t)
	out := filepath.Join(t.TempDir(), "out.bag")

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"filter", in, out, "--compression", "bz2"})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for unsupported compression")
	}
	if !strings.Contains(err.Error(), "--compression") {
		t.Fatalf("expected a flag error, got: %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("output file should not have been created, Stat() error = %v", statErr)
	}
}

func TestParseStamp(t *testing.T) {
	testCases := []struct {
		Name string
		In   string
		Want rosbag.Time
		Fail bool
	}{
		{
			Name: "Unix Seconds",
			In:   "42",
			Want: rosbag.Time{Sec: 42},
		},
		{
			Name: "Fractional Unix Seconds",
			In:   "3.5",
			Want: rosbag.Time{Sec: 3, NSec: 500000000},
		},
		{
			Name: "RFC 3339",
			In:   "1970-01-01T00:01:00Z",
			Want: rosbag.Time{Sec: 60},
		},
		{
			Name: "RFC 3339 Before Epoch",
			In:   "1969-12-31T23:59:59Z",
			Fail: true,
		},
		{
			Name: "Negative Seconds",
			In:   "-1",
			Fail: true,
		},
		{
			Name: "Garbage",
			In:   "tomorrow",
			Fail: true,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			got, err := parseStamp(testCase.In)
			if testCase.Fail {
				if err == nil {
					t.Fatalf("expected to fail, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStamp(%q) error = %v", testCase.In, err)
			}
			if got != testCase.Want {
				t.Fatalf("parseStamp(%q) = %v, want %v", testCase.In, got, testCase.Want)
			}
		})
	}
}

func TestFilterCmd_RejectsHalfWindow(t *testing.T) {
	in := writeFixtureBag(t)
	out := filepath.Join(t.TempDir(), "out.bag")

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"filter", in, out, "--start", "3"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when only --start is given")
	}
}

func TestInspectCmd(t *testing.T) {
	in := writeFixtureBag(t)

	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"inspect", in})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("inspect command failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"/a", "/b", "std_msgs/String", "std_msgs/Int32", "Time range:"} {
		if !strings.Contains(output, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, output)
		}
	}
}

func TestTopicsCmd(t *testing.T) {
	in := writeFixtureBag(t)

	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"topics", in})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("topics command failed: %v", err)
	}

	if got := buf.String(); got != "/a\n/b\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}
