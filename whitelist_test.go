package bagio

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadWhitelist(t *testing.T) {
	raw := `# topics to keep
/camera/image_raw

  /imu
# trailing comment
/tf
`

	topics, err := ReadWhitelist(strings.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"/camera/image_raw", "/imu", "/tf"}
	if diff := cmp.Diff(expected, topics); diff != "" {
		t.Fatalf("unexpected topics: %s", diff)
	}
}

func TestLoadWhitelistMissingFile(t *testing.T) {
	if _, err := LoadWhitelist("does/not/exist.txt"); err == nil {
		t.Fatal("expected to fail")
	}
}
