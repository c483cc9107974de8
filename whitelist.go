package bagio

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// ReadWhitelist parses a topic whitelist: one topic per line, with blank
// lines and #-comments ignored.
func ReadWhitelist(r io.Reader) ([]string, error) {
	var topics []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topics = append(topics, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return topics, nil
}

// LoadWhitelist reads a topic whitelist file.
func LoadWhitelist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadWhitelist(f)
}
