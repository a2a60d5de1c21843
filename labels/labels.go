// Package labels loads the class-name table and provides the small bounded
// cache used downstream for display strings.
package labels

import (
	"fmt"
	"os"
	"strings"
)

// Load reads one label per line, tolerating CRLF endings and skipping blank
// lines. The returned table is read-only after load and safe to share
// across pipeline runs without synchronization.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading labels %s: %w", path, err)
	}

	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("labels file %s contains no entries", path)
	}
	return out, nil
}
