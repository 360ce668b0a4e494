// Package bookmarks extracts tweet IDs from exported bookmark link files.
package bookmarks

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var statusIDPattern = regexp.MustCompile(`status(?:es)?/(\d+)`)

// ParseLinksFile reads a bookmarks export, one URL per line, and returns the
// unique tweet IDs found in it, sorted. Blank lines and lines starting with #
// are skipped; lines without a status ID are ignored.
func ParseLinksFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bookmarks: open %s: %w", path, err)
	}
	defer f.Close()

	seen := map[string]struct{}{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if id := ExtractStatusID(line); id != "" {
			seen[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("bookmarks: read %s: %w", path, err)
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ExtractStatusID returns the tweet ID embedded in a status URL, or the input
// itself when it is already a bare numeric ID. Anything else yields "".
func ExtractStatusID(link string) string {
	if m := statusIDPattern.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	if isDigits(link) {
		return link
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
