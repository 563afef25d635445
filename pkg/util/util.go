package util

import (
	"path/filepath"
	"strings"
)

// SplitFields splits a comma-delimited record, trims whitespace around every
// field and drops trailing empty fields, so "1,5," yields two fields and a
// whitespace-only line yields none.
func SplitFields(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	end := len(parts)
	for end > 0 && parts[end-1] == "" {
		end--
	}
	return parts[:end]
}

// MatchesAnyPattern reports whether relPath matches one of the glob patterns.
// A pattern without a separator is also tried against every trailing path
// segment, so "*.bak" matches "2021/orders.bak".
// Note: Malformed patterns never match.
func MatchesAnyPattern(patterns []string, relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if relPath == "" || relPath == "." {
		return false
	}
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if match, _ := filepath.Match(pattern, relPath); match {
			return true
		}
		if strings.Contains(pattern, "/") {
			continue
		}
		parts := strings.Split(relPath, "/")
		for i := range parts {
			if match, _ := filepath.Match(pattern, strings.Join(parts[i:], "/")); match {
				return true
			}
		}
	}
	return false
}
