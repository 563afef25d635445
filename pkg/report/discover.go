package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stackvity/sales-report/pkg/util"
)

// IgnoreFileName is read from the discovered directory, if present, for extra ignore patterns.
const IgnoreFileName = ".salesreportignore"

// DiscoverOrderFiles lists the regular files directly inside dir whose base
// name matches pattern and no ignore pattern. The result is sorted so reports
// come out in a stable order. Subdirectories are not descended into.
func DiscoverOrderFiles(dir, pattern string, ignore []string, loggerHandler slog.Handler) ([]string, error) {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "discovery"), slog.String("dir", dir))

	if pattern == "" {
		pattern = DefaultOrdersPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("%w: invalid orders pattern %q: %w", ErrConfigValidation, pattern, err)
	}

	filePatterns, err := loadIgnoreFile(filepath.Join(dir, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := append(append([]string{}, filePatterns...), ignore...)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders directory %s: %w", dir, err)
	}

	var found []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || entry.Type()&fs.ModeSymlink != 0 {
			logger.Debug("Skipping non-regular entry", slog.String("name", name))
			continue
		}
		if ok, _ := filepath.Match(pattern, name); !ok {
			continue
		}
		if util.MatchesAnyPattern(patterns, name) {
			logger.Debug("Order file ignored", slog.String("name", name))
			continue
		}
		found = append(found, filepath.Join(dir, name))
	}
	sort.Strings(found)

	logger.Debug("Order files discovered", slog.Int("count", len(found)), slog.String("pattern", pattern))
	return found, nil
}

// loadIgnoreFile reads patterns from path, one per line, skipping blanks and
// '#' comments. A missing file yields no patterns.
func loadIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ignore file %s: %w", path, err)
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", path, err)
	}
	return patterns, nil
}

// MergePaths returns explicit followed by discovered, dropping repeats while
// keeping the first occurrence of each path. Paths are compared after filepath.Clean.
func MergePaths(explicit, discovered []string) []string {
	seen := make(map[string]struct{}, len(explicit)+len(discovered))
	out := make([]string, 0, len(explicit)+len(discovered))
	for _, list := range [][]string{explicit, discovered} {
		for _, p := range list {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			key := filepath.Clean(p)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
