package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExpandGlobs expands dataset paths and glob patterns into a sorted unique
// list. Plain paths must exist and glob patterns must match at least once.
func ExpandGlobs(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no dataset paths provided")
	}

	files := make([]string, 0)
	seen := make(map[string]struct{})

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, pattern := range patterns {
		if !hasGlobMeta(pattern) {
			if _, err := os.Stat(pattern); err != nil {
				return nil, err
			}
			add(pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no datasets match pattern %q", pattern)
		}
		for _, match := range matches {
			add(match)
		}
	}

	sort.Strings(files)
	return files, nil
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
