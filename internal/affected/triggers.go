package affected

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// matchForceTriggers reports whether any changed path matches any trigger
// pattern. An empty pattern list is false without compiling anything.
// Every pattern is compiled before any path is inspected, so a malformed
// pattern fails the whole computation up front with the offending pattern
// in the error.
func matchForceTriggers(patterns, changedFiles []string) (bool, error) {
	if len(patterns) == 0 {
		return false, nil
	}

	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(normalizeTrigger(p), '/')
		if err != nil {
			return false, fmt.Errorf("invalid force trigger pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	for _, file := range changedFiles {
		for _, g := range globs {
			if g.Match(file) {
				return true, nil
			}
		}
	}
	return false, nil
}

// normalizeTrigger widens a directory pattern like "infra/" to cover the
// whole subtree beneath it.
func normalizeTrigger(p string) string {
	if strings.HasSuffix(p, "/") {
		return p + "**"
	}
	return p
}
