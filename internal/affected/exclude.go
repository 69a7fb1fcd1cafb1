package affected

import "strings"

// exclusionRules is the parsed form of raw exclusion strings. A rule
// containing a path separator matches member directories, exactly or as a
// prefix ending on a directory boundary; any other rule matches member
// names exactly. Rules hide packages from output lists only and never
// participate in graph traversal.
type exclusionRules struct {
	names    map[string]bool
	prefixes []string // one trailing slash stripped
}

func parseExclusions(raw []string) exclusionRules {
	rules := exclusionRules{names: make(map[string]bool)}
	for _, r := range raw {
		if r == "" {
			continue
		}
		if strings.Contains(r, "/") {
			rules.prefixes = append(rules.prefixes, strings.TrimSuffix(r, "/"))
		} else {
			rules.names[r] = true
		}
	}
	return rules
}

func (r exclusionRules) excludes(name, dir string) bool {
	if r.names[name] {
		return true
	}
	for _, prefix := range r.prefixes {
		if dir == prefix || strings.HasPrefix(dir, prefix+"/") {
			return true
		}
	}
	return false
}
