package changeset

import (
	"os"
	"strings"
)

// Environment variable names match the CI interface the tool is wired into.
const (
	EnvChangedFiles    = "CHANGED_FILES"
	EnvForceTriggers   = "FORCE_TRIGGERS"
	EnvExcludedMembers = "EXCLUDED_MEMBERS"
)

// Split breaks a whitespace-separated list into entries. Any run of spaces,
// tabs or newlines separates; there is no quoting.
func Split(raw string) []string {
	return strings.Fields(raw)
}

// FromEnvironment reads the changed-file list from CHANGED_FILES. ok
// reports whether the variable was set at all: a set-but-empty value still
// selects the environment as the source and yields the empty change set
// rather than falling through to git detection.
func FromEnvironment() (files []string, ok bool) {
	raw, ok := os.LookupEnv(EnvChangedFiles)
	if !ok {
		return nil, false
	}
	return Split(raw), true
}

func TriggersFromEnvironment() []string {
	return Split(os.Getenv(EnvForceTriggers))
}

func ExclusionsFromEnvironment() []string {
	return Split(os.Getenv(EnvExcludedMembers))
}
