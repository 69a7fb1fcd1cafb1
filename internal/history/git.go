package history

import (
	"bytes"
	"os/exec"
	"strings"
)

// ResolveCommit resolves ref to a short commit hash, best effort.
// Returns "" when the workspace is not a git checkout or the ref is unknown.
func ResolveCommit(workspaceRoot, ref string) string {
	if strings.TrimSpace(ref) == "" {
		ref = "HEAD"
	}
	cmd := exec.Command("git", "-C", workspaceRoot, "rev-parse", "--short=12", ref)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(stdout.String())
}
