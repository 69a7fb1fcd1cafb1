package changeset

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// FromGit lists the files changed on head since its merge base with base
// (three-dot diff), relative to the repository root. Output is requested
// NUL-separated so paths containing spaces survive.
func FromGit(ctx context.Context, workspaceRoot, base, head string) ([]string, error) {
	out, err := runGit(ctx, workspaceRoot, "diff", "--name-only", "-z", base+"..."+head)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(out), "\x00")
	files := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		files = append(files, p)
	}
	return files, nil
}

func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git %s failed: %w\n%s", strings.Join(args, " "), err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("git %s failed: %w", strings.Join(args, " "), err)
	}
	return out, nil
}
