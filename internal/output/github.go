// # internal/output/github.go
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/RobertRautenbach/rust-affected/internal/affected"
)

// AppendGitHubOutput appends the four result keys to a GitHub Actions
// output file. List values are compact JSON arrays so a workflow can feed
// them straight into fromJSON().
func AppendGitHubOutput(path string, res affected.Result) error {
	content, err := GitHubLines(res)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening output file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("writing output file %s: %w", path, err)
	}
	return nil
}

// GitHubLines renders the key=value lines without touching the filesystem.
func GitHubLines(res affected.Result) (string, error) {
	var b strings.Builder
	for _, kv := range []struct {
		key   string
		value interface{}
	}{
		{"changed_crates", res.ChangedCrates},
		{"affected_library_members", res.AffectedLibraryMembers},
		{"affected_binary_members", res.AffectedBinaryMembers},
		{"force_all", res.ForceAll},
	} {
		encoded, err := json.Marshal(kv.value)
		if err != nil {
			return "", fmt.Errorf("encoding %s: %w", kv.key, err)
		}
		b.WriteString(kv.key)
		b.WriteByte('=')
		b.Write(encoded)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
