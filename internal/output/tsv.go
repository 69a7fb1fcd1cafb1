// # internal/output/tsv.go
package output

import (
	"fmt"
	"strings"

	"github.com/RobertRautenbach/rust-affected/internal/affected"
)

type TSVGenerator struct {
	result affected.Result
}

func NewTSVGenerator(res affected.Result) *TSVGenerator {
	return &TSVGenerator{result: res}
}

// Generate renders one row per affected member with its classification,
// importable into spreadsheets or awk pipelines.
func (t *TSVGenerator) Generate() (string, error) {
	changed := make(map[string]bool, len(t.result.ChangedCrates))
	for _, name := range t.result.ChangedCrates {
		changed[name] = true
	}
	binary := make(map[string]bool, len(t.result.AffectedBinaryMembers))
	for _, name := range t.result.AffectedBinaryMembers {
		binary[name] = true
	}

	var buf strings.Builder
	buf.WriteString("Member\tChanged\tBinary\tForceAll\n")
	for _, name := range t.result.AffectedLibraryMembers {
		buf.WriteString(fmt.Sprintf("%s\t%t\t%t\t%t\n",
			name, changed[name], binary[name], t.result.ForceAll))
	}

	return buf.String(), nil
}
