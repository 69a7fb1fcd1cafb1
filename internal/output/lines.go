// # internal/output/lines.go
package output

import (
	"fmt"
	"io"

	"github.com/RobertRautenbach/rust-affected/internal/affected"
)

// Field selects which result list a plain-lines emission prints.
type Field string

const (
	FieldChanged Field = "changed"
	FieldLibrary Field = "library"
	FieldBinary  Field = "binary"
)

// WriteLines prints one member name per line, for piping into shell loops
// and test matrices.
func WriteLines(w io.Writer, res affected.Result, field Field) error {
	var list []string
	switch field {
	case FieldChanged:
		list = res.ChangedCrates
	case FieldLibrary:
		list = res.AffectedLibraryMembers
	case FieldBinary:
		list = res.AffectedBinaryMembers
	default:
		return fmt.Errorf("unknown output field %q", field)
	}

	for _, name := range list {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}
