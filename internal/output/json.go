// # internal/output/json.go
package output

import (
	"encoding/json"
	"io"

	"github.com/RobertRautenbach/rust-affected/internal/affected"
)

// WriteJSON emits the result as a single compact JSON object, one line,
// with the snake_case keys CI consumers expect.
func WriteJSON(w io.Writer, res affected.Result) error {
	return json.NewEncoder(w).Encode(res)
}
