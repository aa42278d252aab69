package report

import (
	"encoding/json"
	"io"

	"github.com/build-flow-labs/apigrader/internal/grader/checks"
	"github.com/build-flow-labs/apigrader/internal/grader/history"
)

// Document is the machine-readable form of a run.
type Document struct {
	*checks.Outcome
	Trend *history.Trend `json:"trend,omitempty"`
	Gate  *GateResult    `json:"gate,omitempty"`
}

// JSON writes an indented JSON document.
func JSON(out io.Writer, doc Document) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
