package report

import (
	"fmt"

	"github.com/build-flow-labs/apigrader/scorer"
)

// GateResult tells whether a report meets a minimum grade.
type GateResult struct {
	Passed  bool   `json:"passed"`
	Minimum string `json:"minimum,omitempty"`
	Letter  string `json:"letter"`
	Message string `json:"message"`
}

// Gate checks a report against a minimum letter. An empty minimum always
// passes; an invalid one is an error wrapping scorer.ErrInvalidGrade.
func Gate(r scorer.Report, minLetter string) (GateResult, error) {
	res := GateResult{Letter: r.Grade.Letter}
	if minLetter == "" {
		res.Passed = true
		res.Message = "Gate passed: no minimum grade"
		return res, nil
	}

	minimum, err := scorer.ParseLetter(minLetter)
	if err != nil {
		return GateResult{}, err
	}
	res.Minimum = minimum
	if r.Passed(minimum) {
		res.Passed = true
		res.Message = fmt.Sprintf("Gate passed: grade %s meets minimum %s", r.Grade.Letter, minimum)
	} else {
		res.Message = fmt.Sprintf("Gate failed: grade %s is below minimum %s (%.1f%%)", r.Grade.Letter, minimum, r.Percentage)
	}
	return res, nil
}
