package scorer

// Report is the finalized view of a Scorer.
type Report struct {
	Categories   []Category `json:"categories"`
	Obtained     float64    `json:"obtained"`
	Max          float64    `json:"max"`
	Percentage   float64    `json:"percentage"`
	Grade        Grade      `json:"grade"`
	Observations []string   `json:"observations"`
}

// Passed reports whether the report's letter meets the minimum letter.
func (r Report) Passed(min string) bool {
	return AtLeast(r.Grade.Letter, min)
}
