// Package report renders evaluation outcomes for people and for machines.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/build-flow-labs/apigrader/internal/grader/checks"
	"github.com/build-flow-labs/apigrader/internal/grader/history"
)

const ruleWidth = 60

// Console writes the human-readable summary of an outcome.
func Console(out io.Writer, o *checks.Outcome) {
	r := o.Report
	rule := strings.Repeat("─", ruleWidth)

	fmt.Fprintln(out)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "EVALUATION REPORT")
	fmt.Fprintln(out, rule)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Student:\t%s\n", o.Student)
	fmt.Fprintf(w, "Profile:\t%s\n", o.Profile)
	if o.Source != "" {
		fmt.Fprintf(w, "Source:\t%s\n", o.Source)
	}
	if o.BaseURL != "" {
		fmt.Fprintf(w, "Server:\t%s\n", o.BaseURL)
	}
	fmt.Fprintf(w, "Run:\t%s\n", o.RunID)
	fmt.Fprintf(w, "Date:\t%s\n", o.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration:\t%s\n", o.Duration.Round(100*time.Millisecond))
	w.Flush()

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "CATEGORY\tPOINTS\tPCT\n")
	fmt.Fprintf(w, "--------\t------\t---\n")
	for _, c := range r.Categories {
		fmt.Fprintf(w, "%s\t%s/%s\t%.0f%%\n", c.Name, Points(c.Obtained), Points(c.Max), c.Percentage())
	}
	w.Flush()

	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "TOTAL:       %s/%s points\n", Points(r.Obtained), Points(r.Max))
	fmt.Fprintf(out, "PERCENTAGE:  %.1f%%\n", r.Percentage)
	fmt.Fprintf(out, "GRADE:       %s\n", r.Grade.Letter)
	fmt.Fprintf(out, "MARK:        %.1f\n", r.Grade.Mark)
	fmt.Fprintln(out, rule)

	if len(r.Observations) == 0 {
		fmt.Fprintln(out, "No observations. Well done!")
		return
	}
	fmt.Fprintln(out, "OBSERVATIONS:")
	for i, obs := range r.Observations {
		fmt.Fprintf(out, "  %d. %s\n", i+1, obs)
	}
}

// Trend writes one line comparing the run with the previous one.
func Trend(out io.Writer, tr history.Trend) {
	if tr.Label == history.FirstRun {
		fmt.Fprintf(out, "Trend: %s (%.1f%%)\n", tr.Label, tr.Current)
		return
	}
	fmt.Fprintf(out, "Trend: %s (%.1f%% -> %.1f%%, %+.1f)\n", tr.Label, tr.Previous, tr.Current, tr.Delta)
}

// History writes stored runs as a table.
func History(out io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "DATE\tSTUDENT\tPROFILE\tPCT\tGRADE\tMARK\tOBS\n")
	fmt.Fprintf(w, "----\t-------\t-------\t---\t-----\t----\t---\n")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\t%s\t%.1f\t%d\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Student, e.Profile, e.Percentage, e.Letter, e.Mark, len(e.Observations))
	}
	w.Flush()
}

// Points formats a point value without trailing zeros.
func Points(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
