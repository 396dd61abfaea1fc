package linker

import (
	"fmt"
	"strings"
)

// Report renders the result as plain text for the email summary and the CLI.
func (r *Result) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Intake link run (%s)\n", r.Mode)
	fmt.Fprintf(&b, "%s\n\n", r.Message)
	fmt.Fprintf(&b, "Unlinked intakes: %d\nMatched: %d\nUnmatched: %d\nLinked: %d\n",
		r.Summary.TotalUnlinked, r.Summary.MatchedCount, r.Summary.UnmatchedCount, r.Summary.LinkedCount)

	if len(r.Matched) > 0 {
		b.WriteString("\nMatched intakes:\n")
		for _, m := range r.Matched {
			status := ""
			switch {
			case m.Error != "":
				status = " FAILED: " + m.Error
			case m.Linked:
				status = " linked"
			}
			fmt.Fprintf(&b, "- %s <%s> -> %s via %s%s\n", m.Name, m.Email, m.Patient.Name, m.Method, status)
		}
	}
	if len(r.Unmatched) > 0 {
		b.WriteString("\nUnmatched intakes:\n")
		for _, u := range r.Unmatched {
			fmt.Fprintf(&b, "- %s <%s> %s\n", u.Name, u.Email, u.Phone)
		}
	}
	return b.String()
}
