package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/wellness-api/internal/model"
)

func TestReport(t *testing.T) {
	r := &Result{
		Mode:    "applied",
		Summary: Summary{TotalUnlinked: 2, MatchedCount: 1, UnmatchedCount: 1},
		Matched: []MatchedIntake{{
			Name: "Amy Doe", Email: "a@x.com", Method: MethodEmail,
			Patient: model.PatientSummary{Name: "Amy Doe"}, Error: "write timeout",
		}},
		Unmatched: []UnmatchedIntake{{Name: "Zed", Email: "z@x.com", Phone: "123"}},
		Message:   "Linked 0 of 1 matched intakes (1 failed)",
	}

	out := r.Report()
	assert.Contains(t, out, "Intake link run (applied)")
	assert.Contains(t, out, "- Amy Doe <a@x.com> -> Amy Doe via email FAILED: write timeout")
	assert.Contains(t, out, "- Zed <z@x.com> 123")
}
