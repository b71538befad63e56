package engine

import (
	"fmt"
	"strings"
)

// GateResult is the quality gate's verdict. Failures itemizes every unmet
// rule so the reviewer can self-correct; the caller must never collapse
// them into one opaque error.
type GateResult struct {
	Passed   bool
	Failures []string
}

// QualityGate admits a review iff the overall assessment is long enough,
// enough structured note fields carry substance, and the assessment is not
// a known low-effort platitude.
func (r Rules) QualityGate(assessment string, notes ReviewNotes) GateResult {
	var failures []string

	if len(assessment) < r.GateMinAssessmentLen {
		failures = append(failures, fmt.Sprintf(
			"overall assessment must be at least %d characters (got %d)",
			r.GateMinAssessmentLen, len(assessment)))
	}

	filled := 0
	for _, f := range notes.Fields() {
		if len(f) >= r.GateMinNoteLen {
			filled++
		}
	}
	if filled < r.GateMinNotesFilled {
		failures = append(failures, fmt.Sprintf(
			"at least %d note fields must have %d+ characters (got %d)",
			r.GateMinNotesFilled, r.GateMinNoteLen, filled))
	}

	trimmed := strings.ToLower(strings.TrimSpace(assessment))
	trimmed = strings.TrimRight(trimmed, ".!")
	for _, phrase := range r.GateVaguePhrases {
		if trimmed == phrase {
			failures = append(failures, fmt.Sprintf(
				"assessment %q is a known low-effort phrase", assessment))
			break
		}
	}

	return GateResult{Passed: len(failures) == 0, Failures: failures}
}
