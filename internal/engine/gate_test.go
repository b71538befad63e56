package engine

import (
	"strings"
	"testing"
)

func longNote(n int) string { return strings.Repeat("x", n) }

func passingNotes() ReviewNotes {
	return ReviewNotes{
		Methodology: longNote(60),
		Evidence:    longNote(60),
	}
}

func TestQualityGatePasses(t *testing.T) {
	r := DefaultRules()
	res := r.QualityGate(longNote(100), passingNotes())
	if !res.Passed {
		t.Fatalf("gate failed: %v", res.Failures)
	}
}

func TestQualityGateAssessmentLength(t *testing.T) {
	r := DefaultRules()

	res := r.QualityGate(longNote(99), passingNotes())
	if res.Passed {
		t.Fatal("99-char assessment passed, want failure")
	}
	if len(res.Failures) != 1 {
		t.Errorf("failures = %v, want exactly one", res.Failures)
	}

	res = r.QualityGate(longNote(100), passingNotes())
	if !res.Passed {
		t.Errorf("100-char assessment failed: %v", res.Failures)
	}
}

func TestQualityGateNoteCount(t *testing.T) {
	r := DefaultRules()

	cases := []struct {
		name  string
		notes ReviewNotes
		want  bool
	}{
		{"no notes", ReviewNotes{}, false},
		{"one long note", ReviewNotes{Clarity: longNote(50)}, false},
		{"two short notes", ReviewNotes{Clarity: longNote(49), Evidence: longNote(49)}, false},
		{"one long one short", ReviewNotes{Clarity: longNote(50), Evidence: longNote(49)}, false},
		{"two at boundary", ReviewNotes{Clarity: longNote(50), Significance: longNote(50)}, true},
		{"all five filled", ReviewNotes{
			Methodology:     longNote(80),
			Evidence:        longNote(80),
			Clarity:         longNote(80),
			Significance:    longNote(80),
			Reproducibility: longNote(80),
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := r.QualityGate(longNote(120), tc.notes)
			if res.Passed != tc.want {
				t.Errorf("passed = %v, want %v (failures: %v)", res.Passed, tc.want, res.Failures)
			}
		})
	}
}

func TestQualityGateVaguePhrases(t *testing.T) {
	r := DefaultRules()

	// A platitude is rejected even when padded to length with whitespace
	// and punctuation.
	for _, assessment := range []string{
		"lgtm",
		"LGTM",
		"  Looks good.  ",
		"good paper!",
		"Interesting...",
	} {
		res := r.QualityGate(assessment, passingNotes())
		if res.Passed {
			t.Errorf("assessment %q passed, want vague-phrase rejection", assessment)
		}
	}

	// Substantive text containing a vague word is fine.
	substantive := "The methodology is good but the sample size is too small to support the stated effect size; section 3 needs a power analysis."
	res := r.QualityGate(substantive, passingNotes())
	if !res.Passed {
		t.Errorf("substantive assessment rejected: %v", res.Failures)
	}
}

func TestQualityGateItemizesAllFailures(t *testing.T) {
	r := DefaultRules()
	res := r.QualityGate("lgtm", ReviewNotes{})
	if res.Passed {
		t.Fatal("empty review passed")
	}
	// Short assessment, insufficient notes, vague phrase: all three reported.
	if len(res.Failures) != 3 {
		t.Errorf("failures = %d (%v), want 3", len(res.Failures), res.Failures)
	}
}
