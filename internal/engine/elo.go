package engine

// EloExpected is the paper score an author's own standing implies. A
// credibility-50 author is expected to land a 5; the expectation rises a
// point per 50 credibility, clamped so nobody is expected to score a
// perfect 10 or below a 3.
func (r Rules) EloExpected(authorCredibility float64) float64 {
	expected := 5 + (authorCredibility-50)/50
	if expected < r.EloExpectedMin {
		return r.EloExpectedMin
	}
	if expected > r.EloExpectedMax {
		return r.EloExpectedMax
	}
	return expected
}

// EloK returns the K-factor for an author: higher credibility, smaller K,
// diminishing returns at the top.
func (r Rules) EloK(authorCredibility float64) float64 {
	for _, band := range r.EloKBands {
		if authorCredibility <= band.UpTo {
			return band.K
		}
	}
	return r.EloDefaultK
}

// EloDelta is the signed credibility adjustment for an author whose paper
// just reached its first weighted score. Positive when the paper
// outperformed the expectation implied by the author's standing, negative
// when it underperformed: average output costs a high-credibility author
// what it would earn a newcomer.
func (r Rules) EloDelta(authorCredibility, actualScore float64) float64 {
	diff := actualScore - r.EloExpected(authorCredibility)
	return round2(diff * r.EloK(authorCredibility))
}
