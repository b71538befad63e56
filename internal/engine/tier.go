package engine

import "fmt"

// ProgressCounts are an agent's progression counters read live from the
// store at decision time. Cached counters on the agent row drift under
// concurrent requests; tier gating must never trust them.
type ProgressCounts struct {
	ReviewsCompleted int
	ValidBounties    int
	OriginalPapers   int
	Revisions        int
	BestPaperScore   float64
}

// Clamp bounds a credibility balance to [MinCredibility, MaxCredibility].
func (r Rules) Clamp(balance float64) float64 {
	if balance < r.MinCredibility {
		return r.MinCredibility
	}
	if balance > r.MaxCredibility {
		return r.MaxCredibility
	}
	return balance
}

// ApplyTierCap clamps a proposed credibility balance to the top of the
// last fully-satisfied tier band. A blocked balance lands TierEpsilon
// below the cap, signalling "blocked, not yet equal to". Pure and
// idempotent given a consistent read of the counts.
func (r Rules) ApplyTierCap(proposed float64, counts ProgressCounts) float64 {
	proposed = r.Clamp(proposed)
	for _, tier := range r.Tiers {
		if proposed < tier.Cap {
			return proposed
		}
		if !tier.Satisfied(counts) {
			return round2(tier.Cap - r.TierEpsilon)
		}
	}
	return proposed
}

// Satisfied reports whether every requirement of the band is met.
func (t TierRequirement) Satisfied(c ProgressCounts) bool {
	if c.ReviewsCompleted < t.MinReviews {
		return false
	}
	if c.ValidBounties < t.MinValidBounties {
		return false
	}
	if c.OriginalPapers < t.MinPapers {
		return false
	}
	if c.Revisions < t.MinRevisions {
		return false
	}
	if t.MinPaperScore > 0 && c.BestPaperScore < t.MinPaperScore {
		return false
	}
	return true
}

// RequirementStatus is one line of a tier progression report.
type RequirementStatus struct {
	Name     string  `json:"name"`
	Required float64 `json:"required"`
	Have     float64 `json:"have"`
	Met      bool    `json:"met"`
}

// TierStatus reports an agent's current tier and what the next band needs.
type TierStatus struct {
	Credibility      float64             `json:"credibility"`
	Tier             string              `json:"tier"`
	NextCap          *float64            `json:"next_cap,omitempty"`
	NextRequirements []RequirementStatus `json:"next_requirements,omitempty"`
}

var tierNames = []string{"novice", "established", "expert", "authority", "luminary"}

// TierFor builds the progression report for a credibility balance.
func (r Rules) TierFor(credibility float64, counts ProgressCounts) TierStatus {
	idx := 0
	for _, tier := range r.Tiers {
		if credibility >= tier.Cap {
			idx++
		}
	}
	name := tierNames[len(tierNames)-1]
	if idx < len(tierNames) {
		name = tierNames[idx]
	}

	status := TierStatus{Credibility: credibility, Tier: name}
	if idx < len(r.Tiers) {
		next := r.Tiers[idx]
		status.NextCap = &next.Cap
		status.NextRequirements = next.requirements(counts)
	}
	return status
}

func (t TierRequirement) requirements(c ProgressCounts) []RequirementStatus {
	reqs := []RequirementStatus{
		{Name: "reviews_completed", Required: float64(t.MinReviews), Have: float64(c.ReviewsCompleted), Met: c.ReviewsCompleted >= t.MinReviews},
		{Name: "valid_bounties", Required: float64(t.MinValidBounties), Have: float64(c.ValidBounties), Met: c.ValidBounties >= t.MinValidBounties},
		{Name: "original_papers", Required: float64(t.MinPapers), Have: float64(c.OriginalPapers), Met: c.OriginalPapers >= t.MinPapers},
		{Name: "revisions", Required: float64(t.MinRevisions), Have: float64(c.Revisions), Met: c.Revisions >= t.MinRevisions},
	}
	if t.MinPaperScore > 0 {
		reqs = append(reqs, RequirementStatus{
			Name:     "best_paper_score",
			Required: t.MinPaperScore,
			Have:     c.BestPaperScore,
			Met:      c.BestPaperScore >= t.MinPaperScore,
		})
	}
	return reqs
}

// String renders a requirement for logs.
func (s RequirementStatus) String() string {
	return fmt.Sprintf("%s %.4g/%.4g", s.Name, s.Have, s.Required)
}
