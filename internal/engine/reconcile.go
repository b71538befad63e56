package engine

import "math"

// ReviewSnapshot is one original review as seen by reconciliation.
type ReviewSnapshot struct {
	ReviewID   string
	ReviewerID string
	Score      int
	IsOutlier  bool
}

// RebuttalSnapshot is one scored response paper attached to the target
// (revisions excluded). Voters are the reviews cast on the rebuttal.
type RebuttalSnapshot struct {
	PaperID     string
	AuthorID    string
	Stance      string
	Score       float64
	ReviewCount int
	Voters      []ReviewSnapshot
}

// ReconcileSnapshot is a read-only view of everything a single bounty
// validation needs. It is assembled from a fresh read of the store; the
// math below never touches live state.
type ReconcileSnapshot struct {
	TargetPaperID    string
	CurrentScore     float64
	ScoreBefore      float64
	OriginalReviews  []ReviewSnapshot
	Rebuttals        []RebuttalSnapshot
	ChallengerID     string
	ChallengePaperID string
	// ChallengerReview is the challenger's own review of the target, if any.
	ChallengerReview *ReviewSnapshot
}

// Adjustment is a credibility intent produced by reconciliation. Applying
// it (clamping, tier capping, ledger write) is the engine's job, so the
// anchor math stays deterministic and testable in isolation.
type Adjustment struct {
	AgentID         string
	Delta           float64
	Reason          string
	Type            string
	RelatedPaperID  string
	RelatedReviewID string
}

// ReconcileResult is the full outcome of one bounty validation.
type ReconcileResult struct {
	OriginalConsensus float64
	RebuttalInfluence float64
	TruthAnchor       float64
	NewScore          float64
	ScoreDrop         float64
	Adjustments       []Adjustment
}

// Reconcile computes the truth anchor for a validated bounty and the
// credibility redistribution it implies. Each call recomputes from current
// ground truth and nudges incrementally: one dispute resolution is
// evidence, not a final answer, and later bounties on the same paper
// family keep converging as rebuttals and reviews accumulate.
func Reconcile(snap ReconcileSnapshot, r Rules) ReconcileResult {
	res := ReconcileResult{
		OriginalConsensus: rawMean(snap.OriginalReviews),
		ScoreDrop:         snap.ScoreBefore - snap.CurrentScore,
	}

	res.TruthAnchor, res.RebuttalInfluence = truthAnchor(snap.Rebuttals, res.OriginalConsensus, r.Reconcile)

	// Incremental convergence: move the live score a fraction of the
	// distance toward the anchor, never snap to it.
	res.NewScore = round2(snap.CurrentScore + (res.TruthAnchor-snap.CurrentScore)*r.Reconcile.ConvergenceRate)

	res.Adjustments = append(res.Adjustments, challengerAdjustments(snap, res, r)...)
	res.Adjustments = append(res.Adjustments, reviewerAdjustments(snap, res, r.Reconcile)...)
	res.Adjustments = append(res.Adjustments, voterAdjustments(snap, res, r.Reconcile)...)

	return res
}

func rawMean(reviews []ReviewSnapshot) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum float64
	for _, rev := range reviews {
		sum += float64(rev.Score)
	}
	return sum / float64(len(reviews))
}

// truthAnchor blends the original consensus with the score each rebuttal
// claims the target deserves, weighted by the rebuttal's own community
// agreement. Influence saturates at the cap so a single weak rebuttal can
// never fully override a paper. With no rebuttals the anchor is exactly
// the original consensus.
func truthAnchor(rebuttals []RebuttalSnapshot, consensus float64, rc ReconcileRules) (anchor, influence float64) {
	var claimedSum, totalWeight float64
	for _, reb := range rebuttals {
		claimed, ok := claimedScore(reb, consensus, rc)
		if !ok {
			continue
		}
		w := rebuttalWeight(reb, rc)
		claimedSum += claimed * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return consensus, 0
	}

	rebuttalTruth := claimedSum / totalWeight
	influence = math.Min(rc.InfluenceCap, totalWeight*rc.InfluenceRate)
	anchor = consensus*(1-influence) + rebuttalTruth*influence
	return anchor, influence
}

// claimedScore infers what a rebuttal says the original deserves. A
// rebut-stance paper that itself scored highly implies the original
// deserves a low score; a support-stance paper implies a boost. Neutral
// responses make no claim.
func claimedScore(reb RebuttalSnapshot, consensus float64, rc ReconcileRules) (float64, bool) {
	switch reb.Stance {
	case StanceRebut:
		claimed := 10 - reb.Score*rc.RebutClaimFactor
		if claimed < 0 {
			claimed = 0
		}
		return claimed, true
	case StanceSupport:
		return math.Min(10, consensus+reb.Score*rc.SupportClaimFactor), true
	default:
		return 0, false
	}
}

// rebuttalWeight scales a rebuttal's contribution by its community
// agreement (its own score) and how many reviews back that agreement,
// saturating at FullWeightReviews.
func rebuttalWeight(reb RebuttalSnapshot, rc ReconcileRules) float64 {
	coverage := math.Min(1, float64(reb.ReviewCount)/float64(rc.FullWeightReviews))
	return (reb.Score / 10) * coverage
}

func challengerAdjustments(snap ReconcileSnapshot, res ReconcileResult, r Rules) []Adjustment {
	var adjs []Adjustment

	reward := math.Min(r.Bounty.RewardCap, res.ScoreDrop*r.Bounty.RewardRate)
	if reward > 0 {
		adjs = append(adjs, Adjustment{
			AgentID:        snap.ChallengerID,
			Delta:          round2(reward),
			Reason:         "bounty validated against overrated paper",
			Type:           TxnBountyReward,
			RelatedPaperID: snap.TargetPaperID,
		})
	}

	// Diversity bonus: the challenger's private judgment (an outlier review
	// of the target) already agreed with the public challenge they later
	// filed. Scaled by how far they deviated and how strongly the community
	// backed the challenge rebuttal.
	rev := snap.ChallengerReview
	if rev == nil || !rev.IsOutlier {
		return adjs
	}
	challenge, ok := findRebuttal(snap.Rebuttals, snap.ChallengePaperID)
	if !ok {
		return adjs
	}
	deviation := float64(rev.Score) - res.OriginalConsensus
	consistent := (challenge.Stance == StanceRebut && deviation < 0) ||
		(challenge.Stance == StanceSupport && deviation > 0)
	if !consistent {
		return adjs
	}
	agreement := challenge.Score / 10
	bonus := math.Min(r.Reconcile.DiversityCap, r.Reconcile.DiversityRate*math.Abs(deviation)*agreement)
	if bonus > 0 {
		adjs = append(adjs, Adjustment{
			AgentID:         snap.ChallengerID,
			Delta:           round2(bonus),
			Reason:          "outlier review consistent with validated challenge",
			Type:            TxnDiversityBonus,
			RelatedPaperID:  snap.TargetPaperID,
			RelatedReviewID: rev.ReviewID,
		})
	}
	return adjs
}

// reviewerAdjustments re-scores every original reviewer against the truth
// anchor: vindicated outliers get a bonus proportional to their original
// deviation, reviewers far from the anchor pay proportionally, reviewers
// close to it collect a small flat reward.
func reviewerAdjustments(snap ReconcileSnapshot, res ReconcileResult, rc ReconcileRules) []Adjustment {
	var adjs []Adjustment
	for _, rev := range snap.OriginalReviews {
		dist := math.Abs(float64(rev.Score) - res.TruthAnchor)
		deviation := float64(rev.Score) - res.OriginalConsensus

		vindicated := rev.IsOutlier &&
			((deviation < 0 && res.TruthAnchor < res.OriginalConsensus) ||
				(deviation > 0 && res.TruthAnchor > res.OriginalConsensus))

		switch {
		case vindicated:
			bonus := math.Min(rc.VindicatedCap, rc.VindicatedRate*math.Abs(deviation))
			adjs = append(adjs, Adjustment{
				AgentID:         rev.ReviewerID,
				Delta:           round2(bonus),
				Reason:          "minority review vindicated by truth anchor",
				Type:            TxnVindicatedBonus,
				RelatedPaperID:  snap.TargetPaperID,
				RelatedReviewID: rev.ReviewID,
			})
		case dist > rc.FarDistance:
			adjs = append(adjs, Adjustment{
				AgentID:         rev.ReviewerID,
				Delta:           round2(-rc.FarPenaltyRate * (dist - rc.FarDistance)),
				Reason:          "review far from reconciled truth anchor",
				Type:            TxnReviewerPenalty,
				RelatedPaperID:  snap.TargetPaperID,
				RelatedReviewID: rev.ReviewID,
			})
		case dist <= rc.NearDistance:
			adjs = append(adjs, Adjustment{
				AgentID:         rev.ReviewerID,
				Delta:           rc.NearReward,
				Reason:          "review close to reconciled truth anchor",
				Type:            TxnReviewerReward,
				RelatedPaperID:  snap.TargetPaperID,
				RelatedReviewID: rev.ReviewID,
			})
		}
	}
	return adjs
}

// voterAdjustments re-scores agents who reviewed the rebuttals. A rebuttal
// stance is "correct" when the anchor moved the way it claimed; voters who
// backed a correct rebuttal (or panned an incorrect one) are rewarded,
// opposite votes pay a smaller penalty so honest disagreement is not
// over-punished.
func voterAdjustments(snap ReconcileSnapshot, res ReconcileResult, rc ReconcileRules) []Adjustment {
	var adjs []Adjustment
	for _, reb := range snap.Rebuttals {
		var correct bool
		switch reb.Stance {
		case StanceRebut:
			correct = res.TruthAnchor < res.OriginalConsensus
		case StanceSupport:
			correct = res.TruthAnchor > res.OriginalConsensus
		default:
			continue
		}
		for _, vote := range reb.Voters {
			backed := vote.Score >= 6
			if backed == correct {
				adjs = append(adjs, Adjustment{
					AgentID:         vote.ReviewerID,
					Delta:           rc.VoterReward,
					Reason:          "rebuttal vote aligned with truth anchor",
					Type:            TxnVoterReward,
					RelatedPaperID:  reb.PaperID,
					RelatedReviewID: vote.ReviewID,
				})
			} else {
				adjs = append(adjs, Adjustment{
					AgentID:         vote.ReviewerID,
					Delta:           -rc.VoterPenalty,
					Reason:          "rebuttal vote contradicted by truth anchor",
					Type:            TxnVoterPenalty,
					RelatedPaperID:  reb.PaperID,
					RelatedReviewID: vote.ReviewID,
				})
			}
		}
	}
	return adjs
}

func findRebuttal(rebuttals []RebuttalSnapshot, paperID string) (RebuttalSnapshot, bool) {
	for _, reb := range rebuttals {
		if reb.PaperID == paperID {
			return reb, true
		}
	}
	return RebuttalSnapshot{}, false
}
