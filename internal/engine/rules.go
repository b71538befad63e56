// Package engine implements the credibility and consensus scoring engine:
// reviewer weighting, weighted consensus, paper status classification,
// review quality gating, outlier detection, author Elo feedback, tier cap
// enforcement, and bounty truth-anchor reconciliation.
//
// All thresholds and factors live in Rules. The engine never reads
// module-level constants, so multiple rule-set versions can coexist and
// tests can pin their own numbers.
package engine

// Snapshot is a reviewer's credibility captured at the moment a review was
// inserted. It is deliberately a distinct type from live credibility
// (plain float64 on Agent): consensus weighting must use the snapshot, so
// a reviewer cannot inflate past reviews by gaining credibility later.
type Snapshot float64

// WeightBand maps a credibility snapshot ceiling to a scoring weight.
// Bands are evaluated in order; the first band with UpTo >= snapshot wins.
type WeightBand struct {
	UpTo   float64
	Weight float64
}

// KBand maps an author credibility ceiling to an Elo K-factor.
type KBand struct {
	UpTo float64
	K    float64
}

// TierRequirement gates credibility growth past Cap. All minimums must be
// met (from live store counts, never cached counters) before an agent's
// balance may exceed Cap. MinPaperScore of 0 means no quality requirement.
type TierRequirement struct {
	Cap              float64
	MinReviews       int
	MinValidBounties int
	MinPapers        int
	MinRevisions     int
	MinPaperScore    float64
}

// BountyRules governs bounty validation and challenger rewards.
type BountyRules struct {
	// MinScoreDrop is how far the target's weighted score must have fallen
	// below score_before for the bounty to validate.
	MinScoreDrop float64
	// MinReviewsSince is how many reviews the target must have accumulated
	// after bounty registration.
	MinReviewsSince int
	// RewardRate scales the challenger reward by the observed score drop.
	RewardRate float64
	// RewardCap bounds the challenger reward.
	RewardCap float64
}

// ReconcileRules holds the truth-anchor blend and redistribution factors.
type ReconcileRules struct {
	// RebutClaimFactor: a rebut-stance rebuttal scoring S claims the
	// original deserves 10 - RebutClaimFactor*S.
	RebutClaimFactor float64
	// SupportClaimFactor: a support-stance rebuttal scoring S claims the
	// original deserves consensus + SupportClaimFactor*S (capped at 10).
	SupportClaimFactor float64
	// FullWeightReviews is the review count at which a rebuttal's
	// community-agreement weight saturates.
	FullWeightReviews int
	// InfluenceRate and InfluenceCap control how much accumulated rebuttal
	// weight shifts the anchor away from the original consensus. The cap
	// keeps a single weak rebuttal from overriding a paper outright.
	InfluenceRate float64
	InfluenceCap  float64
	// ConvergenceRate is the fraction of the distance toward the anchor
	// the live paper score moves per validation. One resolution is
	// evidence, not proof.
	ConvergenceRate float64

	// Reviewer redistribution.
	NearDistance   float64 // within this of the anchor: flat reward
	FarDistance    float64 // beyond this: proportional penalty
	NearReward     float64
	FarPenaltyRate float64
	// Vindicated outlier bonus: rate per point of original deviation, capped.
	VindicatedRate float64
	VindicatedCap  float64

	// Rebuttal voter redistribution (asymmetric so honest disagreement is
	// not over-punished).
	VoterReward  float64
	VoterPenalty float64

	// Challenger diversity bonus: applies when the challenger's own review
	// of the target was an outlier consistent with the rebuttal stance.
	DiversityRate float64
	DiversityCap  float64
}

// Rules is the complete, immutable rule-set for one engine instance.
type Rules struct {
	MinCredibility      float64
	MaxCredibility      float64
	StartingCredibility float64

	WeightBands   []WeightBand
	DefaultWeight float64 // weight above the last band

	MinReviewsForScore    int
	MinReviewsForVariance int

	ContestedVariance       float64
	HallScore               float64
	HallMinReviews          int
	DistinguishedScore      float64
	DistinguishedMinReviews int
	LandmarkScore           float64
	LandmarkMinReviews      int

	GateMinAssessmentLen int
	GateMinNoteLen       int
	GateMinNotesFilled   int
	GateVaguePhrases     []string

	OutlierMinReviews int
	OutlierDeviation  float64

	ReviewReward float64

	EloExpectedMin float64
	EloExpectedMax float64
	EloKBands      []KBand
	EloDefaultK    float64

	// Tiers must be sorted by ascending Cap. TierEpsilon is subtracted
	// from a blocked cap so a clamped balance reads as "blocked at 74.9",
	// not "earned 75".
	Tiers       []TierRequirement
	TierEpsilon float64

	Bounty    BountyRules
	Reconcile ReconcileRules
}

// DefaultRules returns the current production rule-set.
func DefaultRules() Rules {
	return Rules{
		MinCredibility:      0,
		MaxCredibility:      200,
		StartingCredibility: 50,

		WeightBands: []WeightBand{
			{UpTo: 10, Weight: 0.1},
			{UpTo: 25, Weight: 0.3},
			{UpTo: 50, Weight: 0.6},
			{UpTo: 75, Weight: 1.0},
			{UpTo: 100, Weight: 1.2},
			{UpTo: 150, Weight: 1.5},
		},
		DefaultWeight: 2.0,

		MinReviewsForScore:    5,
		MinReviewsForVariance: 3,

		ContestedVariance:       4.0,
		HallScore:               8.5,
		HallMinReviews:          5,
		DistinguishedScore:      9.0,
		DistinguishedMinReviews: 8,
		LandmarkScore:           9.5,
		LandmarkMinReviews:      12,

		GateMinAssessmentLen: 100,
		GateMinNoteLen:       50,
		GateMinNotesFilled:   2,
		GateVaguePhrases: []string{
			"good",
			"bad",
			"nice",
			"good paper",
			"bad paper",
			"great paper",
			"looks good",
			"looks fine",
			"lgtm",
			"interesting",
			"well done",
			"i agree",
			"i disagree",
		},

		OutlierMinReviews: 4,
		OutlierDeviation:  3.5,

		ReviewReward: 0.5,

		EloExpectedMin: 3,
		EloExpectedMax: 9,
		EloKBands: []KBand{
			{UpTo: 25, K: 1.2},
			{UpTo: 50, K: 1.0},
			{UpTo: 100, K: 0.8},
			{UpTo: 150, K: 0.5},
		},
		EloDefaultK: 0.3,

		Tiers: []TierRequirement{
			{Cap: 75, MinReviews: 10, MinValidBounties: 0, MinPapers: 1, MinRevisions: 0, MinPaperScore: 0},
			{Cap: 100, MinReviews: 25, MinValidBounties: 1, MinPapers: 3, MinRevisions: 1, MinPaperScore: 0},
			{Cap: 150, MinReviews: 50, MinValidBounties: 3, MinPapers: 5, MinRevisions: 2, MinPaperScore: 8.0},
			{Cap: 175, MinReviews: 100, MinValidBounties: 5, MinPapers: 10, MinRevisions: 5, MinPaperScore: 9.0},
		},
		TierEpsilon: 0.1,

		Bounty: BountyRules{
			MinScoreDrop:    1.0,
			MinReviewsSince: 3,
			RewardRate:      2.0,
			RewardCap:       15,
		},

		Reconcile: ReconcileRules{
			RebutClaimFactor:   0.9,
			SupportClaimFactor: 0.3,
			FullWeightReviews:  5,
			InfluenceRate:      0.3,
			InfluenceCap:       0.8,
			ConvergenceRate:    0.3,

			NearDistance:   1.0,
			FarDistance:    1.5,
			NearReward:     0.5,
			FarPenaltyRate: 1.0,
			VindicatedRate: 0.8,
			VindicatedCap:  6,

			VoterReward:  1.0,
			VoterPenalty: 0.5,

			DiversityRate: 0.8,
			DiversityCap:  5,
		},
	}
}
