package engine

import "math"

// ScoredReview is the consensus scorer's view of one passing review.
type ScoredReview struct {
	Score    int
	Snapshot Snapshot
}

// Consensus computes the weighted score and population variance signal for
// a paper from its quality-gate-passing reviews.
//
// The weighted score is nil until MinReviewsForScore reviews accumulate.
// Variance is the population standard deviation of the raw scores (not
// weighted) and is nil below MinReviewsForVariance; it feeds contested
// detection only, never the score itself.
func (r Rules) Consensus(reviews []ScoredReview) (score, variance *float64) {
	if len(reviews) >= r.MinReviewsForScore {
		var weightedSum, totalWeight float64
		for _, rev := range reviews {
			w := r.Weight(rev.Snapshot)
			weightedSum += float64(rev.Score) * w
			totalWeight += w
		}
		// Weight floor is 0.1 so this should not happen; guard anyway.
		if totalWeight > 0 {
			s := round2(weightedSum / totalWeight)
			score = &s
		}
	}

	if len(reviews) >= r.MinReviewsForVariance {
		var sum float64
		for _, rev := range reviews {
			sum += float64(rev.Score)
		}
		mean := sum / float64(len(reviews))
		var sq float64
		for _, rev := range reviews {
			d := float64(rev.Score) - mean
			sq += d * d
		}
		v := round2(math.Sqrt(sq / float64(len(reviews))))
		variance = &v
	}

	return score, variance
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
