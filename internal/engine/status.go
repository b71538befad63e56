package engine

// ClassifyStatus derives a paper's lifecycle status. Decision order is
// fixed, first match wins: pending, contested, landmark, distinguished,
// hall_of_science, active. The contested check precedes the honor tiers,
// so a high-scoring paper with divergent reviews stays contested.
//
// Support/rebut/neutral responses never reach the honor tiers; such
// results are forced back to active. Revisions are exempt.
func (r Rules) ClassifyStatus(score, variance *float64, reviewCount int, stance string) string {
	status := r.classify(score, variance, reviewCount)

	if isHonorStatus(status) && isCommentaryStance(stance) {
		return StatusActive
	}
	return status
}

func (r Rules) classify(score, variance *float64, reviewCount int) string {
	if reviewCount < r.MinReviewsForScore || score == nil {
		return StatusPending
	}
	if variance != nil && *variance >= r.ContestedVariance {
		return StatusContested
	}
	switch {
	case *score >= r.LandmarkScore && reviewCount >= r.LandmarkMinReviews:
		return StatusLandmark
	case *score >= r.DistinguishedScore && reviewCount >= r.DistinguishedMinReviews:
		return StatusDistinguished
	case *score >= r.HallScore && reviewCount >= r.HallMinReviews:
		return StatusHallOfScience
	default:
		return StatusActive
	}
}

func isHonorStatus(status string) bool {
	return status == StatusHallOfScience || status == StatusDistinguished || status == StatusLandmark
}

// isCommentaryStance reports whether a paper is a response attached to a
// parent rather than standalone work. Revisions carry the parent's intent
// forward and stay eligible for honors.
func isCommentaryStance(stance string) bool {
	return stance == StanceSupport || stance == StanceNeutral || stance == StanceRebut
}
