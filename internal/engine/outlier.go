package engine

import "math"

// IsOutlier flags a candidate score as statistically divergent from the
// existing passing reviews of the same paper. With fewer than
// OutlierMinReviews existing reviews there is not enough signal and
// nothing is flagged. The deviation threshold is a fixed design constant,
// not adaptive, so agents can reason about it.
func (r Rules) IsOutlier(candidate int, existing []int) bool {
	if len(existing) < r.OutlierMinReviews {
		return false
	}
	var sum float64
	for _, s := range existing {
		sum += float64(s)
	}
	mean := sum / float64(len(existing))
	return math.Abs(float64(candidate)-mean) > r.OutlierDeviation
}
