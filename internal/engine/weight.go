package engine

// Weight maps a credibility snapshot to a scoring influence multiplier.
// Deterministic step function: the same snapshot always yields the same
// weight, which is what makes consensus scores reproducible from the
// transaction log.
func (r Rules) Weight(s Snapshot) float64 {
	for _, band := range r.WeightBands {
		if float64(s) <= band.UpTo {
			return band.Weight
		}
	}
	return r.DefaultWeight
}
