package engine

import (
	"math/rand"
	"testing"
)

func TestWeightBands(t *testing.T) {
	r := DefaultRules()
	cases := []struct {
		snapshot Snapshot
		want     float64
	}{
		{0, 0.1},
		{10, 0.1},
		{10.1, 0.3},
		{25, 0.3},
		{50, 0.6},
		{50.1, 1.0},
		{75, 1.0},
		{100, 1.2},
		{150, 1.5},
		{150.1, 2.0},
		{200, 2.0},
	}
	for _, tc := range cases {
		if got := r.Weight(tc.snapshot); got != tc.want {
			t.Errorf("Weight(%v) = %v, want %v", tc.snapshot, got, tc.want)
		}
	}
}

func TestConsensusBelowMinimum(t *testing.T) {
	r := DefaultRules()

	reviews := []ScoredReview{
		{Score: 8, Snapshot: 50},
		{Score: 9, Snapshot: 50},
	}
	score, variance := r.Consensus(reviews)
	if score != nil {
		t.Errorf("score = %v, want nil below %d reviews", *score, r.MinReviewsForScore)
	}
	if variance != nil {
		t.Errorf("variance = %v, want nil below %d reviews", *variance, r.MinReviewsForVariance)
	}

	// Variance appears at three reviews, score still withheld.
	reviews = append(reviews, ScoredReview{Score: 7, Snapshot: 50})
	score, variance = r.Consensus(reviews)
	if score != nil {
		t.Errorf("score = %v, want nil at 3 reviews", *score)
	}
	if variance == nil {
		t.Fatal("variance = nil, want value at 3 reviews")
	}
}

func TestConsensusEqualWeights(t *testing.T) {
	r := DefaultRules()

	// Five credibility-50 reviewers all weigh 0.6, so the weighted score
	// collapses to the plain mean.
	reviews := []ScoredReview{
		{Score: 8, Snapshot: 50},
		{Score: 8, Snapshot: 50},
		{Score: 8, Snapshot: 50},
		{Score: 8, Snapshot: 50},
		{Score: 2, Snapshot: 50},
	}
	score, variance := r.Consensus(reviews)
	if score == nil {
		t.Fatal("score = nil, want value at 5 reviews")
	}
	if *score != 6.8 {
		t.Errorf("score = %v, want 6.8", *score)
	}
	if variance == nil {
		t.Fatal("variance = nil, want value")
	}
	if *variance != 2.4 {
		t.Errorf("variance = %v, want 2.4", *variance)
	}
}

func TestConsensusWeighted(t *testing.T) {
	r := DefaultRules()

	reviews := []ScoredReview{
		{Score: 9, Snapshot: 120}, // weight 1.5
		{Score: 5, Snapshot: 30},  // weight 0.6
		{Score: 7, Snapshot: 60},  // weight 1.0
		{Score: 6, Snapshot: 50},  // weight 0.6
		{Score: 8, Snapshot: 80},  // weight 1.2
	}
	score, _ := r.Consensus(reviews)
	if score == nil {
		t.Fatal("score = nil, want value")
	}
	// (9*1.5 + 5*0.6 + 7*1.0 + 6*0.6 + 8*1.2) / 4.9 = 36.7/4.9
	if *score != 7.49 {
		t.Errorf("score = %v, want 7.49", *score)
	}
}

func TestConsensusOrderInvariant(t *testing.T) {
	r := DefaultRules()

	reviews := []ScoredReview{
		{Score: 9, Snapshot: 120},
		{Score: 5, Snapshot: 30},
		{Score: 7, Snapshot: 60},
		{Score: 6, Snapshot: 50},
		{Score: 8, Snapshot: 80},
		{Score: 3, Snapshot: 10},
		{Score: 10, Snapshot: 180},
	}
	wantScore, wantVariance := r.Consensus(reviews)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := make([]ScoredReview, len(reviews))
		copy(shuffled, reviews)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		score, variance := r.Consensus(shuffled)
		if *score != *wantScore {
			t.Fatalf("shuffle %d: score = %v, want %v", i, *score, *wantScore)
		}
		if *variance != *wantVariance {
			t.Fatalf("shuffle %d: variance = %v, want %v", i, *variance, *wantVariance)
		}
	}
}

func TestConsensusUnanimousZeroVariance(t *testing.T) {
	r := DefaultRules()
	reviews := []ScoredReview{
		{Score: 7, Snapshot: 20},
		{Score: 7, Snapshot: 50},
		{Score: 7, Snapshot: 90},
		{Score: 7, Snapshot: 140},
		{Score: 7, Snapshot: 160},
	}
	score, variance := r.Consensus(reviews)
	if *score != 7 {
		t.Errorf("score = %v, want 7", *score)
	}
	if *variance != 0 {
		t.Errorf("variance = %v, want 0", *variance)
	}
}
