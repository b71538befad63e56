package engine

import (
	"errors"
	"fmt"
	"log/slog"
)

// Engine orchestrates the credibility pipeline against a Store using one
// immutable rule-set.
type Engine struct {
	store Store
	rules Rules
}

func New(store Store, rules Rules) *Engine {
	return &Engine{store: store, rules: rules}
}

// Rules returns the engine's rule-set.
func (e *Engine) Rules() Rules {
	return e.rules
}

// ReviewInput is the reviewer-supplied body of a review.
type ReviewInput struct {
	Score             int         `json:"score"`
	OverallAssessment string      `json:"overall_assessment"`
	Notes             ReviewNotes `json:"notes"`
}

// ReviewResult is the outcome of an accepted review submission.
type ReviewResult struct {
	ReviewID               string   `json:"review_id"`
	NewReviewerCredibility float64  `json:"new_reviewer_credibility"`
	PaperScore             *float64 `json:"paper_score,omitempty"`
	PaperStatus            string   `json:"paper_status"`
	IsOutlier              bool     `json:"is_outlier"`
}

// SubmitReview runs the full pipeline: policy checks, quality gate,
// outlier detection, weighted consensus, status classification, the
// one-shot author Elo feedback, and the reviewer's completion reward.
// Nothing is persisted unless the review is admitted.
func (e *Engine) SubmitReview(paperID, reviewerID string, input ReviewInput) (*ReviewResult, error) {
	paper, err := e.store.GetPaper(paperID)
	if err != nil {
		return nil, err
	}
	reviewer, err := e.store.GetAgent(reviewerID)
	if err != nil {
		return nil, err
	}

	if reviewer.Banned {
		return nil, ErrAgentBanned
	}
	if !reviewer.RegistrationPassed {
		return nil, ErrRegistrationRequired
	}
	if paper.AuthorID == reviewerID {
		return nil, ErrSelfReview
	}
	if _, err := e.store.GetReviewByReviewer(paperID, reviewerID); err == nil {
		return nil, ErrAlreadyReviewed
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if input.Score < 1 || input.Score > 10 {
		return nil, &ValidationError{Reasons: []string{"score must be between 1 and 10"}}
	}

	if gate := e.rules.QualityGate(input.OverallAssessment, input.Notes); !gate.Passed {
		return nil, &QualityGateError{Failures: gate.Failures}
	}

	existing, err := e.store.ListPassingReviews(paperID)
	if err != nil {
		return nil, err
	}
	var existingScores []int
	for _, rev := range existing {
		existingScores = append(existingScores, rev.Score)
	}
	isOutlier := e.rules.IsOutlier(input.Score, existingScores)

	snapshot := Snapshot(reviewer.Credibility)
	review := &Review{
		PaperID:             paperID,
		ReviewerID:          reviewerID,
		Score:               input.Score,
		OverallAssessment:   input.OverallAssessment,
		Notes:               input.Notes,
		SnapshotCredibility: snapshot,
		Weight:              e.rules.Weight(snapshot),
		PassedQualityGate:   true,
		IsOutlier:           isOutlier,
	}
	if err := e.store.CreateReview(review); err != nil {
		return nil, fmt.Errorf("inserting review: %w", err)
	}
	if err := e.store.IncrementReviewsCompleted(reviewerID); err != nil {
		return nil, fmt.Errorf("incrementing review counter: %w", err)
	}

	score, _, status, err := e.rescorePaper(paper)
	if err != nil {
		return nil, err
	}

	// One Elo adjustment per paper, at the instant the weighted score
	// first exists. ClaimEloFeedback guarantees at-most-once even when
	// reviews land concurrently.
	if score != nil && !paper.EloApplied {
		if err := e.applyEloFeedback(paper, *score, review.ID); err != nil {
			return nil, err
		}
	}

	newCred, err := e.applyCredibility(reviewerID, e.rules.ReviewReward,
		"review accepted", TxnReviewReward, &paperID, &review.ID)
	if err != nil {
		return nil, err
	}

	return &ReviewResult{
		ReviewID:               review.ID,
		NewReviewerCredibility: newCred,
		PaperScore:             score,
		PaperStatus:            status,
		IsOutlier:              isOutlier,
	}, nil
}

// rescorePaper recomputes consensus, variance and status from the paper's
// passing reviews and persists the result.
func (e *Engine) rescorePaper(paper *Paper) (score, variance *float64, status string, err error) {
	reviews, err := e.store.ListPassingReviews(paper.ID)
	if err != nil {
		return nil, nil, "", err
	}
	scored := make([]ScoredReview, len(reviews))
	for i, rev := range reviews {
		scored[i] = ScoredReview{Score: rev.Score, Snapshot: rev.SnapshotCredibility}
	}
	score, variance = e.rules.Consensus(scored)
	status = e.rules.ClassifyStatus(score, variance, len(reviews), paper.ResponseStance)
	if err := e.store.UpdatePaperConsensus(paper.ID, score, variance, len(reviews), status); err != nil {
		return nil, nil, "", fmt.Errorf("updating paper consensus: %w", err)
	}
	return score, variance, status, nil
}

func (e *Engine) applyEloFeedback(paper *Paper, actualScore float64, reviewID string) error {
	claimed, err := e.store.ClaimEloFeedback(paper.ID)
	if err != nil {
		return fmt.Errorf("claiming elo feedback: %w", err)
	}
	if !claimed {
		return nil
	}
	author, err := e.store.GetAgent(paper.AuthorID)
	if err != nil {
		return err
	}
	delta := e.rules.EloDelta(author.Credibility, actualScore)
	reason := fmt.Sprintf("paper scored %.2f against expectation %.2f",
		actualScore, e.rules.EloExpected(author.Credibility))
	_, err = e.applyCredibility(paper.AuthorID, delta, reason, TxnEloFeedback, &paper.ID, &reviewID)
	return err
}

// applyCredibility commits one credibility change: fresh agent read,
// bounds clamp, tier cap against live counts, ledger append. Returns the
// new balance.
func (e *Engine) applyCredibility(agentID string, delta float64, reason, txnType string, paperID, reviewID *string) (float64, error) {
	agent, err := e.store.GetAgent(agentID)
	if err != nil {
		return 0, err
	}
	counts, err := e.store.ProgressCounts(agentID)
	if err != nil {
		return 0, fmt.Errorf("counting progression: %w", err)
	}

	newBalance := round2(e.rules.ApplyTierCap(agent.Credibility+delta, counts))
	applied := round2(newBalance - agent.Credibility)

	txn := &CredibilityTransaction{
		AgentID:         agentID,
		Delta:           applied,
		BalanceAfter:    newBalance,
		Reason:          reason,
		Type:            txnType,
		RelatedPaperID:  paperID,
		RelatedReviewID: reviewID,
	}
	if err := e.store.RecordTransaction(txn); err != nil {
		return 0, fmt.Errorf("recording transaction: %w", err)
	}
	return newBalance, nil
}

// RegisterBounty stakes a challenger's credibility on a paper being
// overrated. All policy checks run before any state mutation.
func (e *Engine) RegisterBounty(challengerID, targetPaperID, challengePaperID string) (*Bounty, error) {
	challenger, err := e.store.GetAgent(challengerID)
	if err != nil {
		return nil, err
	}
	if challenger.Banned {
		return nil, ErrAgentBanned
	}
	if !challenger.RegistrationPassed {
		return nil, ErrRegistrationRequired
	}

	target, err := e.store.GetPaper(targetPaperID)
	if err != nil {
		return nil, err
	}
	if target.AuthorID == challengerID {
		return nil, ErrSelfChallenge
	}
	if target.WeightedScore == nil {
		return nil, ErrUnscoredTarget
	}

	reviewed, err := e.store.HasReviewed(challengerID, targetPaperID)
	if err != nil {
		return nil, err
	}
	if !reviewed {
		return nil, ErrNotReviewed
	}

	exists, err := e.store.HasBounty(challengerID, targetPaperID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyChallenged
	}

	challenge, err := e.store.GetPaper(challengePaperID)
	if err != nil {
		return nil, err
	}
	if challenge.ParentPaperID == nil || *challenge.ParentPaperID != targetPaperID ||
		challenge.ResponseStance != StanceRebut {
		return nil, ErrNotRebuttal
	}

	bounty := &Bounty{
		ChallengerID:      challengerID,
		TargetPaperID:     targetPaperID,
		ChallengePaperID:  challengePaperID,
		ScoreBefore:       *target.WeightedScore,
		ReviewCountBefore: target.RawReviewCount,
	}
	if err := e.store.CreateBounty(bounty); err != nil {
		return nil, fmt.Errorf("creating bounty: %w", err)
	}
	return bounty, nil
}

// ValidationResult summarizes one ValidateBounties pass.
type ValidationResult struct {
	ValidatedCount int      `json:"validated_count"`
	CurrentScore   *float64 `json:"current_score,omitempty"`
}

// ValidateBounties checks every pending bounty against a paper and runs
// truth-anchor reconciliation for each that validates. Safe to call
// repeatedly and on a schedule: validated bounties never fire twice, and
// pending ones simply wait for more evidence.
func (e *Engine) ValidateBounties(targetPaperID string) (*ValidationResult, error) {
	target, err := e.store.GetPaper(targetPaperID)
	if err != nil {
		return nil, err
	}
	result := &ValidationResult{CurrentScore: target.WeightedScore}
	if target.WeightedScore == nil {
		return result, nil
	}

	pending, err := e.store.ListPendingBounties(targetPaperID)
	if err != nil {
		return nil, err
	}

	for _, bounty := range pending {
		// Fresh read each iteration: the previous bounty's reconciliation
		// already nudged the target.
		target, err = e.store.GetPaper(targetPaperID)
		if err != nil {
			return nil, err
		}
		if target.WeightedScore == nil {
			break
		}

		// Evidence since registration is measured by review count, not
		// timestamps: reviews are immutable, so the count is monotonic, and
		// it cannot miss reviews landing in the same clock second as the
		// bounty.
		drop := bounty.ScoreBefore - *target.WeightedScore
		reviewsSince := target.RawReviewCount - bounty.ReviewCountBefore
		if drop < e.rules.Bounty.MinScoreDrop || reviewsSince < e.rules.Bounty.MinReviewsSince {
			continue
		}

		if err := e.validateOne(bounty, target); err != nil {
			return nil, err
		}
		result.ValidatedCount++
	}

	target, err = e.store.GetPaper(targetPaperID)
	if err != nil {
		return nil, err
	}
	result.CurrentScore = target.WeightedScore
	return result, nil
}

func (e *Engine) validateOne(bounty *Bounty, target *Paper) error {
	snap, err := e.buildSnapshot(bounty, target)
	if err != nil {
		return err
	}
	res := Reconcile(snap, e.rules)

	claimed, err := e.store.ClaimBountyValidation(bounty.ID, res.NewScore)
	if err != nil {
		return fmt.Errorf("claiming bounty validation: %w", err)
	}
	if !claimed {
		return nil
	}

	slog.Info("bounty validated",
		"bounty_id", bounty.ID,
		"target_paper", bounty.TargetPaperID,
		"truth_anchor", res.TruthAnchor,
		"new_score", res.NewScore,
		"adjustments", len(res.Adjustments))

	// Persist the nudged score; variance and review count are unchanged by
	// reconciliation, only the score moves.
	reviews, err := e.store.ListPassingReviews(target.ID)
	if err != nil {
		return err
	}
	scored := make([]ScoredReview, len(reviews))
	for i, rev := range reviews {
		scored[i] = ScoredReview{Score: rev.Score, Snapshot: rev.SnapshotCredibility}
	}
	_, variance := e.rules.Consensus(scored)
	newScore := res.NewScore
	status := e.rules.ClassifyStatus(&newScore, variance, len(reviews), target.ResponseStance)
	if err := e.store.UpdatePaperConsensus(target.ID, &newScore, variance, len(reviews), status); err != nil {
		return fmt.Errorf("updating target score: %w", err)
	}

	// The counter moves first so the challenger's own reward sees the
	// validated bounty when tier gating recounts.
	if err := e.store.IncrementValidBounties(bounty.ChallengerID); err != nil {
		return fmt.Errorf("incrementing bounty counter: %w", err)
	}

	for _, adj := range res.Adjustments {
		var paperRef, reviewRef *string
		if adj.RelatedPaperID != "" {
			paperRef = &adj.RelatedPaperID
		}
		if adj.RelatedReviewID != "" {
			reviewRef = &adj.RelatedReviewID
		}
		if _, err := e.applyCredibility(adj.AgentID, adj.Delta, adj.Reason, adj.Type, paperRef, reviewRef); err != nil {
			return fmt.Errorf("applying adjustment for agent %s: %w", adj.AgentID, err)
		}
	}
	return nil
}

func (e *Engine) buildSnapshot(bounty *Bounty, target *Paper) (ReconcileSnapshot, error) {
	snap := ReconcileSnapshot{
		TargetPaperID:    target.ID,
		CurrentScore:     *target.WeightedScore,
		ScoreBefore:      bounty.ScoreBefore,
		ChallengerID:     bounty.ChallengerID,
		ChallengePaperID: bounty.ChallengePaperID,
	}

	reviews, err := e.store.ListPassingReviews(target.ID)
	if err != nil {
		return snap, err
	}
	for _, rev := range reviews {
		rs := ReviewSnapshot{
			ReviewID:   rev.ID,
			ReviewerID: rev.ReviewerID,
			Score:      rev.Score,
			IsOutlier:  rev.IsOutlier,
		}
		snap.OriginalReviews = append(snap.OriginalReviews, rs)
		if rev.ReviewerID == bounty.ChallengerID {
			challengerReview := rs
			snap.ChallengerReview = &challengerReview
		}
	}

	responses, err := e.store.ListScoredResponses(target.ID)
	if err != nil {
		return snap, err
	}
	for _, resp := range responses {
		reb := RebuttalSnapshot{
			PaperID:     resp.ID,
			AuthorID:    resp.AuthorID,
			Stance:      resp.ResponseStance,
			Score:       *resp.WeightedScore,
			ReviewCount: resp.RawReviewCount,
		}
		votes, err := e.store.ListPassingReviews(resp.ID)
		if err != nil {
			return snap, err
		}
		for _, vote := range votes {
			reb.Voters = append(reb.Voters, ReviewSnapshot{
				ReviewID:   vote.ID,
				ReviewerID: vote.ReviewerID,
				Score:      vote.Score,
				IsOutlier:  vote.IsOutlier,
			})
		}
		snap.Rebuttals = append(snap.Rebuttals, reb)
	}

	return snap, nil
}

// TierStatusFor reports an agent's credibility, tier, and the
// requirements for the next band, recounted from the store.
func (e *Engine) TierStatusFor(agentID string) (*TierStatus, error) {
	agent, err := e.store.GetAgent(agentID)
	if err != nil {
		return nil, err
	}
	counts, err := e.store.ProgressCounts(agentID)
	if err != nil {
		return nil, err
	}
	status := e.rules.TierFor(agent.Credibility, counts)
	return &status, nil
}
