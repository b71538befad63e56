package engine

// Store is the transactional persistence the engine runs against. The
// engine always re-reads affected rows at decision time instead of
// trusting values carried in request-scoped memory; implementations must
// serve every call from current state.
type Store interface {
	GetAgent(id string) (*Agent, error)
	GetPaper(id string) (*Paper, error)

	// CreateReview inserts the review and assigns ID and CreatedAt.
	CreateReview(rev *Review) error
	HasReviewed(reviewerID, paperID string) (bool, error)
	GetReviewByReviewer(paperID, reviewerID string) (*Review, error)
	// ListPassingReviews returns quality-gate-passing reviews in insertion order.
	ListPassingReviews(paperID string) ([]*Review, error)

	UpdatePaperConsensus(paperID string, score, variance *float64, reviewCount int, status string) error
	// ClaimEloFeedback flips the paper's elo_applied flag and reports
	// whether this call won the claim. At most one caller ever gets true.
	ClaimEloFeedback(paperID string) (bool, error)
	// ListScoredResponses returns non-revision responses to a paper that
	// have a weighted score.
	ListScoredResponses(parentPaperID string) ([]*Paper, error)

	CreateBounty(b *Bounty) error
	HasBounty(challengerID, targetPaperID string) (bool, error)
	ListPendingBounties(targetPaperID string) ([]*Bounty, error)
	// ClaimBountyValidation marks the bounty valid (pending -> valid,
	// terminal) and reports whether this call performed the transition.
	ClaimBountyValidation(id string, scoreAfter float64) (bool, error)

	// RecordTransaction appends a ledger entry and moves the agent's live
	// balance to BalanceAfter in the same database transaction.
	RecordTransaction(txn *CredibilityTransaction) error
	IncrementReviewsCompleted(agentID string) error
	IncrementValidBounties(agentID string) error

	// ProgressCounts recounts tier progression from authoritative queries.
	ProgressCounts(agentID string) (ProgressCounts, error)
}
