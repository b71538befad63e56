package engine

import "time"

// Paper lifecycle statuses.
const (
	StatusPending       = "pending"
	StatusActive        = "active"
	StatusContested     = "contested"
	StatusHallOfScience = "hall_of_science"
	StatusDistinguished = "distinguished"
	StatusLandmark      = "landmark"
	StatusRemoved       = "removed"
)

// Response stances for papers linked to a parent.
const (
	StanceNone     = "none"
	StanceSupport  = "support"
	StanceNeutral  = "neutral"
	StanceRebut    = "rebut"
	StanceRevision = "revision"
)

// Agent roles. Admins drive the moderation endpoints; the default role
// carries no special powers.
const (
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// Credibility transaction types.
const (
	TxnReviewReward    = "review_reward"
	TxnEloFeedback     = "elo_feedback"
	TxnBountyReward    = "bounty_reward"
	TxnDiversityBonus  = "diversity_bonus"
	TxnVindicatedBonus = "vindicated_outlier"
	TxnReviewerPenalty = "reviewer_penalty"
	TxnReviewerReward  = "reviewer_reward"
	TxnVoterReward     = "voter_reward"
	TxnVoterPenalty    = "voter_penalty"
	TxnAdminAdjustment = "admin_adjustment"
)

// Agent is a registered participant. Credibility is the live balance,
// bounded by Rules.MinCredibility/MaxCredibility. The counter columns are
// convenience mirrors; gating decisions always recount from the store.
type Agent struct {
	ID                 string     `json:"id"`
	Handle             string     `json:"handle"`
	Email              *string    `json:"email,omitempty"`
	Role               string     `json:"role"`
	Credibility        float64    `json:"credibility"`
	ReviewsCompleted   int        `json:"reviews_completed"`
	ValidBounties      int        `json:"valid_bounties"`
	PapersSubmitted    int        `json:"papers_submitted"`
	Banned             bool       `json:"banned"`
	RegistrationPassed bool       `json:"registration_passed"`
	CreatedAt          time.Time  `json:"created_at"`
	LastSeenAt         *time.Time `json:"last_seen_at,omitempty"`
}

// Paper is a submission under review. WeightedScore and ScoreVariance are
// nil until enough reviews accumulate.
type Paper struct {
	ID              string     `json:"id"`
	AuthorID        string     `json:"author_id"`
	Title           string     `json:"title"`
	Abstract        string     `json:"abstract"`
	Body            string     `json:"body"`
	ParentPaperID   *string    `json:"parent_paper_id,omitempty"`
	ResponseStance  string     `json:"response_stance"`
	WeightedScore   *float64   `json:"weighted_score,omitempty"`
	RawReviewCount  int        `json:"raw_review_count"`
	Status          string     `json:"status"`
	ScoreVariance   *float64   `json:"score_variance,omitempty"`
	ConfidenceScore *float64   `json:"confidence_score,omitempty"`
	EloApplied      bool       `json:"elo_applied"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ReviewNotes are the five structured note fields of a review.
type ReviewNotes struct {
	Methodology     string `json:"methodology"`
	Evidence        string `json:"evidence"`
	Clarity         string `json:"clarity"`
	Significance    string `json:"significance"`
	Reproducibility string `json:"reproducibility"`
}

// Fields returns the note fields in canonical order.
func (n ReviewNotes) Fields() []string {
	return []string{n.Methodology, n.Evidence, n.Clarity, n.Significance, n.Reproducibility}
}

// Review is immutable after creation. SnapshotCredibility is the
// reviewer's credibility at insert time; weighting always uses it, never
// the reviewer's live balance.
type Review struct {
	ID                  string      `json:"id"`
	PaperID             string      `json:"paper_id"`
	ReviewerID          string      `json:"reviewer_id"`
	Score               int         `json:"score"`
	OverallAssessment   string      `json:"overall_assessment"`
	Notes               ReviewNotes `json:"notes"`
	SnapshotCredibility Snapshot    `json:"reviewer_credibility_at_time"`
	Weight              float64     `json:"weight"`
	PassedQualityGate   bool        `json:"passed_quality_gate"`
	IsOutlier           bool        `json:"is_outlier"`
	CreatedAt           time.Time   `json:"created_at"`
}

// CredibilityTransaction is an append-only ledger entry. BalanceAfter is
// the clamped, tier-capped balance; Delta is the delta actually applied,
// so the ledger replays to the live balance.
type CredibilityTransaction struct {
	ID              string    `json:"id"`
	AgentID         string    `json:"agent_id"`
	Delta           float64   `json:"delta"`
	BalanceAfter    float64   `json:"balance_after"`
	Reason          string    `json:"reason"`
	Type            string    `json:"type"`
	RelatedPaperID  *string   `json:"related_paper_id,omitempty"`
	RelatedReviewID *string   `json:"related_review_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Bounty stakes a challenger's standing on a paper being overrated.
// ScoreBefore and ReviewCountBefore snapshot the target at registration;
// validation compares live state against them. Transitions once,
// pending -> valid; it never reverts and never reaches an "invalid"
// terminal state — an unvalidated bounty just keeps waiting for evidence.
type Bounty struct {
	ID                string     `json:"id"`
	ChallengerID      string     `json:"challenger_id"`
	TargetPaperID     string     `json:"target_paper_id"`
	ChallengePaperID  string     `json:"challenge_paper_id"`
	ScoreBefore       float64    `json:"score_before"`
	ReviewCountBefore int        `json:"review_count_before"`
	ScoreAfter        *float64   `json:"score_after,omitempty"`
	IsValid           bool       `json:"is_valid"`
	ValidatedAt       *time.Time `json:"validated_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
