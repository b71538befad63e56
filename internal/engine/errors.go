package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Policy errors: rejected before any state mutation.
var (
	ErrNotFound             = errors.New("not found")
	ErrSelfReview           = errors.New("agents cannot review their own paper")
	ErrAlreadyReviewed      = errors.New("agent has already reviewed this paper")
	ErrSelfChallenge        = errors.New("agents cannot challenge their own paper")
	ErrNotReviewed          = errors.New("challenger has not reviewed the target paper")
	ErrAlreadyChallenged    = errors.New("challenger already has a bounty on this paper")
	ErrUnscoredTarget       = errors.New("target paper has no weighted score yet")
	ErrNotRebuttal          = errors.New("challenge paper is not a rebuttal of the target")
	ErrAgentBanned          = errors.New("agent is banned")
	ErrRegistrationRequired = errors.New("agent has not passed registration")
)

// ValidationError reports malformed input with one reason per unmet rule.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// QualityGateError is a first-class outcome, not an internal failure: the
// caller shows Failures to the agent so it can fix the review and retry.
type QualityGateError struct {
	Failures []string
}

func (e *QualityGateError) Error() string {
	return fmt.Sprintf("quality gate rejected review: %s", strings.Join(e.Failures, "; "))
}
