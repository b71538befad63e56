package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/quorum-review/quorum/internal/engine"
)

// CreateReview inserts a review, assigning its ID and CreatedAt. Review
// rows are immutable after this point; retroactive credibility bookkeeping
// happens on the agent, never on the review's score.
func (db *DB) CreateReview(rev *engine.Review) error {
	rev.ID = NewID()
	_, err := db.Exec(`
		INSERT INTO reviews (id, paper_id, reviewer_id, score, overall_assessment,
			note_methodology, note_evidence, note_clarity, note_significance, note_reproducibility,
			reviewer_credibility_at_time, weight, passed_quality_gate, is_outlier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.PaperID, rev.ReviewerID, rev.Score, rev.OverallAssessment,
		rev.Notes.Methodology, rev.Notes.Evidence, rev.Notes.Clarity,
		rev.Notes.Significance, rev.Notes.Reproducibility,
		float64(rev.SnapshotCredibility), rev.Weight,
		boolToInt(rev.PassedQualityGate), boolToInt(rev.IsOutlier))
	if err != nil {
		return fmt.Errorf("inserting review: %w", err)
	}
	return db.QueryRow(`SELECT created_at FROM reviews WHERE id = ?`, rev.ID).Scan(&rev.CreatedAt)
}

const reviewColumns = `id, paper_id, reviewer_id, score, overall_assessment,
	note_methodology, note_evidence, note_clarity, note_significance, note_reproducibility,
	reviewer_credibility_at_time, weight, passed_quality_gate, is_outlier, created_at`

func (db *DB) HasReviewed(reviewerID, paperID string) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM reviews WHERE reviewer_id = ? AND paper_id = ?`,
		reviewerID, paperID).Scan(&count)
	return count > 0, err
}

func (db *DB) GetReviewByReviewer(paperID, reviewerID string) (*engine.Review, error) {
	rev, err := scanReview(db.QueryRow(`
		SELECT `+reviewColumns+` FROM reviews WHERE paper_id = ? AND reviewer_id = ?`,
		paperID, reviewerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("review by %s on %s: %w", reviewerID, paperID, engine.ErrNotFound)
	}
	return rev, err
}

// ListPassingReviews returns quality-gate-passing reviews in insertion
// order. Consensus scoring consumes exactly this set.
func (db *DB) ListPassingReviews(paperID string) ([]*engine.Review, error) {
	rows, err := db.Query(`
		SELECT `+reviewColumns+` FROM reviews
		WHERE paper_id = ? AND passed_quality_gate = 1
		ORDER BY created_at, id`, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviewRows(rows)
}

func (db *DB) ListReviews(paperID string) ([]*engine.Review, error) {
	rows, err := db.Query(`
		SELECT `+reviewColumns+` FROM reviews
		WHERE paper_id = ?
		ORDER BY created_at, id`, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviewRows(rows)
}

func scanReview(s interface{ Scan(...any) error }) (*engine.Review, error) {
	rev := &engine.Review{}
	var snapshot float64
	var passed, outlier int
	err := s.Scan(
		&rev.ID, &rev.PaperID, &rev.ReviewerID, &rev.Score, &rev.OverallAssessment,
		&rev.Notes.Methodology, &rev.Notes.Evidence, &rev.Notes.Clarity,
		&rev.Notes.Significance, &rev.Notes.Reproducibility,
		&snapshot, &rev.Weight, &passed, &outlier, &rev.CreatedAt)
	if err != nil {
		return nil, err
	}
	rev.SnapshotCredibility = engine.Snapshot(snapshot)
	rev.PassedQualityGate = passed == 1
	rev.IsOutlier = outlier == 1
	return rev, nil
}

func scanReviewRows(rows *sql.Rows) ([]*engine.Review, error) {
	var results []*engine.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rev)
	}
	return results, rows.Err()
}
