package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/quorum-review/quorum/internal/engine"
)

type CreatePaperInput struct {
	AuthorID        string
	Title           string
	Abstract        string
	Body            string
	ParentPaperID   *string
	ResponseStance  string
	ConfidenceScore *float64
}

func (db *DB) CreatePaper(input CreatePaperInput) (*engine.Paper, error) {
	id := NewID()
	stance := input.ResponseStance
	if stance == "" {
		stance = engine.StanceNone
	}
	_, err := db.Exec(`
		INSERT INTO papers (id, author_id, title, abstract, body, parent_paper_id, response_stance, confidence_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.AuthorID, input.Title, input.Abstract, input.Body,
		input.ParentPaperID, stance, input.ConfidenceScore)
	if err != nil {
		return nil, fmt.Errorf("creating paper: %w", err)
	}
	return db.GetPaper(id)
}

const paperColumns = `id, author_id, title, abstract, body, parent_paper_id, response_stance,
	weighted_score, raw_review_count, status, score_variance, confidence_score, elo_applied, created_at`

func (db *DB) GetPaper(id string) (*engine.Paper, error) {
	paper, err := scanPaper(db.QueryRow(`
		SELECT `+paperColumns+` FROM papers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("paper %s: %w", id, engine.ErrNotFound)
	}
	return paper, err
}

func scanPaper(s interface{ Scan(...any) error }) (*engine.Paper, error) {
	p := &engine.Paper{}
	var parentID sql.NullString
	var score, variance, confidence sql.NullFloat64
	var eloApplied int
	err := s.Scan(
		&p.ID, &p.AuthorID, &p.Title, &p.Abstract, &p.Body, &parentID, &p.ResponseStance,
		&score, &p.RawReviewCount, &p.Status, &variance, &confidence, &eloApplied, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.EloApplied = eloApplied == 1
	if parentID.Valid {
		p.ParentPaperID = &parentID.String
	}
	if score.Valid {
		p.WeightedScore = &score.Float64
	}
	if variance.Valid {
		p.ScoreVariance = &variance.Float64
	}
	if confidence.Valid {
		p.ConfidenceScore = &confidence.Float64
	}
	return p, nil
}

// UpdatePaperConsensus persists a recomputed weighted score, variance,
// review count and status in one statement.
func (db *DB) UpdatePaperConsensus(paperID string, score, variance *float64, reviewCount int, status string) error {
	_, err := db.Exec(`
		UPDATE papers SET weighted_score = ?, score_variance = ?, raw_review_count = ?, status = ?
		WHERE id = ?`, score, variance, reviewCount, status, paperID)
	return err
}

// ClaimEloFeedback flips elo_applied 0 -> 1 and reports whether this call
// made the transition. The guard in the WHERE clause makes the Elo event
// at-most-once per paper regardless of interleaving.
func (db *DB) ClaimEloFeedback(paperID string) (bool, error) {
	res, err := db.Exec(`UPDATE papers SET elo_applied = 1 WHERE id = ? AND elo_applied = 0`, paperID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListScoredResponses returns the non-revision responses to a paper that
// carry a weighted score — the rebuttal pool for truth-anchor blending.
func (db *DB) ListScoredResponses(parentPaperID string) ([]*engine.Paper, error) {
	rows, err := db.Query(`
		SELECT `+paperColumns+` FROM papers
		WHERE parent_paper_id = ?
		  AND response_stance IN ('support','neutral','rebut')
		  AND weighted_score IS NOT NULL
		ORDER BY created_at`, parentPaperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPaperRows(rows)
}

// ListResponses returns every response to a paper, scored or not.
func (db *DB) ListResponses(parentPaperID string) ([]*engine.Paper, error) {
	rows, err := db.Query(`
		SELECT `+paperColumns+` FROM papers
		WHERE parent_paper_id = ?
		ORDER BY created_at`, parentPaperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPaperRows(rows)
}

func (db *DB) ListPapersByAuthor(authorID string, limit int) ([]*engine.Paper, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT `+paperColumns+` FROM papers
		WHERE author_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, authorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPaperRows(rows)
}

func (db *DB) ListRecentPapers(limit int) ([]*engine.Paper, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT `+paperColumns+` FROM papers
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPaperRows(rows)
}

func scanPaperRows(rows *sql.Rows) ([]*engine.Paper, error) {
	var results []*engine.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
