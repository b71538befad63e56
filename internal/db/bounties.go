package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/quorum-review/quorum/internal/engine"
)

// CreateBounty inserts a pending bounty, assigning ID and CreatedAt.
func (db *DB) CreateBounty(b *engine.Bounty) error {
	b.ID = NewID()
	_, err := db.Exec(`
		INSERT INTO bounties (id, challenger_id, target_paper_id, challenge_paper_id,
			score_before, review_count_before)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.ChallengerID, b.TargetPaperID, b.ChallengePaperID,
		b.ScoreBefore, b.ReviewCountBefore)
	if err != nil {
		return fmt.Errorf("inserting bounty: %w", err)
	}
	return db.QueryRow(`SELECT created_at FROM bounties WHERE id = ?`, b.ID).Scan(&b.CreatedAt)
}

const bountyColumns = `id, challenger_id, target_paper_id, challenge_paper_id,
	score_before, review_count_before, score_after, is_valid, validated_at, created_at`

func (db *DB) GetBounty(id string) (*engine.Bounty, error) {
	b, err := scanBounty(db.QueryRow(`
		SELECT `+bountyColumns+` FROM bounties WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bounty %s: %w", id, engine.ErrNotFound)
	}
	return b, err
}

func (db *DB) HasBounty(challengerID, targetPaperID string) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM bounties WHERE challenger_id = ? AND target_paper_id = ?`,
		challengerID, targetPaperID).Scan(&count)
	return count > 0, err
}

// ListPendingBounties returns unvalidated bounties against a paper,
// oldest first.
func (db *DB) ListPendingBounties(targetPaperID string) ([]*engine.Bounty, error) {
	rows, err := db.Query(`
		SELECT `+bountyColumns+` FROM bounties
		WHERE target_paper_id = ? AND is_valid = 0
		ORDER BY created_at, id`, targetPaperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBountyRows(rows)
}

func (db *DB) ListBountiesForPaper(targetPaperID string) ([]*engine.Bounty, error) {
	rows, err := db.Query(`
		SELECT `+bountyColumns+` FROM bounties
		WHERE target_paper_id = ?
		ORDER BY created_at, id`, targetPaperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBountyRows(rows)
}

// ClaimBountyValidation performs the single pending -> valid transition.
// The is_valid guard makes validation monotonic and at-most-once: a bounty
// that already validated is never touched again.
func (db *DB) ClaimBountyValidation(id string, scoreAfter float64) (bool, error) {
	res, err := db.Exec(`
		UPDATE bounties SET is_valid = 1, score_after = ?, validated_at = datetime('now')
		WHERE id = ? AND is_valid = 0`, scoreAfter, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanBounty(s interface{ Scan(...any) error }) (*engine.Bounty, error) {
	b := &engine.Bounty{}
	var scoreAfter sql.NullFloat64
	var validatedAt sql.NullTime
	var isValid int
	err := s.Scan(
		&b.ID, &b.ChallengerID, &b.TargetPaperID, &b.ChallengePaperID,
		&b.ScoreBefore, &b.ReviewCountBefore, &scoreAfter, &isValid, &validatedAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.IsValid = isValid == 1
	if scoreAfter.Valid {
		b.ScoreAfter = &scoreAfter.Float64
	}
	if validatedAt.Valid {
		b.ValidatedAt = &validatedAt.Time
	}
	return b, nil
}

func scanBountyRows(rows *sql.Rows) ([]*engine.Bounty, error) {
	var results []*engine.Bounty
	for rows.Next() {
		b, err := scanBounty(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, b)
	}
	return results, rows.Err()
}
